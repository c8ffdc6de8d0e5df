package ingest

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// gpsHeaderLines is the fixed preamble of a GPSDCC_RESULT dump: the
// receiver writes its configuration block before the first record.
const gpsHeaderLines = 51

// gpsLeapSeconds is the GPS-UTC offset in effect for all flights in
// the archive.
const gpsLeapSeconds = 18

// gpsEpoch is the start of GPS time.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// GPSFix is one record from the receiver dump. SondeX is NaN until the
// receiver locks onto the sonde.
type GPSFix struct {
	Week   int
	Second float64
	SondeX float64
}

// GPS2UTC converts a GPS week number and second-of-week into UTC.
func GPS2UTC(week int, second float64) time.Time {
	d := time.Duration(week)*7*24*time.Hour +
		time.Duration(second*float64(time.Second)) -
		gpsLeapSeconds*time.Second
	return gpsEpoch.Add(d)
}

// ReadGPS parses a tab-separated GPSDCC_RESULT dump. It keeps the GPS
// week, second-of-week and sonde X position (columns 2, 3 and 5) of
// every record past the header block.
func ReadGPS(r io.Reader) ([]GPSFix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var fixes []GPSFix
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= gpsHeaderLines {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 5 {
			return nil, fmt.Errorf("ingest: GPS line %d has %d fields, want at least 5", lineNo, len(fields))
		}
		week, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("ingest: GPS line %d week: %w", lineNo, err)
		}
		second, err := parseField(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("ingest: GPS line %d second: %w", lineNo, err)
		}
		sondeX, err := parseField(strings.TrimSpace(fields[4]))
		if err != nil {
			return nil, fmt.Errorf("ingest: GPS line %d sonde position: %w", lineNo, err)
		}
		fixes = append(fixes, GPSFix{Week: week, Second: second, SondeX: sondeX})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: reading GPS dump: %w", err)
	}
	return fixes, nil
}

// ReadGPSFile opens and parses a GPS receiver dump from disk.
func ReadGPSFile(path string) ([]GPSFix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()

	fixes, err := ReadGPS(f)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	return fixes, nil
}

// LaunchTime returns the UTC launch time of a flight: the timestamp of
// the first fix where the receiver had locked onto the sonde. It
// returns false when no fix ever locked.
func LaunchTime(fixes []GPSFix) (time.Time, bool) {
	for _, fix := range fixes {
		if !math.IsNaN(fix.SondeX) {
			return GPS2UTC(fix.Week, fix.Second), true
		}
	}
	return time.Time{}, false
}
