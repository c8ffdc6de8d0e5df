// Package ingest parses raw radiosonde flight logs and the matching
// GPS receiver dumps into ascent records.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/epcc-data/ascent.report/internal/sonde"
)

// profileColumns is the fixed layout of a raw ascent log: five shared
// meteorological columns, five package-specific sensor channels, then
// the GPS-derived position and wind block.
const profileColumns = 18

// ReadProfile parses a raw ascent log for the given sensor package.
// Lines starting with '#' are comments, fields are whitespace
// separated, and the -32768 sentinel becomes NaN. The returned ascent
// has its RHIce column derived and its sensor channels still in raw
// counts.
func ReadProfile(r io.Reader, pkg int) (*sonde.Ascent, error) {
	names, err := sonde.ChannelNames(pkg)
	if err != nil {
		return nil, err
	}
	// Packages with combined channels still occupy five raw columns;
	// the unused slot is parsed and dropped.
	for len(names) < 5 {
		names = append(names, "")
	}

	a := &sonde.Ascent{
		SensorPackage: pkg,
		Channels:      make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		if name != "" {
			a.Channels[name] = nil
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != profileColumns {
			return nil, fmt.Errorf("ingest: line %d has %d fields, want %d", lineNo, len(fields), profileColumns)
		}
		vals := make([]float64, profileColumns)
		for i, f := range fields {
			v, err := parseField(f)
			if err != nil {
				return nil, fmt.Errorf("ingest: line %d field %d: %w", lineNo, i+1, err)
			}
			vals[i] = v
		}

		a.TimeS = append(a.TimeS, vals[0])
		a.HeightKM = append(a.HeightKM, vals[1])
		a.PressureHPa = append(a.PressureHPa, vals[2])
		a.TdryC = append(a.TdryC, vals[3])
		a.RH = append(a.RH, vals[4])
		for i, name := range names {
			if name == "" {
				continue
			}
			a.Channels[name] = append(a.Channels[name], vals[5+i])
		}
		// Columns 10-13 are longitude, latitude, slant range and
		// bearing; the analysis does not consume them.
		a.TdewC = append(a.TdewC, vals[14])
		a.WindU = append(a.WindU, vals[15])
		a.WindV = append(a.WindV, vals[16])
		a.MixingRatio = append(a.MixingRatio, vals[17])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: reading profile: %w", err)
	}
	if a.Len() == 0 {
		return nil, fmt.Errorf("ingest: profile contains no samples")
	}
	if err := a.DeriveRHIce(); err != nil {
		return nil, err
	}
	return a, nil
}

// ReadProfileFile opens and parses a raw ascent log from disk,
// recording the source path on the ascent.
func ReadProfileFile(path string, pkg int) (*sonde.Ascent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()

	a, err := ReadProfile(f, pkg)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	a.SourceFile = path
	return a, nil
}

func parseField(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v == sonde.MissingValue {
		return math.NaN(), nil
	}
	return v, nil
}
