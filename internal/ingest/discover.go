package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/epcc-data/ascent.report/internal/security"
	"github.com/epcc-data/ascent.report/internal/sonde"
)

// Flight names the on-disk files belonging to one launch.
type Flight struct {
	Number      int
	ProfilePath string
	GPSPath     string // empty when the receiver dump is missing
}

// DiscoverFlight locates the raw files for one flight number under a
// data root. Processed ascent logs live directly under root, and the
// receiver dump sits inside the flight's raw directory. A missing GPS
// dump is not an error; a missing ascent log is.
func DiscoverFlight(root string, number int) (*Flight, error) {
	matches, err := filepath.Glob(filepath.Join(root, fmt.Sprintf("*No.%02d*", number)))
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	// The raw flight directory matches the same pattern as the ascent
	// log, so keep regular files only.
	var profiles []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			profiles = append(profiles, m)
		}
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("ingest: no ascent log for flight %d under %s", number, root)
	}
	sort.Strings(profiles)

	// Data roots are often shared network mounts; refuse symlinked
	// entries that escape them.
	if err := security.ValidatePathWithinDirectory(profiles[0], root); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	flight := &Flight{Number: number, ProfilePath: profiles[0]}

	gps, err := filepath.Glob(filepath.Join(root,
		fmt.Sprintf("Radiosonde_Flight_No.%02d_*", number), "GPSDCC_RESULT*.tsv"))
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if len(gps) > 0 {
		sort.Strings(gps)
		if err := security.ValidatePathWithinDirectory(gps[0], root); err != nil {
			return nil, fmt.Errorf("ingest: %w", err)
		}
		flight.GPSPath = gps[0]
	}
	return flight, nil
}

// LoadFlight reads a flight's ascent log and, when present, its GPS
// dump. The launch time is left zero when no dump is found or the
// receiver never locked.
func LoadFlight(root string, number int) (*FlightData, error) {
	flight, err := DiscoverFlight(root, number)
	if err != nil {
		return nil, err
	}

	ascent, err := ReadProfileFile(flight.ProfilePath, number)
	if err != nil {
		return nil, err
	}
	ascent.ID = fmt.Sprintf("flight-%02d", number)

	data := &FlightData{Flight: flight, Ascent: ascent}
	if flight.GPSPath != "" {
		fixes, err := ReadGPSFile(flight.GPSPath)
		if err != nil {
			return nil, err
		}
		data.Fixes = fixes
		if launch, ok := LaunchTime(fixes); ok {
			ascent.LaunchTime = launch
		}
	}
	return data, nil
}

// FlightData bundles everything parsed for one launch.
type FlightData struct {
	Flight *Flight
	Ascent *sonde.Ascent
	Fixes  []GPSFix
}
