// Package units provides shared constants and validation for height units
package units

// Unit constants
const (
	KM = "km"
	M  = "m"
	FT = "ft"
	FL = "fl" // flight level (hundreds of feet)
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{KM, M, FT, FL}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "km, m, ft, fl"
}

// ConvertHeight converts a height from kilometres to the target units.
// Heights are stored in km throughout.
func ConvertHeight(heightKM float64, targetUnits string) float64 {
	switch targetUnits {
	case M:
		return heightKM * 1000
	case FT:
		return heightKM * 3280.8399
	case FL:
		return heightKM * 32.808399 // hundreds of feet
	case KM:
		return heightKM
	default:
		return heightKM // default to km if unknown unit
	}
}
