package plan

import (
	"fmt"
	"strings"
)

// Unit is a real-world length unit.
type Unit string

const (
	Meters Unit = "meters"
	Feet   Unit = "feet"
)

// FeetPerMeter is the conversion factor used for all feet input and output.
const FeetPerMeter = 3.28084

// ParseUnit accepts the long and short spellings of a unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "meter", "meters", "metre", "metres":
		return Meters, nil
	case "ft", "foot", "feet":
		return Feet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	return u == Meters || u == Feet
}

// Abbrev returns the short label used when formatting lengths.
func (u Unit) Abbrev() string {
	if u == Feet {
		return "ft"
	}
	return "m"
}

// ToMeters converts a length in u to meters.
func ToMeters(length float64, u Unit) float64 {
	if u == Feet {
		return length / FeetPerMeter
	}
	return length
}

// FromMeters converts meters to u.
func FromMeters(meters float64, u Unit) float64 {
	if u == Feet {
		return meters * FeetPerMeter
	}
	return meters
}

// PixelsToMeters converts a pixel length using ppm, treating a non-positive
// scale as 1 pixel per meter.
func PixelsToMeters(px, ppm float64) float64 {
	if ppm <= 0 {
		ppm = 1
	}
	return px / ppm
}

// MetersToPixels is the inverse of PixelsToMeters.
func MetersToPixels(meters, ppm float64) float64 {
	if ppm <= 0 {
		ppm = 1
	}
	return meters * ppm
}

// FormatLength renders a length with two decimals, e.g. "2.00 m".
func FormatLength(length float64, u Unit) string {
	return fmt.Sprintf("%.2f %s", length, u.Abbrev())
}

// FormatArea renders an area with two decimals, e.g. "12.50 m²".
func FormatArea(area float64, u Unit) string {
	return fmt.Sprintf("%.2f %s²", area, u.Abbrev())
}
