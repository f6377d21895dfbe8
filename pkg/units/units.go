// Package units provides canonical unit conversions and display rounding.
package units

import "math"

// MM3PerCm3 is the volume conversion factor between mm³ and cm³.
const MM3PerCm3 = 1000.0

// Cm3FromMm3 converts cubic millimeters to cubic centimeters.
func Cm3FromMm3(mm3 float64) float64 {
	return mm3 / MM3PerCm3
}

// HoursFromMinutes converts minutes to hours.
func HoursFromMinutes(minutes float64) float64 {
	return minutes / 60.0
}

// KilogramsFromGrams converts grams to kilograms.
func KilogramsFromGrams(grams float64) float64 {
	return grams / 1000.0
}

// KilowattsFromWatts converts watts to kilowatts.
func KilowattsFromWatts(watts float64) float64 {
	return watts / 1000.0
}

// Round2 rounds to 2 decimal places for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to 1 decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// RoundMinutes rounds a minute estimate to the nearest whole minute.
func RoundMinutes(v float64) int {
	return int(math.Round(v))
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
