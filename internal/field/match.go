// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package field

import (
	"fmt"
	"math"

	"github.com/vk/pixsimgo/internal/units"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// matchTolerance is the relative tolerance of the size comparisons.
const matchTolerance = 1e-6

// CheckDetectorMatch compares a field's physical size with the sensor it is
// attached to. It returns one warning per mismatch; none are fatal.
func CheckDetectorMatch(size r3.Vec, domain ThicknessDomain, pitch r2.Vec) []string {
	var warnings []string

	if thickness := domain.Thickness(); math.Abs(size.Z-thickness) > matchTolerance*thickness {
		warnings = append(warnings, fmt.Sprintf("field thickness is %s but the depleted region is %s",
			units.DisplayBest(size.Z, "um", "mm"), units.DisplayBest(thickness, "um", "mm")))
	}

	if !isMultiple(size.X, pitch.X) || !isMultiple(size.Y, pitch.Y) {
		warnings = append(warnings, fmt.Sprintf("field size is (%s, %s) but expecting a multiple of the pixel pitch (%s, %s)",
			units.DisplayBest(size.X, "um", "mm"), units.DisplayBest(size.Y, "um", "mm"),
			units.DisplayBest(pitch.X, "um", "mm"), units.DisplayBest(pitch.Y, "um", "mm")))
	}
	return warnings
}

// Scale returns the in-plane field extent in units of the pixel pitch.
func Scale(size r3.Vec, pitch r2.Vec) [2]float64 {
	return [2]float64{size.X / pitch.X, size.Y / pitch.Y}
}

func isMultiple(size, pitch float64) bool {
	ratio := size / pitch
	return ratio >= 1-matchTolerance && math.Abs(ratio-math.Round(ratio)) <= matchTolerance*ratio
}
