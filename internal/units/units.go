// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package units converts physical quantities between their textual form
// ("50um", "-100V", "1350cm*cm/V/s") and the framework's internal units.
//
// Internal units: mm (length), ns (time), MeV (energy), e (charge),
// K (temperature), MV (voltage), rad (angle). Every number stored inside the
// framework is expressed in these units; conversion happens only at the
// configuration boundary and when values are displayed.
package units

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// elementaryCharge is the charge of one electron in coulomb.
const elementaryCharge = 1.602176634e-19

// Boltzmann is the Boltzmann constant in internal units (MeV/K).
const Boltzmann = 8.617333262e-11

// table maps every known unit name to its factor relative to the internal unit.
var table = map[string]float64{
	// length
	"nm": 1e-6,
	"um": 1e-3,
	"mm": 1,
	"cm": 10,
	"dm": 100,
	"m":  1e3,
	"km": 1e6,

	// time
	"ps": 1e-3,
	"ns": 1,
	"us": 1e3,
	"ms": 1e6,
	"s":  1e9,

	// temperature
	"K": 1,

	// energy
	"eV":  1e-6,
	"keV": 1e-3,
	"MeV": 1,
	"GeV": 1e3,

	// charge
	"e":  1,
	"ke": 1e3,
	"fC": 1e-15 / elementaryCharge,
	"C":  1 / elementaryCharge,

	// voltage
	"mV": 1e-9,
	"V":  1e-6,
	"kV": 1e-3,
	"MV": 1,

	// magnetic field
	"mT": 1e-6,
	"T":  1e-3,

	// angle
	"mrad": 1e-3,
	"rad":  1,
	"deg":  math.Pi / 180,
}

// numberRegex splits a quantity into its numeric part and its unit expression.
// The exponent group needs at least one digit, so "1eV" parses as 1 eV.
var numberRegex = regexp.MustCompile(`^([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*(.*)$`)

// Factor returns the conversion factor of a unit expression. Expressions are
// unit names joined by '*' and '/', evaluated left to right.
func Factor(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 1, nil
	}

	factor := 1.0
	op := byte('*')
	start := 0
	for i := 0; i <= len(expr); i++ {
		if i < len(expr) && expr[i] != '*' && expr[i] != '/' {
			continue
		}
		name := strings.TrimSpace(expr[start:i])
		f, ok := table[name]
		if !ok {
			return 0, fmt.Errorf("unknown unit %q", name)
		}
		if op == '*' {
			factor *= f
		} else {
			factor /= f
		}
		if i < len(expr) {
			op = expr[i]
		}
		start = i + 1
	}
	return factor, nil
}

// Parse converts a quantity such as "50um" into internal units. A bare number
// is returned unchanged.
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	m := numberRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", s, err)
	}
	factor, err := Factor(m[2])
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return value * factor, nil
}

// Convert expresses an internal value in the given unit expression.
func Convert(value float64, unit string) (float64, error) {
	factor, err := Factor(unit)
	if err != nil {
		return 0, err
	}
	return value / factor, nil
}

// Display renders an internal value in the given unit, e.g. "50um".
func Display(value float64, unit string) (string, error) {
	v, err := Convert(value, unit)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(v, 'g', -1, 64) + unit, nil
}

// DisplayBest renders a value in the largest of the given units for which the
// magnitude is at least one. Unknown units are skipped; if none fits, the
// smallest known unit is used.
func DisplayBest(value float64, candidates ...string) string {
	type unit struct {
		name   string
		factor float64
	}
	var known []unit
	for _, name := range candidates {
		if f, err := Factor(name); err == nil {
			known = append(known, unit{name, f})
		}
	}
	if len(known) == 0 {
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
	sort.Slice(known, func(i, j int) bool { return known[i].factor > known[j].factor })

	best := known[len(known)-1]
	for _, u := range known {
		if math.Abs(value)/u.factor >= 1 {
			best = u
			break
		}
	}
	return strconv.FormatFloat(value/best.factor, 'g', 6, 64) + best.name
}

// Known reports whether a unit expression can be resolved.
func Known(expr string) bool {
	_, err := Factor(expr)
	return err == nil
}
