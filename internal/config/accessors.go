// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/vk/pixsimgo/internal/units"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Value enumerates the Go types the typed accessors can produce.
type Value interface {
	string | bool | int | int64 | uint64 | float64 | r2.Vec | r3.Vec
}

// Get returns the value of key converted to T. A missing key is a
// MissingKeyError, a value that does not convert is an InvalidValueError.
func Get[T Value](c *Configuration, key string) (T, error) {
	var out T
	raw, ok := c.values[key]
	if !ok {
		return out, &MissingKeyError{Section: c.name, Key: key}
	}
	c.used[key] = true

	if err := parseValue(raw, &out); err != nil {
		return out, &InvalidValueError{Section: c.name, Key: key, Value: raw, Err: err}
	}
	return out, nil
}

// GetOr returns the value of key, or def when the key is not set. A value
// that is set but invalid is still an error.
func GetOr[T Value](c *Configuration, key string, def T) (T, error) {
	if !c.Has(key) {
		return def, nil
	}
	return Get[T](c, key)
}

// GetChecked returns the value of key after passing it through check. A
// check failure becomes an InvalidValueError carrying the check's message.
func GetChecked[T Value](c *Configuration, key string, check func(T) error) (T, error) {
	v, err := Get[T](c, key)
	if err != nil {
		return v, err
	}
	if err := check(v); err != nil {
		return v, &InvalidValueError{Section: c.name, Key: key, Value: c.values[key], Reason: err.Error()}
	}
	return v, nil
}

// GetCheckedOr is GetChecked with a default for a missing key. The default is
// not checked.
func GetCheckedOr[T Value](c *Configuration, key string, def T, check func(T) error) (T, error) {
	if !c.Has(key) {
		return def, nil
	}
	return GetChecked(c, key, check)
}

// GetArray splits the value of key on commas and whitespace and converts each
// element. Vector element types are not supported; use Get for a single vector.
func GetArray[T string | bool | int | int64 | uint64 | float64](c *Configuration, key string) ([]T, error) {
	raw, ok := c.values[key]
	if !ok {
		return nil, &MissingKeyError{Section: c.name, Key: key}
	}
	c.used[key] = true

	fields := splitList(raw)
	out := make([]T, len(fields))
	for i, f := range fields {
		if err := parseValue(f, &out[i]); err != nil {
			return nil, &InvalidValueError{Section: c.name, Key: key, Value: raw, Reason: fmt.Sprintf("element %d", i), Err: err}
		}
	}
	return out, nil
}

// GetArrayOr is GetArray with a default for a missing key.
func GetArrayOr[T string | bool | int | int64 | uint64 | float64](c *Configuration, key string, def []T) ([]T, error) {
	if !c.Has(key) {
		return def, nil
	}
	return GetArray[T](c, key)
}

// OneOf returns a check accepting only the listed strings.
func OneOf(allowed ...string) func(string) error {
	return func(v string) error {
		if slices.Contains(allowed, v) {
			return nil
		}
		return fmt.Errorf("must be one of '%s'", strings.Join(allowed, "', '"))
	}
}

// Positive is a check for strictly positive numbers.
func Positive(v float64) error {
	if v <= 0 {
		return fmt.Errorf("must be strictly positive")
	}
	return nil
}

// PositiveInt is Positive for integers.
func PositiveInt(v int) error {
	if v <= 0 {
		return fmt.Errorf("must be strictly positive")
	}
	return nil
}

func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// parseValue converts a raw string into the value pointed to by out.
func parseValue(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	switch p := out.(type) {
	case *string:
		*p = raw
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("not a boolean")
		}
		*p = b
	case *int:
		n, err := parseInteger(raw, strconv.IntSize)
		if err != nil {
			return err
		}
		*p = int(n)
	case *int64:
		n, err := parseInteger(raw, 64)
		if err != nil {
			return err
		}
		*p = n
	case *uint64:
		n, err := parseInteger(raw, 64)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("must not be negative")
		}
		*p = uint64(n)
	case *float64:
		f, err := units.Parse(raw)
		if err != nil {
			return err
		}
		*p = f
	case *r2.Vec:
		v, err := parseVector(raw, 2)
		if err != nil {
			return err
		}
		*p = r2.Vec{X: v[0], Y: v[1]}
	case *r3.Vec:
		v, err := parseVector(raw, 3)
		if err != nil {
			return err
		}
		*p = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	default:
		return fmt.Errorf("unsupported target type %T", out)
	}
	return nil
}

// parseInteger accepts plain integers and unit quantities that resolve to a
// whole number, so "1e3" and "2ke" are valid counts.
func parseInteger(raw string, bits int) (int64, error) {
	if n, err := strconv.ParseInt(raw, 10, bits); err == nil {
		return n, nil
	}
	f, err := units.Parse(raw)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer")
	}
	if bits < 64 && (f > math.MaxInt32 || f < math.MinInt32) {
		return 0, fmt.Errorf("out of range")
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("out of range")
	}
	return int64(f), nil
}

// parseVector reads n components, each with its own unit. A bare number is
// in internal units, so "10 20 300um" is (10mm, 20mm, 0.3mm).
func parseVector(raw string, n int) ([]float64, error) {
	fields := splitList(raw)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}

	out := make([]float64, n)
	for i, f := range fields {
		v, err := units.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
