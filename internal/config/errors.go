// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"fmt"
)

// MissingKeyError is returned when a required key is absent and the caller
// supplied no default.
type MissingKeyError struct {
	Section string
	Key     string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("key '%s' in section '%s' is required but not set", e.Key, e.Section)
}

// InvalidValueError is returned when a key is present but its value cannot be
// converted, fails a validity check, or points to something that does not
// exist.
type InvalidValueError struct {
	Section string
	Key     string
	Value   string
	Reason  string
	Err     error
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("value '%s' of key '%s' in section '%s' is not valid", e.Value, e.Key, e.Section)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

// NewInvalidValueError builds an InvalidValueError for a key of cfg, filling
// in the section name and the raw value currently stored.
func NewInvalidValueError(cfg *Configuration, key, reason string) *InvalidValueError {
	return &InvalidValueError{
		Section: cfg.Name(),
		Key:     key,
		Value:   cfg.Text(key),
		Reason:  reason,
	}
}

// WrapInvalidValue is NewInvalidValueError with an underlying cause.
func WrapInvalidValue(cfg *Configuration, key string, err error) *InvalidValueError {
	return &InvalidValueError{
		Section: cfg.Name(),
		Key:     key,
		Value:   cfg.Text(key),
		Err:     err,
	}
}
