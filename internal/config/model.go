// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"context"
	"fmt"
	"strings"
)

// FrameworkSection is the name of the global framework section.
const FrameworkSection = "framework"

// Loader is the interface for a format-specific steering loader.
type Loader interface {
	// Load reads steering files from the given paths (files or directories)
	// and translates them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is the unified, format-agnostic representation of a steering setup.
type Model struct {
	// Framework holds the global keys (number_of_events, random_seed, ...).
	Framework *Configuration
	// Models describe detector types; each section name is the model name.
	Models []*Configuration
	// Detectors place detector instances; each section name is the detector name.
	Detectors []*Configuration
	// Modules are the module sections in steering order; each section name
	// is a module type.
	Modules []*Configuration
}

// NewModel returns an empty model with an empty framework section.
func NewModel() *Model {
	return &Model{Framework: New(FrameworkSection, "")}
}

// Override applies a "section.key=value" or "key=value" assignment. A bare
// key targets the framework section; otherwise the section is matched
// against framework, module types, detector names and model names, and every
// matching section is updated.
func (m *Model) Override(assignment string) error {
	lhs, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("override %q is not of the form key=value", assignment)
	}
	lhs = strings.TrimSpace(lhs)
	value = strings.TrimSpace(value)

	section, key, scoped := strings.Cut(lhs, ".")
	if !scoped {
		key = section
		section = FrameworkSection
	}
	if key == "" {
		return fmt.Errorf("override %q has an empty key", assignment)
	}

	if section == FrameworkSection {
		m.Framework.Set(key, value)
		return nil
	}

	matched := false
	for _, group := range [][]*Configuration{m.Modules, m.Detectors, m.Models} {
		for _, cfg := range group {
			if cfg.Name() == section {
				cfg.Set(key, value)
				matched = true
			}
		}
	}
	if !matched {
		return fmt.Errorf("override %q does not match any section", assignment)
	}
	return nil
}

// Detector returns the detector section with the given name.
func (m *Model) Detector(name string) (*Configuration, bool) {
	for _, d := range m.Detectors {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// DetectorModel returns the model section with the given name.
func (m *Model) DetectorModel(name string) (*Configuration, bool) {
	for _, d := range m.Models {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}
