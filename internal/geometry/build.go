// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package geometry

import (
	"context"
	"fmt"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/units"
	"gonum.org/v1/gonum/spatial/r3"
)

// Build creates the detectors of a steering model, in steering order.
// Detectors of the same type share one *DetectorModel.
func Build(ctx context.Context, m *config.Model) ([]*Detector, error) {
	logger := ctxlog.FromContext(ctx)
	models := make(map[string]*DetectorModel)
	seen := make(map[string]bool)

	var detectors []*Detector
	for _, cfg := range m.Detectors {
		if seen[cfg.Name()] {
			return nil, fmt.Errorf("detector %q defined more than once", cfg.Name())
		}
		seen[cfg.Name()] = true

		typeName, err := config.Get[string](cfg, "type")
		if err != nil {
			return nil, err
		}
		model, ok := models[typeName]
		if !ok {
			section, found := m.DetectorModel(typeName)
			if !found {
				return nil, config.NewInvalidValueError(cfg, "type", "no model with this name")
			}
			if model, err = ModelFromConfig(section); err != nil {
				return nil, err
			}
			models[typeName] = model
		}

		position, err := config.GetOr(cfg, "position", r3.Vec{})
		if err != nil {
			return nil, err
		}

		det := NewDetector(cfg.Name(), model, position)
		detectors = append(detectors, det)

		logger.Debug("Detector placed.",
			"detector", det.Name(),
			"model", model.Name(),
			"pixels", fmt.Sprintf("%dx%d", model.NumberOfPixels()[0], model.NumberOfPixels()[1]),
			"pitch", units.DisplayBest(model.PixelSize().X, "um", "mm"),
			"thickness", units.DisplayBest(model.SensorThickness(), "um", "mm"),
		)
	}
	return detectors, nil
}

// Find returns the detector with the given name.
func Find(detectors []*Detector, name string) (*Detector, bool) {
	for _, d := range detectors {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}
