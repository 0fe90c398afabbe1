// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package geometry

import (
	"errors"
	"fmt"

	"github.com/vk/pixsimgo/internal/field"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNoField is returned by a field lookup on a detector without that field.
	ErrNoField = errors.New("no field attached to detector")
	// ErrFrozen is returned when a field is attached after initialisation.
	ErrFrozen = errors.New("detector fields can only be attached during initialisation")
)

// Detector is a placed instance of a detector model.
type Detector struct {
	name     string
	model    *DetectorModel
	position r3.Vec
	frozen   bool

	electricField      field.Field[r3.Vec]
	weightingPotential field.Field[float64]
}

// NewDetector places model at position.
func NewDetector(name string, model *DetectorModel, position r3.Vec) *Detector {
	return &Detector{name: name, model: model, position: position}
}

// Name returns the detector name.
func (d *Detector) Name() string { return d.name }

// Model returns the shared detector model.
func (d *Detector) Model() *DetectorModel { return d.model }

// Position returns the global position of the local origin.
func (d *Detector) Position() r3.Vec { return d.position }

// ToLocal converts a global position into local coordinates.
func (d *Detector) ToLocal(global r3.Vec) r3.Vec { return r3.Sub(global, d.position) }

// ToGlobal converts a local position into global coordinates.
func (d *Detector) ToGlobal(local r3.Vec) r3.Vec { return r3.Add(local, d.position) }

// Freeze rejects further field attachment. The executor calls it once every
// module is initialised.
func (d *Detector) Freeze() { d.frozen = true }

// SetElectricField attaches the electric field. A second attachment replaces
// the first.
func (d *Detector) SetElectricField(f field.Field[r3.Vec]) error {
	if d.frozen {
		return fmt.Errorf("detector %s: %w", d.name, ErrFrozen)
	}
	d.electricField = f
	return nil
}

// SetWeightingPotential attaches the weighting potential.
func (d *Detector) SetWeightingPotential(f field.Field[float64]) error {
	if d.frozen {
		return fmt.Errorf("detector %s: %w", d.name, ErrFrozen)
	}
	d.weightingPotential = f
	return nil
}

// HasElectricField reports whether an electric field is attached.
func (d *Detector) HasElectricField() bool { return d.electricField != nil }

// HasWeightingPotential reports whether a weighting potential is attached.
func (d *Detector) HasWeightingPotential() bool { return d.weightingPotential != nil }

// ElectricFieldType returns the type of the attached electric field.
func (d *Detector) ElectricFieldType() field.Type {
	if d.electricField == nil {
		return field.TypeUnknown
	}
	return d.electricField.Type()
}

// ElectricField returns the field at a local position. Fields are periodic
// per pixel, so the lookup is made relative to the nearest pixel centre.
func (d *Detector) ElectricField(local r3.Vec) (r3.Vec, error) {
	if d.electricField == nil {
		return r3.Vec{}, fmt.Errorf("detector %s: electric field: %w", d.name, ErrNoField)
	}
	return d.electricField.Get(d.relativeTo(local, d.model.nearestPixel(local)))
}

// WeightingPotential returns the weighting potential of pixel at a local
// position.
func (d *Detector) WeightingPotential(local r3.Vec, pixel Pixel) (float64, error) {
	if d.weightingPotential == nil {
		return 0, fmt.Errorf("detector %s: weighting potential: %w", d.name, ErrNoField)
	}
	return d.weightingPotential.Get(d.relativeTo(local, pixel))
}

// relativeTo shifts local in-plane so that the centre of pixel is the origin.
func (d *Detector) relativeTo(local r3.Vec, pixel Pixel) r3.Vec {
	c := d.model.PixelCenter(pixel)
	return r3.Vec{X: local.X - c.X, Y: local.Y - c.Y, Z: local.Z}
}
