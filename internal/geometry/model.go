// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package geometry

import (
	"fmt"
	"math"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/field"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pixel is the index of a pixel in the matrix.
type Pixel struct {
	X, Y int
}

func (p Pixel) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// DetectorModel is the static description of a detector type. It is shared
// read-only by every detector of that type.
type DetectorModel struct {
	name      string
	pixels    [2]int
	pitch     r2.Vec
	implant   r2.Vec
	thickness float64
}

// NewDetectorModel validates and builds a model.
func NewDetectorModel(name string, pixels [2]int, pitch, implant r2.Vec, thickness float64) (*DetectorModel, error) {
	if pixels[0] <= 0 || pixels[1] <= 0 {
		return nil, fmt.Errorf("number of pixels %v must be positive", pixels)
	}
	if pitch.X <= 0 || pitch.Y <= 0 {
		return nil, fmt.Errorf("pixel size %v must be positive", pitch)
	}
	if implant.X <= 0 || implant.Y <= 0 {
		return nil, fmt.Errorf("implant size %v must be positive", implant)
	}
	if implant.X > pitch.X || implant.Y > pitch.Y {
		return nil, fmt.Errorf("implant size %v is larger than the pixel size %v", implant, pitch)
	}
	if thickness <= 0 {
		return nil, fmt.Errorf("sensor thickness %g must be positive", thickness)
	}
	return &DetectorModel{name: name, pixels: pixels, pitch: pitch, implant: implant, thickness: thickness}, nil
}

// ModelFromConfig reads a model section. implant_size defaults to the pixel
// size.
func ModelFromConfig(cfg *config.Configuration) (*DetectorModel, error) {
	pixels, err := config.GetArray[int](cfg, "number_of_pixels")
	if err != nil {
		return nil, err
	}
	if len(pixels) != 2 || pixels[0] <= 0 || pixels[1] <= 0 {
		return nil, config.NewInvalidValueError(cfg, "number_of_pixels", "expected two positive values")
	}
	pitch, err := config.GetChecked(cfg, "pixel_size", positiveVec)
	if err != nil {
		return nil, err
	}
	implant, err := config.GetCheckedOr(cfg, "implant_size", pitch, func(v r2.Vec) error {
		if err := positiveVec(v); err != nil {
			return err
		}
		if v.X > pitch.X || v.Y > pitch.Y {
			return fmt.Errorf("implant is larger than the pixel")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	thickness, err := config.GetChecked(cfg, "sensor_thickness", config.Positive)
	if err != nil {
		return nil, err
	}

	return NewDetectorModel(cfg.Name(), [2]int{pixels[0], pixels[1]}, pitch, implant, thickness)
}

func positiveVec(v r2.Vec) error {
	if v.X <= 0 || v.Y <= 0 {
		return fmt.Errorf("must be strictly positive")
	}
	return nil
}

// Name returns the model name.
func (m *DetectorModel) Name() string { return m.name }

// NumberOfPixels returns the pixel matrix size.
func (m *DetectorModel) NumberOfPixels() [2]int { return m.pixels }

// PixelSize returns the pixel pitch.
func (m *DetectorModel) PixelSize() r2.Vec { return m.pitch }

// ImplantSize returns the collection implant size.
func (m *DetectorModel) ImplantSize() r2.Vec { return m.implant }

// SensorThickness returns the sensor thickness.
func (m *DetectorModel) SensorThickness() float64 { return m.thickness }

// SensorSize returns the extent of the sensor.
func (m *DetectorModel) SensorSize() r3.Vec {
	return r3.Vec{
		X: float64(m.pixels[0]) * m.pitch.X,
		Y: float64(m.pixels[1]) * m.pitch.Y,
		Z: m.thickness,
	}
}

// SensorCenter returns the centre of the sensor in local coordinates.
func (m *DetectorModel) SensorCenter() r3.Vec {
	return r3.Vec{
		X: float64(m.pixels[0]-1) / 2 * m.pitch.X,
		Y: float64(m.pixels[1]-1) / 2 * m.pitch.Y,
	}
}

// ThicknessDomain returns the depth interval of the sensor.
func (m *DetectorModel) ThicknessDomain() field.ThicknessDomain {
	top := m.SensorCenter().Z + m.thickness/2
	return field.ThicknessDomain{Min: top - m.thickness, Max: top}
}

// PixelCenter returns the centre of a pixel on the implant side.
func (m *DetectorModel) PixelCenter(p Pixel) r3.Vec {
	return r3.Vec{X: float64(p.X) * m.pitch.X, Y: float64(p.Y) * m.pitch.Y, Z: m.ThicknessDomain().Max}
}

// PixelIndex returns the pixel containing the local position. ok is false
// outside the matrix.
func (m *DetectorModel) PixelIndex(pos r3.Vec) (Pixel, bool) {
	p := m.nearestPixel(pos)
	return p, m.IsValidPixel(p)
}

// IsValidPixel reports whether p lies inside the matrix.
func (m *DetectorModel) IsValidPixel(p Pixel) bool {
	return p.X >= 0 && p.X < m.pixels[0] && p.Y >= 0 && p.Y < m.pixels[1]
}

// IsWithinSensor reports whether a local position lies inside the sensor.
func (m *DetectorModel) IsWithinSensor(pos r3.Vec) bool {
	c, s := m.SensorCenter(), m.SensorSize()
	return math.Abs(pos.X-c.X) <= s.X/2 && math.Abs(pos.Y-c.Y) <= s.Y/2 && math.Abs(pos.Z-c.Z) <= s.Z/2
}

func (m *DetectorModel) nearestPixel(pos r3.Vec) Pixel {
	return Pixel{
		X: int(math.Floor(pos.X/m.pitch.X + 0.5)),
		Y: int(math.Floor(pos.Y/m.pitch.Y + 0.5)),
	}
}
