package geometry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/field"
	"github.com/vk/pixsimgo/internal/testutil"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func pad55(t *testing.T) *DetectorModel {
	t.Helper()
	m, err := NewDetectorModel("pad55", [2]int{4, 2}, r2.Vec{X: 0.055, Y: 0.055}, r2.Vec{X: 0.02, Y: 0.02}, 0.3)
	require.NoError(t, err)
	return m
}

func TestDetectorModel_Derived(t *testing.T) {
	m := pad55(t)

	size := m.SensorSize()
	assert.InDelta(t, 0.22, size.X, 1e-12)
	assert.InDelta(t, 0.11, size.Y, 1e-12)
	assert.Equal(t, 0.3, size.Z)

	c := m.SensorCenter()
	assert.InDelta(t, 0.0825, c.X, 1e-12)
	assert.InDelta(t, 0.0275, c.Y, 1e-12)
	assert.Zero(t, c.Z)

	assert.Equal(t, field.ThicknessDomain{Min: -0.15, Max: 0.15}, m.ThicknessDomain())
	assert.Equal(t, r3.Vec{X: 0.055, Y: 0, Z: 0.15}, m.PixelCenter(Pixel{X: 1, Y: 0}))
}

func TestDetectorModel_PixelIndex(t *testing.T) {
	m := pad55(t)

	p, ok := m.PixelIndex(r3.Vec{X: 0.06, Y: 0.01})
	assert.True(t, ok)
	assert.Equal(t, Pixel{X: 1, Y: 0}, p)

	p, ok = m.PixelIndex(r3.Vec{X: -0.03})
	assert.False(t, ok)
	assert.Equal(t, Pixel{X: -1, Y: 0}, p)

	assert.True(t, m.IsWithinSensor(r3.Vec{X: -0.02, Y: 0.08, Z: -0.15}))
	assert.False(t, m.IsWithinSensor(r3.Vec{Z: 0.2}))
}

func TestNewDetectorModel_Invalid(t *testing.T) {
	pitch := r2.Vec{X: 0.055, Y: 0.055}
	_, err := NewDetectorModel("m", [2]int{0, 1}, pitch, pitch, 0.3)
	assert.Error(t, err)
	_, err = NewDetectorModel("m", [2]int{1, 1}, pitch, r2.Vec{X: 0.06, Y: 0.01}, 0.3)
	assert.ErrorContains(t, err, "larger than the pixel size")
	_, err = NewDetectorModel("m", [2]int{1, 1}, pitch, pitch, 0)
	assert.Error(t, err)
}

func TestModelFromConfig(t *testing.T) {
	cfg := config.New("pad55", "")
	cfg.Set("number_of_pixels", "4, 2")
	cfg.Set("pixel_size", "55um 55um")
	cfg.Set("sensor_thickness", "300um")

	m, err := ModelFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, [2]int{4, 2}, m.NumberOfPixels())
	assert.Equal(t, m.PixelSize(), m.ImplantSize(), "implant defaults to the pixel size")

	cfg.Set("implant_size", "60um 20um")
	_, err = ModelFromConfig(cfg)
	var invalid *config.InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "implant_size", invalid.Key)

	bad := config.New("bad", "")
	bad.Set("number_of_pixels", "4")
	_, err = ModelFromConfig(bad)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "number_of_pixels", invalid.Key)
}

func TestDetector_Fields(t *testing.T) {
	m := pad55(t)
	d := NewDetector("dut", m, r3.Vec{X: 1, Y: 2, Z: 3})

	assert.Equal(t, r3.Vec{X: 0.5, Y: 0, Z: -3}, d.ToLocal(r3.Vec{X: 1.5, Y: 2}))
	assert.Equal(t, r3.Vec{X: 1.5, Y: 2, Z: 3}, d.ToGlobal(r3.Vec{X: 0.5}))

	_, err := d.ElectricField(r3.Vec{})
	assert.True(t, errors.Is(err, ErrNoField))
	_, err = d.WeightingPotential(r3.Vec{}, Pixel{})
	assert.True(t, errors.Is(err, ErrNoField))

	// Record the position each lookup receives.
	var seen r3.Vec
	probe, err := field.NewFunction(func(pos r3.Vec) float64 { seen = pos; return 1 }, m.ThicknessDomain(), field.TypeCustom, field.BoundaryError)
	require.NoError(t, err)
	require.NoError(t, d.SetWeightingPotential(probe))

	_, err = d.WeightingPotential(r3.Vec{X: 0.06, Y: 0.01, Z: 0.1}, Pixel{X: 1, Y: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.005, seen.X, 1e-12)
	assert.InDelta(t, 0.01, seen.Y, 1e-12)
	assert.Equal(t, 0.1, seen.Z)

	efield, err := field.NewFunction(func(pos r3.Vec) r3.Vec { return r3.Vec{X: pos.X, Z: -1} }, m.ThicknessDomain(), field.TypeLinear, field.BoundaryError)
	require.NoError(t, err)
	require.NoError(t, d.SetElectricField(efield))
	assert.Equal(t, field.TypeLinear, d.ElectricFieldType())

	e, err := d.ElectricField(r3.Vec{X: 0.115, Z: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.005, e.X, 1e-12, "lookup is relative to the nearest pixel centre")

	d.Freeze()
	assert.True(t, errors.Is(d.SetElectricField(efield), ErrFrozen))
	assert.True(t, errors.Is(d.SetWeightingPotential(probe), ErrFrozen))
}

func TestBuild(t *testing.T) {
	ctx, _ := testutil.Context(t)

	model := config.NewModel()
	pad := config.New("pad55", "")
	pad.Set("number_of_pixels", "4 4")
	pad.Set("pixel_size", "55um 55um")
	pad.Set("sensor_thickness", "300um")
	model.Models = append(model.Models, pad)

	dut := config.New("dut", "")
	dut.Set("type", "pad55")
	dut.Set("position", "0 0 10mm")
	ref := config.New("ref", "")
	ref.Set("type", "pad55")
	model.Detectors = append(model.Detectors, dut, ref)

	detectors, err := Build(ctx, model)
	require.NoError(t, err)
	require.Len(t, detectors, 2)
	assert.Equal(t, "dut", detectors[0].Name())
	assert.Equal(t, r3.Vec{Z: 10}, detectors[0].Position())
	assert.Same(t, detectors[0].Model(), detectors[1].Model())

	found, ok := Find(detectors, "ref")
	require.True(t, ok)
	assert.Same(t, detectors[1], found)

	orphan := config.New("orphan", "")
	orphan.Set("type", "missing")
	model.Detectors = append(model.Detectors, orphan)
	_, err = Build(ctx, model)
	var invalid *config.InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "type", invalid.Key)
}
