// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testmodules

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/field"
	"github.com/vk/pixsimgo/internal/geometry"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/output"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pitch, Implant and Thickness describe the sensor built by Detector.
var (
	Pitch     = r2.Vec{X: 0.055, Y: 0.055}
	Implant   = r2.Vec{X: 0.02, Y: 0.02}
	Thickness = 0.3
)

// Detector returns a detector with a 4x4 matrix of 55um pixels and a
// 300um thick sensor placed at the origin.
func Detector(t *testing.T, name string) *geometry.Detector {
	t.Helper()
	model, err := geometry.NewDetectorModel("pad", [2]int{4, 4}, Pitch, Implant, Thickness)
	require.NoError(t, err)
	return geometry.NewDetector(name, model, r3.Vec{})
}

// Env builds the environment of a single module instance of type typ bound
// to det (nil for a global instance). kv holds alternating configuration
// keys and values. Output goes below a temporary directory.
func Env(t *testing.T, typ string, det *geometry.Detector, bus *messenger.Messenger, kv ...string) module.Environment {
	t.Helper()
	require.Zero(t, len(kv)%2, "configuration needs key/value pairs")

	id := module.Identifier{Type: typ}
	var detectors []*geometry.Detector
	if det != nil {
		id.Detector = det.Name()
		detectors = append(detectors, det)
	}
	cfg := config.New(id.String(), "")
	for i := 0; i < len(kv); i += 2 {
		cfg.Set(kv[i], kv[i+1])
	}
	return module.Environment{
		ID:        id,
		Config:    cfg,
		Messenger: bus,
		Detector:  det,
		Detectors: detectors,
		Fields:    field.NewCache(),
		Output:    output.New(t.TempDir()),
		Seed:      42,
		RunID:     "test-run",
	}
}

// Source declares a publisher of T owned by a stand-in module bound to
// detector (empty for a global source).
func Source[T any](t *testing.T, bus *messenger.Messenger, detector string) *messenger.Publisher[T] {
	t.Helper()
	owner := module.NewBase(module.Environment{ID: module.Identifier{Type: "Source", Detector: detector}})
	pub, err := messenger.Declare[T](bus, &owner)
	require.NoError(t, err)
	return pub
}

// Sink subscribes a stand-in global module to every message of type T.
func Sink[T any](t *testing.T, bus *messenger.Messenger) *messenger.Multi[T] {
	t.Helper()
	owner := module.NewBase(module.Environment{ID: module.Identifier{Type: "Sink"}})
	multi, err := messenger.BindMulti[T](bus, &owner, messenger.IgnoreName())
	require.NoError(t, err)
	return multi
}

// Objects flattens the objects of every message received by a sink.
func Objects[T any](multi *messenger.Multi[T]) []T {
	var out []T
	for _, msg := range multi.All() {
		out = append(out, msg.Objects()...)
	}
	return out
}
