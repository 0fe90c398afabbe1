// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package module

import (
	"context"
	"math/rand/v2"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/field"
	"github.com/vk/pixsimgo/internal/geometry"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/output"
	"gonum.org/v1/gonum/stat/distuv"
)

// Environment is everything the executor hands to a module constructor.
type Environment struct {
	ID        Identifier
	Config    *config.Configuration
	Messenger *messenger.Messenger
	// Detector is nil for global modules.
	Detector  *geometry.Detector
	Detectors []*geometry.Detector
	Fields    *field.Cache
	Output    *output.Container
	Seed      uint64
	RunID     string
}

// Base carries the environment of a module instance. Modules embed it to
// satisfy messenger.Owner and to get no-op Init and Finalize.
type Base struct {
	env  Environment
	rand *rand.Rand
}

// NewBase wraps env.
func NewBase(env Environment) Base {
	return Base{env: env}
}

func (b *Base) ID() Identifier { return b.env.ID }
func (b *Base) Config() *config.Configuration { return b.env.Config }
func (b *Base) Messenger() *messenger.Messenger { return b.env.Messenger }
func (b *Base) Detector() *geometry.Detector { return b.env.Detector }
func (b *Base) Detectors() []*geometry.Detector { return b.env.Detectors }
func (b *Base) Fields() *field.Cache { return b.env.Fields }
func (b *Base) Output() *output.Container { return b.env.Output }
func (b *Base) Seed() uint64 { return b.env.Seed }
func (b *Base) RunID() string { return b.env.RunID }

// ModuleName implements messenger.Owner.
func (b *Base) ModuleName() string { return b.env.ID.String() }

// DetectorName implements messenger.Owner.
func (b *Base) DetectorName() string { return b.env.ID.Detector }

// InputName implements messenger.Named.
func (b *Base) InputName() string { return b.env.ID.Input }

// OutputName implements messenger.Named.
func (b *Base) OutputName() string { return b.env.ID.Output }

// Rand returns the instance's random generator, seeded from Seed. The
// generator is also a rand.Source for gonum distributions.
func (b *Base) Rand() *rand.Rand {
	if b.rand == nil {
		b.rand = rand.New(rand.NewPCG(b.env.Seed, b.env.Seed^0x9e3779b97f4a7c15))
	}
	return b.rand
}

// Gauss draws from a normal distribution centred on zero with width sigma,
// using the instance's generator. A non-positive sigma yields zero.
func (b *Base) Gauss(sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: b.Rand()}.Rand()
}

// Init does nothing.
func (b *Base) Init(context.Context) error { return nil }

// Finalize does nothing.
func (b *Base) Finalize(context.Context) error { return nil }
