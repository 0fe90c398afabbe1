// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package deposition provides DepositionPointCharge, which deposits a fixed
// amount of charge at one point of a detector in every event.
package deposition

import (
	"context"
	"errors"
	"math"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/objects"
	"github.com/vk/pixsimgo/internal/registry"
	"github.com/vk/pixsimgo/internal/units"
	"gonum.org/v1/gonum/spatial/r3"
)

// Name is the module type name used in steering files.
const Name = "DepositionPointCharge"

// defaultCreationEnergy is the mean energy needed to create one
// electron-hole pair in silicon.
const defaultCreationEnergy = 3.64e-6

// maxSmearAttempts bounds the redraws of a smeared point that fell outside
// the sensor before the nominal position is used.
const maxSmearAttempts = 100

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: Name, Scope: module.PerDetector, New: New})
}

// Deposition is one DepositionPointCharge instance.
type Deposition struct {
	module.Base

	position       r3.Vec
	pairs          uint64
	creationEnergy float64
	spotSize       float64

	deposits *messenger.Publisher[objects.EnergyDeposit]
	charges  *messenger.Publisher[objects.DepositedCharge]
}

// New reads the configuration and declares the module's outputs.
//
//	position               local point of the deposit (required)
//	number_of_charges      electron-hole pairs per event (default 1)
//	energy                 deposited energy, alternative to number_of_charges
//	charge_creation_energy energy per pair (default 3.64eV)
//	spot_size              gaussian width of the deposit point (default 0)
func New(env module.Environment) (module.Module, error) {
	cfg := env.Config
	d := &Deposition{Base: module.NewBase(env)}

	var err error
	if d.position, err = config.Get[r3.Vec](cfg, "position"); err != nil {
		return nil, err
	}
	if !env.Detector.Model().IsWithinSensor(d.position) {
		return nil, config.NewInvalidValueError(cfg, "position", "outside the sensor of detector "+env.Detector.Name())
	}

	if d.creationEnergy, err = config.GetCheckedOr(cfg, "charge_creation_energy", defaultCreationEnergy, config.Positive); err != nil {
		return nil, err
	}
	if d.pairs, err = readPairs(cfg, d.creationEnergy); err != nil {
		return nil, err
	}

	if d.spotSize, err = config.GetCheckedOr(cfg, "spot_size", 0.0, func(v float64) error {
		if v < 0 {
			return errors.New("must not be negative")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if d.deposits, err = messenger.Declare[objects.EnergyDeposit](env.Messenger, &d.Base); err != nil {
		return nil, err
	}
	if d.charges, err = messenger.Declare[objects.DepositedCharge](env.Messenger, &d.Base); err != nil {
		return nil, err
	}
	return d, nil
}

func readPairs(cfg *config.Configuration, creationEnergy float64) (uint64, error) {
	if cfg.Count("number_of_charges", "energy") > 1 {
		return 0, config.NewInvalidValueError(cfg, "energy", "cannot be combined with number_of_charges")
	}
	if cfg.Has("energy") {
		energy, err := config.GetChecked(cfg, "energy", config.Positive)
		if err != nil {
			return 0, err
		}
		pairs := math.Round(energy / creationEnergy)
		if pairs < 1 {
			return 0, config.NewInvalidValueError(cfg, "energy", "deposits less than one electron-hole pair")
		}
		return uint64(pairs), nil
	}
	pairs, err := config.GetOr[uint64](cfg, "number_of_charges", 1)
	if err != nil {
		return 0, err
	}
	if pairs == 0 {
		return 0, config.NewInvalidValueError(cfg, "number_of_charges", "must be at least 1")
	}
	return pairs, nil
}

// Init logs the deposit settings.
func (d *Deposition) Init(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Point deposit configured.",
		"position", d.position,
		"pairs", d.pairs,
		"energy", units.DisplayBest(float64(d.pairs)*d.creationEnergy, "keV", "MeV"),
	)
	return nil
}

// Run dispatches one energy deposit and the matching electron and hole
// charges.
func (d *Deposition) Run(ctx context.Context, event uint64) error {
	local := d.position
	if d.spotSize > 0 {
		local = d.smear()
	}
	global := d.Detector().ToGlobal(local)

	ctxlog.FromContext(ctx).Debug("Depositing charge.", "local", local, "pairs", d.pairs)

	deposit := objects.EnergyDeposit{
		LocalPosition:  local,
		GlobalPosition: global,
		Energy:         float64(d.pairs) * d.creationEnergy,
	}
	if err := d.deposits.Dispatch(ctx, []objects.EnergyDeposit{deposit}); err != nil {
		return err
	}

	charges := make([]objects.DepositedCharge, 0, 2)
	for _, carrier := range []objects.Carrier{objects.Electron, objects.Hole} {
		charges = append(charges, objects.DepositedCharge{
			LocalPosition:  local,
			GlobalPosition: global,
			Carrier:        carrier,
			Charge:         uint(d.pairs),
		})
	}
	return d.charges.Dispatch(ctx, charges)
}

// smear draws a point around the nominal position that lies inside the
// sensor.
func (d *Deposition) smear() r3.Vec {
	model := d.Detector().Model()
	for range maxSmearAttempts {
		p := r3.Vec{
			X: d.position.X + d.Gauss(d.spotSize),
			Y: d.position.Y + d.Gauss(d.spotSize),
			Z: d.position.Z + d.Gauss(d.spotSize),
		}
		if model.IsWithinSensor(p) {
			return p
		}
	}
	return d.position
}
