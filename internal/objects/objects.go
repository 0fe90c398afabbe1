// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package objects defines the simulation data products passed between
// modules on the message bus. Positions are in detector local coordinates
// unless the field name says otherwise.
package objects

import (
	"github.com/vk/pixsimgo/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Carrier is the type of a charge carrier.
type Carrier int

const (
	Electron Carrier = -1
	Hole     Carrier = 1
)

// Sign returns the sign of the carrier's charge.
func (c Carrier) Sign() float64 { return float64(c) }

func (c Carrier) String() string {
	if c == Electron {
		return "electron"
	}
	return "hole"
}

// EnergyDeposit is energy left in the sensor at a point.
type EnergyDeposit struct {
	LocalPosition  r3.Vec  `json:"local_position"`
	GlobalPosition r3.Vec  `json:"global_position"`
	Energy         float64 `json:"energy"`
}

// DepositedCharge is a set of carriers of one type created at a point.
type DepositedCharge struct {
	LocalPosition  r3.Vec  `json:"local_position"`
	GlobalPosition r3.Vec  `json:"global_position"`
	Carrier        Carrier `json:"carrier"`
	Charge         uint    `json:"charge"`
}

// PropagatedCharge is a set of carriers after transport to the implant
// side.
type PropagatedCharge struct {
	LocalPosition r3.Vec           `json:"local_position"`
	Carrier       Carrier          `json:"carrier"`
	Charge        uint             `json:"charge"`
	DriftTime     float64          `json:"drift_time"`
	Deposit       *DepositedCharge `json:"-"`
}

// PixelCharge is the charge induced on one pixel during an event.
type PixelCharge struct {
	Pixel      geometry.Pixel      `json:"pixel"`
	Charge     float64             `json:"charge"`
	Propagated []*PropagatedCharge `json:"-"`
}
