// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package transfer provides InducedTransfer, which turns propagated charge
// into the charge induced on the pixels around its arrival point. Following
// the Shockley-Ramo theorem, a carrier of charge q moving from a to b induces
// q * (phi_p(b) - phi_p(a)) on pixel p, where phi_p is that pixel's weighting
// potential.
package transfer

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/geometry"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/objects"
	"github.com/vk/pixsimgo/internal/output"
	"github.com/vk/pixsimgo/internal/registry"
)

// Name is the module type name used in steering files.
const Name = "InducedTransfer"

const histogramBins = 50

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: Name, Scope: module.PerDetector, New: New})
}

// Transfer is one InducedTransfer instance.
type Transfer struct {
	module.Base

	matrix [2]int
	plots  bool

	propagated *messenger.Multi[objects.PropagatedCharge]
	pixels     *messenger.Publisher[objects.PixelCharge]

	charges []float64
}

// New reads the configuration, subscribes to propagated charge and declares
// the pixel charge output.
//
//	induction_matrix odd pixel counts along x and y around the arrival pixel (default 3 3)
//	output_plots     histogram the pixel charges at the end (default false)
func New(env module.Environment) (module.Module, error) {
	cfg := env.Config
	t := &Transfer{Base: module.NewBase(env)}

	matrix, err := config.GetArrayOr(cfg, "induction_matrix", []int{3, 3})
	if err != nil {
		return nil, err
	}
	if len(matrix) != 2 {
		return nil, config.NewInvalidValueError(cfg, "induction_matrix", "expected two values")
	}
	for _, n := range matrix {
		if n <= 0 || n%2 == 0 {
			return nil, config.NewInvalidValueError(cfg, "induction_matrix", "sizes must be odd and positive")
		}
	}
	t.matrix = [2]int{matrix[0], matrix[1]}

	if t.plots, err = config.GetOr(cfg, "output_plots", false); err != nil {
		return nil, err
	}

	if t.propagated, err = messenger.BindMulti[objects.PropagatedCharge](env.Messenger, &t.Base, messenger.Required()); err != nil {
		return nil, err
	}
	if t.pixels, err = messenger.Declare[objects.PixelCharge](env.Messenger, &t.Base); err != nil {
		return nil, err
	}
	return t, nil
}

// Run sums the induced charge per pixel and dispatches one PixelCharge per
// pixel touched in the event, ordered by pixel index.
func (t *Transfer) Run(ctx context.Context, event uint64) error {
	det := t.Detector()
	model := det.Model()

	induced := make(map[geometry.Pixel]*objects.PixelCharge)
	for _, msg := range t.propagated.All() {
		propagated := msg.Objects()
		for i := range propagated {
			pc := &propagated[i]
			end := pc.LocalPosition
			start := end
			if pc.Deposit != nil {
				start = pc.Deposit.LocalPosition
			}
			q := float64(pc.Charge) * pc.Carrier.Sign()

			centre, _ := model.PixelIndex(end)
			for dx := -t.matrix[0] / 2; dx <= t.matrix[0]/2; dx++ {
				for dy := -t.matrix[1] / 2; dy <= t.matrix[1]/2; dy++ {
					pixel := geometry.Pixel{X: centre.X + dx, Y: centre.Y + dy}
					if !model.IsValidPixel(pixel) {
						continue
					}
					after, err := det.WeightingPotential(end, pixel)
					if err != nil {
						return fmt.Errorf("inducing on pixel %s: %w", pixel, err)
					}
					before, err := det.WeightingPotential(start, pixel)
					if err != nil {
						return fmt.Errorf("inducing on pixel %s: %w", pixel, err)
					}

					px, ok := induced[pixel]
					if !ok {
						px = &objects.PixelCharge{Pixel: pixel}
						induced[pixel] = px
					}
					px.Charge += q * (after - before)
					px.Propagated = append(px.Propagated, pc)
				}
			}
		}
	}

	out := make([]objects.PixelCharge, 0, len(induced))
	for _, px := range induced {
		out = append(out, *px)
		t.charges = append(t.charges, px.Charge)
	}
	slices.SortFunc(out, func(a, b objects.PixelCharge) int {
		return cmp.Or(cmp.Compare(a.Pixel.X, b.Pixel.X), cmp.Compare(a.Pixel.Y, b.Pixel.Y))
	})

	ctxlog.FromContext(ctx).Debug("Charge induced.", "pixels", len(out))
	return t.pixels.Dispatch(ctx, out)
}

// Finalize plots the distribution of pixel charges.
func (t *Transfer) Finalize(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Transfer summary.", "pixel_charges", len(t.charges))
	if !t.plots {
		return nil
	}

	hist, err := output.HistogramPlot(fmt.Sprintf("Induced pixel charge in %s", t.Detector().Name()), "q [e]", t.charges, histogramBins)
	if err != nil {
		return err
	}
	path, err := t.Output().SavePlot(t.ModuleName(), hist, "pixel_charge")
	if err != nil {
		return err
	}
	logger.Info("Pixel charge plot written.", "path", path)
	return nil
}
