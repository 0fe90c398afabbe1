// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/executor"
	"github.com/vk/pixsimgo/internal/field"
	"github.com/vk/pixsimgo/internal/geometry"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/output"
	"github.com/vk/pixsimgo/internal/telemetry"
)

// framework is the parsed framework section.
type framework struct {
	events    uint64
	seed      uint64
	outputDir string
}

func readFramework(cfg *config.Configuration) (framework, error) {
	var fw framework
	var err error
	if fw.events, err = config.GetOr[uint64](cfg, "number_of_events", 1); err != nil {
		return fw, err
	}
	if cfg.Has("random_seed") {
		if fw.seed, err = config.Get[uint64](cfg, "random_seed"); err != nil {
			return fw, err
		}
	} else {
		fw.seed = rand.Uint64()
	}
	if fw.outputDir, err = cfg.GetPathOr("output_directory", "output", false); err != nil {
		return fw, err
	}
	return fw, nil
}

// Run executes the simulation described by the loaded steering model.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx = ctxlog.WithLogger(ctx, a.logger.With("run_id", runID))
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.")

	shutdown, err := telemetry.Setup(ctx, a.config.OtelEndpoint, runID)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Tracing shutdown failed.", "error", err)
		}
	}()

	fw, err := readFramework(a.model.Framework)
	if err != nil {
		return err
	}
	logger.Info("🔧 Framework configured.", "events", fw.events, "seed", fw.seed, "output", fw.outputDir)

	detectors, err := geometry.Build(ctx, a.model)
	if err != nil {
		return fmt.Errorf("failed to build geometry: %w", err)
	}
	logger.Info("📐 Geometry built.", "detectors", len(detectors))

	bus := messenger.New()
	instances, err := executor.Instantiate(ctx, a.registry, a.model.Modules, executor.Shared{
		Messenger: bus,
		Detectors: detectors,
		Fields:    field.NewCache(),
		Output:    output.New(fw.outputDir),
		Seed:      fw.seed,
		RunID:     runID,
	})
	if err != nil {
		return fmt.Errorf("failed to instantiate modules: %w", err)
	}

	plan, err := executor.BuildPlan(ctx, instances, bus)
	if err != nil {
		return fmt.Errorf("failed to resolve module dependencies: %w", err)
	}

	if unused := a.model.Framework.Unused(); len(unused) > 0 {
		logger.Warn("⚠️ Configuration keys were never read.", "section", config.FrameworkSection, "keys", unused)
	}

	if len(instances) == 0 {
		logger.Warn("No modules configured, nothing to simulate.")
		return nil
	}

	if err := executor.New(plan, bus, detectors).Run(ctx, fw.events); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	logger.Info("🏁 Simulation finished.", "events", fw.events)
	return nil
}
