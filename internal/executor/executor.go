// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/geometry"
	"github.com/vk/pixsimgo/internal/messenger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vk/pixsimgo/internal/executor"

// Executor drives the instances of a plan through their lifecycle.
type Executor struct {
	plan      *Plan
	bus       *messenger.Messenger
	detectors []*geometry.Detector
	tracer    trace.Tracer
}

// Option configures an Executor.
type Option func(*Executor)

// WithTracerProvider sets the provider used for event and module spans. The
// global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// New creates an executor for plan. The detectors are frozen after Init.
func New(plan *Plan, bus *messenger.Messenger, detectors []*geometry.Detector, opts ...Option) *Executor {
	e := &Executor{
		plan:      plan,
		bus:       bus,
		detectors: detectors,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run initializes every instance, runs events 1 to events, and finalizes.
// Instances that were initialized are finalized even when Init or an event
// fails; the returned error joins every failure. A cancelled context stops
// the loop between events.
func (e *Executor) Run(ctx context.Context, events uint64) error {
	logger := ctxlog.FromContext(ctx)

	if err := e.Init(ctx); err != nil {
		return errors.Join(err, e.Finalize(ctx))
	}

	logger.Info("🚀 Starting event loop.", "events", events)
	var runErr error
	for event := uint64(1); event <= events; event++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("🛑 Event loop interrupted.", "event", event, "error", err)
			runErr = fmt.Errorf("interrupted before event %d: %w", event, err)
			break
		}
		if err := e.RunEvent(ctx, event); err != nil {
			logger.Error("❌ Event failed.", "event", event, "error", err)
			runErr = err
			break
		}
	}
	if runErr == nil {
		logger.Info("🏁 Event loop finished.", "events", events, "messages", e.bus.Dispatched())
	}

	return errors.Join(runErr, e.Finalize(ctx))
}

// Init calls Init on every instance in plan order, freezes the detectors
// and warns about configuration keys no module read.
func (e *Executor) Init(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "init")
	defer span.End()
	logger := ctxlog.FromContext(ctx)

	for _, inst := range e.plan.order {
		if inst.state != Constructed {
			return &StateError{Module: inst.Name(), From: inst.state, To: Initialized}
		}
		start := time.Now()
		err := e.invoke(ctx, inst, PhaseInit, 0, inst.Module.Init)
		inst.stats.Init += time.Since(start)
		if err != nil {
			fail(span, err)
			return err
		}
		if err := inst.advance(Initialized); err != nil {
			return err
		}
		logger.Debug("Initialized module.", "module", inst.Name())
	}

	for _, det := range e.detectors {
		det.Freeze()
	}
	e.warnUnused(ctx)
	logger.Info("✅ Modules initialized.", "modules", len(e.plan.order))
	return nil
}

// RunEvent runs every instance once in plan order. Instances whose required
// inputs received nothing in this event are skipped. The first failure
// aborts the event.
func (e *Executor) RunEvent(ctx context.Context, event uint64) error {
	ctx, span := e.tracer.Start(ctx, "event", trace.WithAttributes(attribute.Int64("event", int64(event))))
	defer span.End()
	ctx = ctxlog.With(ctx, "event", event)
	logger := ctxlog.FromContext(ctx)

	e.bus.StartEvent()
	for _, inst := range e.plan.order {
		if err := inst.advance(Running); err != nil {
			return err
		}
		if !e.bus.Satisfied(inst) {
			logger.Debug("Skipping module with unsatisfied input.", "module", inst.Name())
			inst.stats.Skipped++
			continue
		}

		start := time.Now()
		err := e.invoke(ctx, inst, PhaseRun, event, func(ctx context.Context) error {
			return inst.Module.Run(ctx, event)
		})
		inst.stats.Run += time.Since(start)
		inst.stats.Events++
		if err != nil {
			fail(span, err)
			return err
		}
	}
	return nil
}

// Finalize calls Finalize in reverse plan order on every instance that was
// initialized, then logs the timing summary.
func (e *Executor) Finalize(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "finalize")
	defer span.End()

	var errs []error
	for _, inst := range slices.Backward(e.plan.order) {
		if inst.state != Initialized && inst.state != Running {
			continue
		}
		start := time.Now()
		err := e.invoke(ctx, inst, PhaseFinalize, 0, inst.Module.Finalize)
		inst.stats.Finalize += time.Since(start)
		if err != nil {
			fail(span, err)
			errs = append(errs, err)
		}
		if err := inst.advance(Finalized); err != nil {
			errs = append(errs, err)
		}
	}

	e.logSummary(ctx)
	return errors.Join(errs...)
}

// invoke calls fn inside a module span with a module-scoped logger. A panic
// in fn is turned into an error.
func (e *Executor) invoke(ctx context.Context, inst *Instance, phase Phase, event uint64, fn func(context.Context) error) (err error) {
	attrs := []attribute.KeyValue{
		attribute.String("module", inst.Name()),
		attribute.String("phase", phase.String()),
	}
	if phase == PhaseRun {
		attrs = append(attrs, attribute.Int64("event", int64(event)))
	}
	ctx, span := e.tracer.Start(ctx, inst.Name(), trace.WithAttributes(attrs...))
	defer span.End()
	ctx = ctxlog.With(ctx, "module", inst.Name())

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = &ModuleError{Module: inst.Name(), Phase: phase, Event: event, Err: err}
			fail(span, err)
		}
	}()
	return fn(ctx)
}

func (e *Executor) warnUnused(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for _, inst := range e.plan.order {
		if unused := inst.Config.Unused(); len(unused) > 0 {
			logger.Warn("⚠️ Configuration keys were never read.", "module", inst.Name(), "keys", unused)
		}
	}
}

func (e *Executor) logSummary(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for _, inst := range e.plan.order {
		s := inst.stats
		logger.Info("⏱️ Module timing.",
			"module", inst.Name(),
			"init", s.Init,
			"run", s.Run,
			"finalize", s.Finalize,
			"events", s.Events,
			"skipped", s.Skipped,
		)
	}
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
