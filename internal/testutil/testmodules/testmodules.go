// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package testmodules provides small modules that exercise the message bus
// and the executor in tests.
package testmodules

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/registry"
)

// Hit is produced by TestProducer and relayed by TestRelay.
type Hit struct {
	Event uint64
}

// Signal is produced by TestRelay and consumed by TestConsumer.
type Signal struct {
	Event    uint64
	Detector string
}

// Recorder collects the lifecycle calls of the test modules, e.g.
// "init TestProducer" or "run TestRelay:dut 2".
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Add appends a call.
func (r *Recorder) Add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// TestModules registers TestProducer (global), TestRelay and TestConsumer
// (per detector). Every module understands these keys:
//
//	fail_in    phase that returns an error: "init", "run" or "finalize"
//	fail_event event at which "run" fails (default 1)
//	panic_in   phase that panics instead
//
// TestProducer also reads dispatch_every (default 1) and only dispatches in
// events that are a multiple of it. TestConsumer reads unique (default false).
type TestModules struct {
	Recorder *Recorder
}

// Register implements registry.Module.
func (m TestModules) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: "TestProducer", Scope: module.Global, New: m.newProducer})
	r.RegisterModule(registry.Definition{Name: "TestRelay", Scope: module.PerDetector, New: m.newRelay})
	r.RegisterModule(registry.Definition{Name: "TestConsumer", Scope: module.PerDetector, New: m.newConsumer})
}

type faults struct {
	failIn    string
	failEvent uint64
	panicIn   string
}

func readFaults(cfg *config.Configuration) (faults, error) {
	var f faults
	var err error
	phases := config.OneOf("", "init", "run", "finalize")
	if f.failIn, err = config.GetCheckedOr(cfg, "fail_in", "", phases); err != nil {
		return f, err
	}
	if f.failEvent, err = config.GetOr[uint64](cfg, "fail_event", 1); err != nil {
		return f, err
	}
	if f.panicIn, err = config.GetCheckedOr(cfg, "panic_in", "", phases); err != nil {
		return f, err
	}
	return f, nil
}

func (f faults) check(name, phase string, event uint64) error {
	if phase == "run" && event != f.failEvent {
		return nil
	}
	if f.panicIn == phase {
		panic(fmt.Sprintf("%s panicked in %s", name, phase))
	}
	if f.failIn == phase {
		return fmt.Errorf("%s failed in %s", name, phase)
	}
	return nil
}

// lifecycle records calls and injects faults for the test modules.
type lifecycle struct {
	module.Base
	rec    *Recorder
	faults faults
}

func newLifecycle(env module.Environment, rec *Recorder) (lifecycle, error) {
	f, err := readFaults(env.Config)
	if err != nil {
		return lifecycle{}, err
	}
	return lifecycle{Base: module.NewBase(env), rec: rec, faults: f}, nil
}

func (l *lifecycle) Init(context.Context) error {
	l.rec.Add("init %s", l.ModuleName())
	return l.faults.check(l.ModuleName(), "init", 0)
}

func (l *lifecycle) Finalize(context.Context) error {
	l.rec.Add("finalize %s", l.ModuleName())
	return l.faults.check(l.ModuleName(), "finalize", 0)
}

func (l *lifecycle) run(event uint64) error {
	l.rec.Add("run %s %d", l.ModuleName(), event)
	return l.faults.check(l.ModuleName(), "run", event)
}

type producer struct {
	lifecycle
	every uint64
	hits  *messenger.Publisher[Hit]
}

func (m TestModules) newProducer(env module.Environment) (module.Module, error) {
	lc, err := newLifecycle(env, m.Recorder)
	if err != nil {
		return nil, err
	}
	every, err := config.GetCheckedOr[uint64](env.Config, "dispatch_every", 1, func(v uint64) error {
		if v == 0 {
			return fmt.Errorf("must be at least 1")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p := &producer{lifecycle: lc, every: every}
	if p.hits, err = messenger.Declare[Hit](env.Messenger, &p.Base); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *producer) Run(ctx context.Context, event uint64) error {
	if err := p.run(event); err != nil {
		return err
	}
	if event%p.every != 0 {
		return nil
	}
	return p.hits.Dispatch(ctx, []Hit{{Event: event}})
}

type relay struct {
	lifecycle
	hits    *messenger.Slot[Hit]
	signals *messenger.Publisher[Signal]
}

func (m TestModules) newRelay(env module.Environment) (module.Module, error) {
	lc, err := newLifecycle(env, m.Recorder)
	if err != nil {
		return nil, err
	}
	r := &relay{lifecycle: lc}
	if r.hits, err = messenger.Bind[Hit](env.Messenger, &r.Base, messenger.Required()); err != nil {
		return nil, err
	}
	if r.signals, err = messenger.Declare[Signal](env.Messenger, &r.Base); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *relay) Run(ctx context.Context, event uint64) error {
	if err := r.run(event); err != nil {
		return err
	}
	msg, _ := r.hits.Get()
	out := make([]Signal, 0, msg.Len())
	for _, h := range msg.Objects() {
		out = append(out, Signal{Event: h.Event, Detector: r.DetectorName()})
	}
	return r.signals.Dispatch(ctx, out)
}

type consumer struct {
	lifecycle
	signals *messenger.Multi[Signal]
}

func (m TestModules) newConsumer(env module.Environment) (module.Module, error) {
	lc, err := newLifecycle(env, m.Recorder)
	if err != nil {
		return nil, err
	}
	unique, err := config.GetOr(env.Config, "unique", false)
	if err != nil {
		return nil, err
	}
	opts := []messenger.Option{messenger.Required()}
	if unique {
		opts = append(opts, messenger.Unique())
	}

	c := &consumer{lifecycle: lc}
	if c.signals, err = messenger.BindMulti[Signal](env.Messenger, &c.Base, opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *consumer) Run(_ context.Context, event uint64) error {
	if err := c.run(event); err != nil {
		return err
	}
	for _, msg := range c.signals.All() {
		c.rec.Add("received %s %s", c.ModuleName(), msg.Producer())
	}
	return nil
}
