package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/geometry"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/registry"
	"github.com/vk/pixsimgo/internal/testutil"
	"github.com/vk/pixsimgo/internal/testutil/testmodules"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

type fixture struct {
	ctx       context.Context
	logs      *testutil.SafeBuffer
	rec       *testmodules.Recorder
	reg       *registry.Registry
	bus       *messenger.Messenger
	detectors []*geometry.Detector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, logs := testutil.Context(t)
	rec := &testmodules.Recorder{}
	reg := registry.New()
	testmodules.TestModules{Recorder: rec}.Register(reg)
	reg.RegisterModule(registry.Definition{Name: "TestLoop", Scope: module.PerDetector, New: newLoop})

	pitch := r2.Vec{X: 0.055, Y: 0.055}
	pad, err := geometry.NewDetectorModel("pad", [2]int{4, 4}, pitch, pitch, 0.3)
	require.NoError(t, err)
	strip, err := geometry.NewDetectorModel("strip", [2]int{8, 1}, pitch, pitch, 0.2)
	require.NoError(t, err)

	return &fixture{
		ctx:  ctx,
		logs: logs,
		rec:  rec,
		reg:  reg,
		bus:  messenger.New(),
		detectors: []*geometry.Detector{
			geometry.NewDetector("dut", pad, r3.Vec{}),
			geometry.NewDetector("ref", strip, r3.Vec{Z: 10}),
		},
	}
}

func (f *fixture) instantiate(sections ...*config.Configuration) ([]*Instance, error) {
	return Instantiate(f.ctx, f.reg, sections, Shared{
		Messenger: f.bus,
		Detectors: f.detectors,
		Seed:      100,
		RunID:     "test-run",
	})
}

func (f *fixture) plan(t *testing.T, sections ...*config.Configuration) *Plan {
	t.Helper()
	instances, err := f.instantiate(sections...)
	require.NoError(t, err)
	plan, err := BuildPlan(f.ctx, instances, f.bus)
	require.NoError(t, err)
	return plan
}

func section(name string, kv ...string) *config.Configuration {
	c := config.New(name, "main.hcl")
	for i := 0; i+1 < len(kv); i += 2 {
		c.Set(kv[i], kv[i+1])
	}
	return c
}

func names(instances []*Instance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.Name()
	}
	return out
}

// loop consumes Signal and produces Hit, closing a cycle with TestRelay.
type loop struct {
	module.Base
	hits *messenger.Publisher[testmodules.Hit]
}

func newLoop(env module.Environment) (module.Module, error) {
	l := &loop{Base: module.NewBase(env)}
	if _, err := messenger.Bind[testmodules.Signal](env.Messenger, &l.Base); err != nil {
		return nil, err
	}
	var err error
	if l.hits, err = messenger.Declare[testmodules.Hit](env.Messenger, &l.Base); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *loop) Run(context.Context, uint64) error { return nil }

func TestInstantiate_Selection(t *testing.T) {
	f := newFixture(t)

	instances, err := f.instantiate(
		section("TestProducer"),
		section("TestRelay"),
		section("TestRelay", "name", "dut"),
		section("TestConsumer", "type", "strip"),
	)
	require.NoError(t, err)

	// The named TestRelay:dut replaces the one selected implicitly.
	assert.Equal(t, []string{"TestProducer", "TestRelay:ref", "TestRelay:dut", "TestConsumer:ref"}, names(instances))

	dut := instances[2]
	assert.Equal(t, "dut", dut.Detector.Name())
	assert.Equal(t, module.PerDetector, dut.Scope)
	assert.Equal(t, "TestRelay:dut", dut.Config.Name())
	assert.True(t, dut.Config.Frozen())
	assert.Empty(t, dut.Config.Unused(), "framework keys are marked as read")
	assert.Equal(t, Constructed, dut.State())

	assert.Nil(t, instances[0].Detector)
	assert.Equal(t, uint64(100), instances[0].Module.(interface{ Seed() uint64 }).Seed())
	assert.Equal(t, uint64(103), instances[3].Module.(interface{ Seed() uint64 }).Seed())
}

func TestInstantiate_InputOutputNames(t *testing.T) {
	f := newFixture(t)

	instances, err := f.instantiate(
		section("TestRelay", "name", "dut", "output", "a"),
		section("TestRelay", "name", "dut", "output", "b"),
		section("TestConsumer", "name", "dut", "input", "b"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"TestRelay:dut[->a]", "TestRelay:dut[->b]", "TestConsumer:dut[b->]"}, names(instances))
}

func TestInstantiate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		sections []*config.Configuration
		contains string
	}{
		{"unknown type", []*config.Configuration{section("Nope")}, "unknown module type 'Nope'"},
		{"global with name", []*config.Configuration{section("TestProducer", "name", "dut")}, "not allowed for a global module"},
		{"unknown detector", []*config.Configuration{section("TestRelay", "name", "tel0")}, "no detector named 'tel0'"},
		{"duplicate", []*config.Configuration{section("TestRelay"), section("TestRelay")}, "defined more than once"},
		{"duplicate global", []*config.Configuration{section("TestProducer"), section("TestProducer")}, "TestProducer is defined more than once"},
		{"constructor error", []*config.Configuration{section("TestProducer", "fail_in", "always")}, "must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.instantiate(tt.sections...)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.contains)
		})
	}
}

func TestInstantiate_ConstructorErrorIsModuleError(t *testing.T) {
	f := newFixture(t)
	_, err := f.instantiate(section("TestProducer", "dispatch_every", "0"))

	var modErr *ModuleError
	require.True(t, errors.As(err, &modErr), "got %v", err)
	assert.Equal(t, "TestProducer", modErr.Module)
	assert.Equal(t, PhaseConstruct, modErr.Phase)

	var invalid *config.InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "dispatch_every", invalid.Key)
}

func TestBuildPlan_OrdersProducersFirst(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestConsumer", "name", "dut"),
		section("TestRelay", "name", "dut"),
		section("TestProducer"),
	)

	assert.Equal(t, []string{"TestProducer", "TestRelay:dut", "TestConsumer:dut"}, names(plan.Order()))
	deps, err := plan.Dependencies("TestConsumer:dut")
	require.NoError(t, err)
	assert.Equal(t, []string{"TestRelay:dut"}, deps)
	assert.True(t, f.bus.Sealed())
	assert.Contains(t, f.logs.String(), "Execution plan resolved")
}

func TestBuildPlan_UnresolvedDependency(t *testing.T) {
	f := newFixture(t)
	instances, err := f.instantiate(section("TestConsumer", "name", "dut"))
	require.NoError(t, err)

	_, err = BuildPlan(f.ctx, instances, f.bus)
	var unresolved *UnresolvedDependencyError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Equal(t, "TestConsumer:dut", unresolved.Module)
	assert.Equal(t, "Signal", unresolved.Type)
	assert.Equal(t, "dut", unresolved.Detector)
	assert.Empty(t, f.rec.Calls(), "no module may run before the plan is valid")
}

func TestBuildPlan_DetectorRouting(t *testing.T) {
	f := newFixture(t)
	instances, err := f.instantiate(
		section("TestProducer"),
		section("TestRelay", "name", "ref"),
		section("TestConsumer", "name", "dut"),
	)
	require.NoError(t, err)

	// TestRelay:ref publishes for ref only, so dut has no Signal producer.
	_, err = BuildPlan(f.ctx, instances, f.bus)
	var unresolved *UnresolvedDependencyError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Equal(t, "TestConsumer:dut", unresolved.Module)
}

func TestBuildPlan_MultipleProducers(t *testing.T) {
	f := newFixture(t)
	instances, err := f.instantiate(
		section("TestProducer"),
		section("TestRelay", "name", "dut", "output", "a"),
		section("TestRelay", "name", "dut", "output", "b"),
		section("TestConsumer", "name", "dut", "input", "*", "unique", "true"),
	)
	require.NoError(t, err)

	_, err = BuildPlan(f.ctx, instances, f.bus)
	var multiple *MultipleProducersError
	require.True(t, errors.As(err, &multiple), "got %v", err)
	assert.Equal(t, "TestConsumer:dut[*->]", multiple.Module)
	assert.Equal(t, []string{"TestRelay:dut[->a]", "TestRelay:dut[->b]"}, multiple.Producers)
}

func TestBuildPlan_SingleSlotMultipleProducers(t *testing.T) {
	f := newFixture(t)
	instances, err := f.instantiate(
		section("TestProducer", "output", "a"),
		section("TestProducer", "output", "b"),
		section("TestRelay", "name", "dut", "input", "*"),
	)
	require.NoError(t, err)

	_, err = BuildPlan(f.ctx, instances, f.bus)
	var multiple *MultipleProducersError
	require.True(t, errors.As(err, &multiple), "got %v", err)
	assert.Equal(t, "TestRelay:dut[*->]", multiple.Module)
	assert.Equal(t, "Hit", multiple.Type)
	assert.Equal(t, []string{"TestProducer[->a]", "TestProducer[->b]"}, multiple.Producers)
	assert.Empty(t, f.rec.Calls())
}

func TestBuildPlan_Cycle(t *testing.T) {
	f := newFixture(t)
	instances, err := f.instantiate(
		section("TestRelay", "name", "dut"),
		section("TestLoop", "name", "dut"),
	)
	require.NoError(t, err)

	_, err = BuildPlan(f.ctx, instances, f.bus)
	var cycle *CyclicDependencyError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	assert.Equal(t, []string{"TestRelay:dut", "TestLoop:dut", "TestRelay:dut"}, cycle.Path)
	assert.False(t, f.bus.Sealed())
}

func TestExecutor_Run(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestProducer"),
		section("TestRelay", "name", "dut"),
		section("TestConsumer", "name", "dut"),
	)

	require.NoError(t, New(plan, f.bus, f.detectors).Run(f.ctx, 2))

	assert.Equal(t, []string{
		"init TestProducer",
		"init TestRelay:dut",
		"init TestConsumer:dut",
		"run TestProducer 1",
		"run TestRelay:dut 1",
		"run TestConsumer:dut 1",
		"received TestConsumer:dut TestRelay:dut",
		"run TestProducer 2",
		"run TestRelay:dut 2",
		"run TestConsumer:dut 2",
		"received TestConsumer:dut TestRelay:dut",
		"finalize TestConsumer:dut",
		"finalize TestRelay:dut",
		"finalize TestProducer",
	}, f.rec.Calls())

	for _, inst := range plan.Order() {
		assert.Equal(t, Finalized, inst.State(), inst.Name())
		assert.Equal(t, uint64(2), inst.Stats().Events, inst.Name())
	}
	assert.Equal(t, uint64(4), f.bus.Dispatched())

	err := f.detectors[0].SetElectricField(nil)
	assert.ErrorIs(t, err, geometry.ErrFrozen, "detectors are frozen after init")
	assert.Contains(t, f.logs.String(), "Module timing")
}

func TestExecutor_NamedRouting(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestProducer"),
		section("TestRelay", "name", "dut", "output", "a"),
		section("TestRelay", "name", "dut", "output", "b"),
		section("TestConsumer", "name", "dut", "input", "b"),
	)

	require.NoError(t, New(plan, f.bus, f.detectors).Run(f.ctx, 1))
	assert.Contains(t, f.rec.Calls(), "received TestConsumer:dut[b->] TestRelay:dut[->b]")
	assert.NotContains(t, f.rec.Calls(), "received TestConsumer:dut[b->] TestRelay:dut[->a]")
}

func TestExecutor_SkipsUnsatisfiedModules(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestProducer", "dispatch_every", "2"),
		section("TestRelay", "name", "dut"),
	)

	require.NoError(t, New(plan, f.bus, f.detectors).Run(f.ctx, 2))

	relay := plan.Order()[1]
	assert.Equal(t, uint64(1), relay.Stats().Skipped)
	assert.Equal(t, uint64(1), relay.Stats().Events)
	assert.NotContains(t, f.rec.Calls(), "run TestRelay:dut 1")
	assert.Contains(t, f.rec.Calls(), "run TestRelay:dut 2")
}

func TestExecutor_RunFailureFinalizes(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestProducer", "fail_in", "run", "fail_event", "2"),
		section("TestRelay", "name", "dut"),
	)

	err := New(plan, f.bus, f.detectors).Run(f.ctx, 3)

	var modErr *ModuleError
	require.True(t, errors.As(err, &modErr), "got %v", err)
	assert.Equal(t, "TestProducer", modErr.Module)
	assert.Equal(t, PhaseRun, modErr.Phase)
	assert.Equal(t, uint64(2), modErr.Event)
	assert.ErrorContains(t, err, "module TestProducer failed in event 2")

	calls := f.rec.Calls()
	assert.NotContains(t, calls, "run TestRelay:dut 2")
	assert.NotContains(t, calls, "run TestProducer 3")
	assert.Equal(t, []string{"finalize TestRelay:dut", "finalize TestProducer"}, calls[len(calls)-2:])
}

func TestExecutor_InitPanic(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestProducer"),
		section("TestRelay", "name", "dut", "panic_in", "init"),
	)

	err := New(plan, f.bus, f.detectors).Run(f.ctx, 1)

	var modErr *ModuleError
	require.True(t, errors.As(err, &modErr), "got %v", err)
	assert.Equal(t, "TestRelay:dut", modErr.Module)
	assert.Equal(t, PhaseInit, modErr.Phase)
	assert.ErrorContains(t, err, "panic: TestRelay:dut panicked in init")

	assert.Equal(t, []string{
		"init TestProducer",
		"init TestRelay:dut",
		"finalize TestProducer",
	}, f.rec.Calls())
	assert.Equal(t, Constructed, plan.Order()[1].State())
}

func TestExecutor_FinalizeErrorsAreJoined(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestProducer", "fail_in", "finalize"),
		section("TestRelay", "name", "dut", "fail_in", "finalize"),
	)

	err := New(plan, f.bus, f.detectors).Run(f.ctx, 1)
	assert.ErrorContains(t, err, "TestProducer failed in finalize")
	assert.ErrorContains(t, err, "TestRelay:dut failed in finalize")
	for _, inst := range plan.Order() {
		assert.Equal(t, Finalized, inst.State())
	}
}

func TestExecutor_StateMachine(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, section("TestProducer"))
	exec := New(plan, f.bus, f.detectors)

	require.NoError(t, exec.Init(f.ctx))
	var stateErr *StateError
	require.True(t, errors.As(exec.Init(f.ctx), &stateErr))
	assert.Equal(t, Initialized, stateErr.From)

	require.NoError(t, exec.RunEvent(f.ctx, 1))
	require.NoError(t, exec.Finalize(f.ctx))
	require.True(t, errors.As(exec.RunEvent(f.ctx, 2), &stateErr))
	assert.Equal(t, Finalized, stateErr.From)
	assert.Equal(t, Running, stateErr.To)
}

func TestExecutor_NoSubscribers(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, section("TestProducer"))

	require.NoError(t, New(plan, f.bus, f.detectors).Run(f.ctx, 3))
	assert.Equal(t, uint64(3), f.bus.Dispatched())
}

func TestExecutor_CancelledContext(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, section("TestProducer"))

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	err := New(plan, f.bus, f.detectors).Run(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"init TestProducer", "finalize TestProducer"}, f.rec.Calls())
}

func TestExecutor_WarnsAboutUnusedKeys(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, section("TestProducer", "colour", "blue"))

	require.NoError(t, New(plan, f.bus, f.detectors).Run(f.ctx, 1))
	logs := f.logs.String()
	assert.Contains(t, logs, "Configuration keys were never read")
	assert.Contains(t, logs, "colour")
}

func TestExecutor_Spans(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t,
		section("TestProducer", "fail_in", "run", "fail_event", "2"),
	)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	err := New(plan, f.bus, f.detectors, WithTracerProvider(tp)).Run(f.ctx, 2)
	require.Error(t, err)

	var events, failed int
	for _, span := range recorder.Ended() {
		if span.Name() == "event" {
			events++
		}
		if span.Name() == "TestProducer" && span.Status().Code == codes.Error {
			failed++
			assert.Contains(t, span.Attributes(), attribute.String("phase", "run"))
			assert.Contains(t, span.Attributes(), attribute.Int64("event", 2))
		}
	}
	assert.Equal(t, 2, events)
	assert.Equal(t, 1, failed)
}
