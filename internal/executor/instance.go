// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/field"
	"github.com/vk/pixsimgo/internal/geometry"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/output"
	"github.com/vk/pixsimgo/internal/registry"
)

// State is the lifecycle position of an instance.
type State int

const (
	Constructed State = iota
	Initialized
	Running
	Finalized
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// frameworkKeys are module section keys interpreted by the executor.
var frameworkKeys = []string{"name", "type", "input", "output"}

// Stats holds the accumulated cost of one instance.
type Stats struct {
	Init     time.Duration
	Run      time.Duration
	Finalize time.Duration
	Events   uint64
	Skipped  uint64
}

// Instance is a constructed module bound to its identifier, configuration
// and, for detector modules, its detector.
type Instance struct {
	ID       module.Identifier
	Module   module.Module
	Config   *config.Configuration
	Detector *geometry.Detector
	Scope    module.Scope

	state State
	stats Stats
}

// Name returns the unique instance name.
func (i *Instance) Name() string { return i.ID.String() }

// ModuleName implements messenger.Owner.
func (i *Instance) ModuleName() string { return i.ID.String() }

// DetectorName implements messenger.Owner.
func (i *Instance) DetectorName() string { return i.ID.Detector }

// State returns the current lifecycle state.
func (i *Instance) State() State { return i.state }

// Stats returns the accumulated timings.
func (i *Instance) Stats() Stats { return i.stats }

func (i *Instance) advance(to State) error {
	ok := false
	switch to {
	case Initialized:
		ok = i.state == Constructed
	case Running:
		ok = i.state == Initialized || i.state == Running
	case Finalized:
		ok = i.state == Initialized || i.state == Running
	}
	if !ok {
		return &StateError{Module: i.Name(), From: i.state, To: to}
	}
	i.state = to
	return nil
}

// Shared is the state handed to every instance of a run.
type Shared struct {
	Messenger *messenger.Messenger
	Detectors []*geometry.Detector
	Fields    *field.Cache
	Output    *output.Container
	// Seed is the framework seed; instance n is seeded with Seed+n.
	Seed  uint64
	RunID string
}

// Selection priorities. A detector selected by name beats one selected by
// type, which beats the implicit selection of every detector.
const (
	priorityAll = iota
	priorityType
	priorityName
)

type candidate struct {
	def      *registry.Definition
	section  *config.Configuration
	id       module.Identifier
	detector *geometry.Detector
	priority int
	dropped  bool
}

// Instantiate creates module instances for the given sections in steering
// order. Detector modules get one instance per selected detector; when the
// same instance is requested more than once, the most specific selection
// wins and equally specific duplicates are an error. Each instance receives
// a clone of its section, which is frozen once the constructor returns.
func Instantiate(ctx context.Context, reg *registry.Registry, sections []*config.Configuration, shared Shared) ([]*Instance, error) {
	logger := ctxlog.FromContext(ctx)

	var candidates []*candidate
	seen := make(map[string]*candidate)

	for _, section := range sections {
		def, ok := reg.Lookup(section.Name())
		if !ok {
			return nil, fmt.Errorf("unknown module type '%s' in %s", section.Name(), section.FilePath())
		}

		input, err := config.GetOr(section, "input", "")
		if err != nil {
			return nil, err
		}
		outputName, err := config.GetOr(section, "output", "")
		if err != nil {
			return nil, err
		}

		detectors, priority, err := selectDetectors(def, section, shared.Detectors)
		if err != nil {
			return nil, err
		}
		if def.Scope == module.PerDetector && len(detectors) == 0 {
			logger.Warn("⚠️ Module selects no detector and will not run.", "module", def.Name)
		}

		for _, det := range detectors {
			c := &candidate{def: def, section: section, priority: priority, detector: det}
			c.id = module.Identifier{Type: def.Name, Input: input, Output: outputName}
			if det != nil {
				c.id.Detector = det.Name()
			}

			key := c.id.String()
			if prev, exists := seen[key]; exists {
				switch {
				case prev.priority > c.priority:
					logger.Debug("Keeping more specific module instance.", "module", key)
					continue
				case prev.priority < c.priority:
					logger.Debug("Replacing less specific module instance.", "module", key)
					prev.dropped = true
				default:
					return nil, fmt.Errorf("module %s is defined more than once (%s)", key, section.FilePath())
				}
			}
			seen[key] = c
			candidates = append(candidates, c)
		}
	}

	var instances []*Instance
	for _, c := range candidates {
		if c.dropped {
			continue
		}
		cfg := c.section.Clone(c.id.String())
		cfg.MarkUsed(frameworkKeys...)
		env := module.Environment{
			ID:        c.id,
			Config:    cfg,
			Messenger: shared.Messenger,
			Detector:  c.detector,
			Detectors: shared.Detectors,
			Fields:    shared.Fields,
			Output:    shared.Output,
			Seed:      shared.Seed + uint64(len(instances)),
			RunID:     shared.RunID,
		}

		m, err := construct(c.def, env)
		if err != nil {
			return nil, &ModuleError{Module: c.id.String(), Phase: PhaseConstruct, Err: err}
		}
		cfg.Freeze()

		logger.Debug("Constructed module.", "module", c.id.String(), "seed", env.Seed)
		instances = append(instances, &Instance{
			ID:       c.id,
			Module:   m,
			Config:   cfg,
			Detector: c.detector,
			Scope:    c.def.Scope,
		})
	}
	return instances, nil
}

// selectDetectors returns the detectors a section applies to. Global modules
// yield a single nil detector.
func selectDetectors(def *registry.Definition, section *config.Configuration, all []*geometry.Detector) ([]*geometry.Detector, int, error) {
	if def.Scope == module.Global {
		for _, key := range []string{"name", "type"} {
			if section.Has(key) {
				return nil, 0, config.NewInvalidValueError(section, key, "not allowed for a global module")
			}
		}
		return []*geometry.Detector{nil}, priorityAll, nil
	}

	names, err := config.GetArrayOr[string](section, "name", nil)
	if err != nil {
		return nil, 0, err
	}
	if len(names) > 0 {
		out := make([]*geometry.Detector, 0, len(names))
		for _, name := range names {
			det, ok := geometry.Find(all, name)
			if !ok {
				return nil, 0, config.NewInvalidValueError(section, "name", fmt.Sprintf("no detector named '%s'", name))
			}
			out = append(out, det)
		}
		return out, priorityName, nil
	}

	types, err := config.GetArrayOr[string](section, "type", nil)
	if err != nil {
		return nil, 0, err
	}
	if len(types) > 0 {
		var out []*geometry.Detector
		for _, det := range all {
			for _, typ := range types {
				if det.Model().Name() == typ {
					out = append(out, det)
					break
				}
			}
		}
		return out, priorityType, nil
	}

	return all, priorityAll, nil
}

func construct(def *registry.Definition, env module.Environment) (m module.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return def.New(env)
}
