// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"fmt"
	"strings"
)

// Phase is a step of the module lifecycle.
type Phase int

const (
	PhaseConstruct Phase = iota
	PhaseInit
	PhaseRun
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhaseConstruct:
		return "construct"
	case PhaseInit:
		return "init"
	case PhaseRun:
		return "run"
	case PhaseFinalize:
		return "finalize"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ModuleError wraps a failure raised by a module. Event is zero outside the
// run phase.
type ModuleError struct {
	Module string
	Phase  Phase
	Event  uint64
	Err    error
}

func (e *ModuleError) Error() string {
	if e.Phase == PhaseRun {
		return fmt.Sprintf("module %s failed in event %d: %v", e.Module, e.Event, e.Err)
	}
	return fmt.Sprintf("module %s failed during %s: %v", e.Module, e.Phase, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// UnresolvedDependencyError is returned when a required input has no
// producer among the instantiated modules.
type UnresolvedDependencyError struct {
	Module   string
	Type     string
	Detector string
	Input    string
}

func (e *UnresolvedDependencyError) Error() string {
	msg := fmt.Sprintf("module %s requires %s messages but no module produces them", e.Module, e.Type)
	if e.Detector != "" {
		msg += " for detector " + e.Detector
	}
	if e.Input != "" && e.Input != "*" {
		msg += fmt.Sprintf(" with name '%s'", e.Input)
	}
	return msg
}

// MultipleProducersError is returned when a unique input is matched by more
// than one producer.
type MultipleProducersError struct {
	Module    string
	Type      string
	Producers []string
}

func (e *MultipleProducersError) Error() string {
	return fmt.Sprintf("module %s accepts a single producer of %s but found %d: %s",
		e.Module, e.Type, len(e.Producers), strings.Join(e.Producers, ", "))
}

// CyclicDependencyError is returned when the message dependencies of the
// instances form a cycle.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic module dependency: " + strings.Join(e.Path, " -> ")
}

// StateError reports an illegal lifecycle transition. It indicates a bug in
// the caller, not in a module.
type StateError struct {
	Module string
	From   State
	To     State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("module %s cannot move from %s to %s", e.Module, e.From, e.To)
}
