// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package module defines the contract between the executor and simulation
// modules, and the Base type that modules embed for common state.
package module

import (
	"context"
	"strings"
)

// Module is a simulation step. Init runs once after every module has been
// constructed, Run once per event in dependency order, and Finalize once at
// the end in reverse dependency order.
type Module interface {
	Init(ctx context.Context) error
	Run(ctx context.Context, event uint64) error
	Finalize(ctx context.Context) error
}

// Scope tells the executor how many instances of a module type to create.
type Scope int

const (
	// Global modules get one instance that is not bound to a detector.
	Global Scope = iota
	// PerDetector modules get one instance per selected detector.
	PerDetector
)

func (s Scope) String() string {
	if s == PerDetector {
		return "detector"
	}
	return "global"
}

// Identifier names a module instance.
type Identifier struct {
	Type     string
	Detector string
	Input    string
	Output   string
}

// String returns "Type", "Type:detector" and, when input or output names
// are set, a suffix such as "Type:detector[input->output]".
func (id Identifier) String() string {
	var b strings.Builder
	b.WriteString(id.Type)
	if id.Detector != "" {
		b.WriteString(":")
		b.WriteString(id.Detector)
	}
	switch {
	case id.Input != "" && id.Output != "":
		b.WriteString("[" + id.Input + "->" + id.Output + "]")
	case id.Input != "":
		b.WriteString("[" + id.Input + "->]")
	case id.Output != "":
		b.WriteString("[->" + id.Output + "]")
	}
	return b.String()
}
