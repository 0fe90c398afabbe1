// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package registry provides the central "glue" for the module system.
//
// The Registry maps the module type names used in steering files (e.g.
// "WeightingPotentialReader") to the compiled Go constructors that implement
// them. Modules compiled into the binary register themselves through the
// Module interface at startup; the registry is then validated against the
// loaded steering so that unknown module types fail before anything runs.
package registry
