// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package config defines the format-agnostic steering model for the
// application, the typed Configuration every module reads its parameters
// from, and the Loader interface implemented by concrete formats.
//
// A Configuration stores raw strings in file order. Nothing is converted
// when the steering file is read; the typed accessors (Get, GetOr,
// GetChecked, GetArray) convert on access, so a bad value is reported with
// the key, the section and the offending text at the point a module first
// asks for it. Floating-point reads go through the units package, which is
// why "50um" and "0.05" are interchangeable everywhere.
//
// The `config.Model` is the single source of truth for the `geometry`
// builder and the `executor` instantiation pass. The HCL implementation of
// Loader lives in the `hcl` package.
package config
