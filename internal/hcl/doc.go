// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hcl provides the concrete HCL implementation of the steering
// loader defined in the `config` package. It is responsible for file
// discovery, parsing, and translating HCL blocks and attribute values into
// ordered, format-agnostic config.Configuration sections.
package hcl
