// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dag provides the dependency graph the executor orders module
// instances with. Nodes remember the order they were added in, and every
// traversal follows that order, so results are deterministic for a given
// steering file.
package dag
