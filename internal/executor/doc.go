// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package executor turns module sections into module instances, orders them
// by their message dependencies and drives them through their lifecycle.
//
// The lifecycle of every instance is Constructed, Initialized, Running and
// Finalized, in that order. Init runs once per instance in plan order, Run
// once per event in plan order, and Finalize once in reverse plan order.
// Execution is sequential: one module runs at a time.
package executor
