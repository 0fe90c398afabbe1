// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package messenger implements the typed publish/subscribe bus that carries
// simulation objects between module instances.
//
// Modules register their inputs and outputs while they are constructed. The
// executor reads the registrations to order modules, then seals the bus.
// Dispatch is synchronous and delivers in registration order. A message that
// belongs to a detector only reaches subscribers of that detector and
// subscribers that are not bound to any detector.
package messenger
