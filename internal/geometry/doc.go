// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package geometry describes the detectors of a setup: the static detector
// model shared by all detectors of one type, and the placed detector that
// carries the fields attached by field reader modules.
//
// Local coordinates put the centre of pixel (0, 0) at x = y = 0. The sensor
// spans z in [-t/2, t/2] with the implants on the +t/2 side.
package geometry
