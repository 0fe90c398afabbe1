// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package field implements the scalar and vector fields attached to a
// detector: grid fields backed by samples read from INIT files, analytic
// fields backed by a function of position, and the cache that shares parsed
// field files between module instances.
//
// Positions are pixel-relative: x and y are measured from the centre of the
// reference pixel, z is the local sensor depth. Grid lookup is nearest cell
// with cell-centred samples. A position on a cell boundary belongs to the
// upper cell, and a position on the upper edge of the grid belongs to the
// last cell.
package field
