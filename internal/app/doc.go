// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the simulation lifecycle: load the steering
// files, build the detectors, instantiate and order the modules, and run the
// events. It is decoupled from any specific entrypoint like a CLI.
package app
