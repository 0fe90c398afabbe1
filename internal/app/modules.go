// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"github.com/vk/pixsimgo/internal/registry"
	"github.com/vk/pixsimgo/modules/dbwriter"
	"github.com/vk/pixsimgo/modules/deposition"
	"github.com/vk/pixsimgo/modules/electricfield"
	"github.com/vk/pixsimgo/modules/propagation"
	"github.com/vk/pixsimgo/modules/textwriter"
	"github.com/vk/pixsimgo/modules/transfer"
	"github.com/vk/pixsimgo/modules/weightingpotential"
)

// coreModules is the definitive list of all modules that are compiled into
// the pixsim binary.
var coreModules = []registry.Module{
	&deposition.Module{},
	&electricfield.Module{},
	&weightingpotential.Module{},
	&propagation.Module{},
	&transfer.Module{},
	&dbwriter.Module{},
	&textwriter.Module{},
}
