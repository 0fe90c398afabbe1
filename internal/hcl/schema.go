// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Top-level attributes and other block types are decode errors.
type fileRoot struct {
	Frameworks []*frameworkBlock `hcl:"framework,block"`
	Models     []*sectionBlock   `hcl:"model,block"`
	Detectors  []*sectionBlock   `hcl:"detector,block"`
	Modules    []*sectionBlock   `hcl:"module,block"`
}

// frameworkBlock is the unlabeled `framework { ... }` block.
type frameworkBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// sectionBlock is any labeled block, e.g. `module "WeightingPotentialReader" { ... }`.
type sectionBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}
