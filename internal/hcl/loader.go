// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL steering loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file reachable from paths, in order, and merges their
// blocks into a single model. Module sections keep file order across files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl steering files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()
	frameworkSeen := ""

	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}

		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, fw := range root.Frameworks {
			if frameworkSeen != "" {
				return nil, fmt.Errorf("duplicate framework block in %s (first defined in %s)", file, frameworkSeen)
			}
			frameworkSeen = file
			model.Framework = config.New(config.FrameworkSection, abs)
			if err := fillSection(model.Framework, fw.Body); err != nil {
				return nil, fmt.Errorf("framework block in %s: %w", file, err)
			}
		}
		for _, b := range root.Models {
			if _, exists := model.DetectorModel(b.Name); exists {
				return nil, fmt.Errorf("duplicate model %q in %s", b.Name, file)
			}
			cfg, err := translateSection(b, abs)
			if err != nil {
				return nil, fmt.Errorf("model %q in %s: %w", b.Name, file, err)
			}
			model.Models = append(model.Models, cfg)
		}
		for _, b := range root.Detectors {
			if _, exists := model.Detector(b.Name); exists {
				return nil, fmt.Errorf("duplicate detector %q in %s", b.Name, file)
			}
			cfg, err := translateSection(b, abs)
			if err != nil {
				return nil, fmt.Errorf("detector %q in %s: %w", b.Name, file, err)
			}
			model.Detectors = append(model.Detectors, cfg)
		}
		for _, b := range root.Modules {
			cfg, err := translateSection(b, abs)
			if err != nil {
				return nil, fmt.Errorf("module %q in %s: %w", b.Name, file, err)
			}
			model.Modules = append(model.Modules, cfg)
		}
	}

	logger.Debug("HCL loading complete.",
		"models", len(model.Models),
		"detectors", len(model.Detectors),
		"modules", len(model.Modules),
	)
	return model, nil
}

func translateSection(b *sectionBlock, file string) (*config.Configuration, error) {
	cfg := config.New(b.Name, file)
	if err := fillSection(cfg, b.Body); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillSection copies the attributes of body into cfg in source order.
func fillSection(cfg *config.Configuration, body hcl.Body) error {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	for _, attr := range ordered {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("attribute %q: %w", attr.Name, diags)
		}
		raw, err := valueToString(val)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		cfg.Set(attr.Name, raw)
	}
	return nil
}
