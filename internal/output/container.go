// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package output manages the files a run writes: one directory per run with
// a subdirectory per module instance, and PNG plots rendered with
// gonum/plot.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Plot dimensions used by SavePlot.
const (
	PlotWidth  = 16 * vg.Centimeter
	PlotHeight = 12 * vg.Centimeter
)

// Container hands out per-module output paths below a root directory.
// Directories are created on first use.
type Container struct {
	root    string
	created map[string]bool
}

// New creates a container rooted at dir. Nothing is created on disk yet.
func New(dir string) *Container {
	return &Container{root: dir, created: make(map[string]bool)}
}

// Root returns the run output directory.
func (c *Container) Root() string { return c.root }

// ModuleDir returns, creating it if needed, the directory of a module
// instance. The identifier "Type:det" maps to "Type_det".
func (c *Container) ModuleDir(module string) (string, error) {
	dir := filepath.Join(c.root, sanitize(module))
	if c.created[dir] {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory for %s: %w", module, err)
	}
	c.created[dir] = true
	return dir, nil
}

// Path returns the path of a file in the module's directory.
func (c *Container) Path(module, name string) (string, error) {
	dir, err := c.ModuleDir(module)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// SavePlot renders p as a PNG named name (".png" is appended when missing)
// into the module's directory and returns the file path.
func (c *Container) SavePlot(module string, p *plot.Plot, name string) (string, error) {
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	path, err := c.Path(module, name)
	if err != nil {
		return "", err
	}
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return "", fmt.Errorf("saving plot %s: %w", path, err)
	}
	return path, nil
}

func sanitize(id string) string {
	return strings.NewReplacer(":", "_", "/", "_", string(filepath.Separator), "_").Replace(id)
}
