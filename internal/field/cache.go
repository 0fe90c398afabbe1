// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package field

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/fsutil"
)

// Cache shares parsed field files between module instances. Each canonical
// path is parsed once; later loads return the same *Data.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Data
	parses  int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Data)}
}

// Load returns the field stored at path, parsing it on first use. Requesting
// a cached file with a different number of components is an error.
func (c *Cache) Load(ctx context.Context, path string, components int) (*Data, error) {
	logger := ctxlog.FromContext(ctx)

	canonical, err := fsutil.Canonical(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.entries[canonical]; ok {
		if data.Components != components {
			return nil, fmt.Errorf("field %s was loaded with %d components, requested %d", canonical, data.Components, components)
		}
		logger.Debug("Field cache hit.", "path", canonical)
		return data, nil
	}

	f, err := os.Open(canonical)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := ReadINIT(f, components)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", canonical, err)
	}
	data.Source = canonical
	c.entries[canonical] = data
	c.parses++

	logger.Debug("Field file parsed.", "path", canonical,
		"cells", fmt.Sprintf("%dx%dx%d", data.Dimensions[0], data.Dimensions[1], data.Dimensions[2]))
	return data, nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Parses returns how many files were actually parsed.
func (c *Cache) Parses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parses
}
