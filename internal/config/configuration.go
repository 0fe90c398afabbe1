// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Configuration is an ordered set of key/value pairs for one steering
// section. Values are kept as raw strings and converted on read.
type Configuration struct {
	name   string
	file   string
	keys   []string
	values map[string]string
	used   map[string]bool
	frozen bool
}

// New creates an empty configuration for the named section. file is the
// steering file the section came from and anchors relative paths; it may be
// empty.
func New(name, file string) *Configuration {
	return &Configuration{
		name:   name,
		file:   file,
		values: make(map[string]string),
		used:   make(map[string]bool),
	}
}

// Name returns the section name, which is a module type, a detector name or
// "framework". Instantiated module configurations carry the module identifier.
func (c *Configuration) Name() string {
	return c.name
}

// FilePath returns the steering file this section was read from.
func (c *Configuration) FilePath() string {
	return c.file
}

// Has reports whether key is set.
func (c *Configuration) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Count returns how many of the given keys are set.
func (c *Configuration) Count(keys ...string) int {
	n := 0
	for _, k := range keys {
		if c.Has(k) {
			n++
		}
	}
	return n
}

// Keys returns all keys in insertion order.
func (c *Configuration) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Text returns the raw value of key, or "" when it is not set. It does not
// mark the key as used.
func (c *Configuration) Text(key string) string {
	return c.values[key]
}

// Set stores a raw value. Setting an existing key keeps its original
// position. Set panics on a frozen configuration; modules must finish
// writing defaults in their constructor.
func (c *Configuration) Set(key, value string) {
	if c.frozen {
		panic(fmt.Sprintf("config: cannot set '%s' in frozen section '%s'", key, c.name))
	}
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// SetDefault stores value only when key is not set yet.
func (c *Configuration) SetDefault(key, value string) {
	if !c.Has(key) {
		c.Set(key, value)
	}
}

// Freeze makes the configuration immutable.
func (c *Configuration) Freeze() {
	c.frozen = true
}

// Frozen reports whether Freeze was called.
func (c *Configuration) Frozen() bool {
	return c.frozen
}

// MarkUsed records keys as consumed without reading them, for keys that are
// interpreted by the framework rather than the module.
func (c *Configuration) MarkUsed(keys ...string) {
	for _, k := range keys {
		if c.Has(k) {
			c.used[k] = true
		}
	}
}

// Unused returns the keys that were set but never read, sorted.
func (c *Configuration) Unused() []string {
	var out []string
	for _, k := range c.keys {
		if !c.used[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns an unfrozen deep copy under a new section name. Usage marks
// are not copied.
func (c *Configuration) Clone(name string) *Configuration {
	out := New(name, c.file)
	for _, k := range c.keys {
		out.Set(k, c.values[k])
	}
	return out
}

// Merge copies every key of other into c, overwriting existing values.
func (c *Configuration) Merge(other *Configuration) {
	for _, k := range other.keys {
		c.Set(k, other.values[k])
	}
}

// GetPath returns the value of key as a cleaned absolute path. Relative paths
// are resolved against the directory of the steering file. When checkExists
// is set, a path that does not exist is an InvalidValueError.
func (c *Configuration) GetPath(key string, checkExists bool) (string, error) {
	raw, err := Get[string](c, key)
	if err != nil {
		return "", err
	}
	return c.resolvePath(key, raw, checkExists)
}

// GetPathOr is GetPath with a default used when key is not set.
func (c *Configuration) GetPathOr(key, def string, checkExists bool) (string, error) {
	if !c.Has(key) {
		return c.resolvePath(key, def, checkExists)
	}
	return c.GetPath(key, checkExists)
}

func (c *Configuration) resolvePath(key, raw string, checkExists bool) (string, error) {
	path := raw
	if !filepath.IsAbs(path) && c.file != "" {
		path = filepath.Join(filepath.Dir(c.file), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", WrapInvalidValue(c, key, err)
	}
	if !checkExists {
		return abs, nil
	}
	if _, err := os.Stat(abs); err != nil {
		return "", &InvalidValueError{Section: c.name, Key: key, Value: raw, Reason: "path does not exist", Err: err}
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
