// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/pixsimgo/internal/module"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Constructor builds a module instance. Registration of bus inputs and
// outputs happens here; the configuration is frozen afterwards.
type Constructor func(env module.Environment) (module.Module, error)

// Definition describes a module type.
type Definition struct {
	Name  string
	Scope module.Scope
	New   Constructor
}

// Registry holds the registered module types for a single application
// instance.
type Registry struct {
	definitions map[string]*Definition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{definitions: make(map[string]*Definition)}
}

// RegisterModule adds a module type. Registering a name twice is a
// programming error and panics.
func (r *Registry) RegisterModule(def Definition) {
	if def.Name == "" || def.New == nil {
		panic("registry: module definition needs a name and a constructor")
	}
	if _, exists := r.definitions[def.Name]; exists {
		panic(fmt.Sprintf("module with name '%s' already registered", def.Name))
	}
	slog.Debug("Registering module.", "name", def.Name, "scope", def.Scope)
	r.definitions[def.Name] = &def
}

// Lookup returns the definition of a module type.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.definitions[name]
	return def, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
