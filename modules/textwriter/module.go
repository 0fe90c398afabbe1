// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package textwriter provides TextWriter, which dumps every message
// dispatched on the bus into a human readable text file, one block per
// event.
package textwriter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/registry"
)

// Name is the module type name used in steering files.
const Name = "TextWriter"

const defaultFileName = "data.txt"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: Name, Scope: module.Global, New: New})
}

// Writer is the TextWriter instance.
type Writer struct {
	module.Base

	path    string
	include []string
	exclude []string

	file    *os.File
	out     *bufio.Writer
	pending []messenger.BaseMessage
	written uint64
}

// New reads the configuration and subscribes to every message on the bus.
//
//	file_name output file (default data.txt in the module output directory)
//	include   message types to write; all when unset
//	exclude   message types to skip; cannot be combined with include
func New(env module.Environment) (module.Module, error) {
	cfg := env.Config
	w := &Writer{Base: module.NewBase(env)}

	var err error
	if cfg.Has("file_name") {
		if w.path, err = cfg.GetPath("file_name", false); err != nil {
			return nil, err
		}
	}
	if cfg.Count("include", "exclude") > 1 {
		return nil, config.NewInvalidValueError(cfg, "exclude", "cannot be combined with include")
	}
	if w.include, err = config.GetArrayOr[string](cfg, "include", nil); err != nil {
		return nil, err
	}
	if w.exclude, err = config.GetArrayOr[string](cfg, "exclude", nil); err != nil {
		return nil, err
	}

	err = messenger.RegisterFilter(env.Messenger, &w.Base, func(_ context.Context, msg messenger.BaseMessage) error {
		if len(w.include) > 0 && !slices.Contains(w.include, msg.TypeName()) {
			return nil
		}
		if slices.Contains(w.exclude, msg.TypeName()) {
			return nil
		}
		w.pending = append(w.pending, msg)
		return nil
	}, messenger.IgnoreName())
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Path returns the output file.
func (w *Writer) Path() string { return w.path }

// Init creates the output file.
func (w *Writer) Init(ctx context.Context) error {
	if w.path == "" {
		path, err := w.Output().Path(w.ModuleName(), defaultFileName)
		if err != nil {
			return err
		}
		w.path = path
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create text output: %w", err)
	}
	w.file = f
	w.out = bufio.NewWriter(f)
	fmt.Fprintf(w.out, "# pixsim run %s\n", w.RunID())

	ctxlog.FromContext(ctx).Info("Text output opened.", "path", w.path)
	return nil
}

// Run writes the messages of the event.
func (w *Writer) Run(_ context.Context, event uint64) error {
	pending := w.pending
	w.pending = nil

	fmt.Fprintf(w.out, "=== event %d ===\n", event)
	for _, msg := range pending {
		detector := msg.Detector()
		if detector == "" {
			detector = "-"
		}
		fmt.Fprintf(w.out, "--- %s from %s (detector %s, %d objects) ---\n", msg.TypeName(), msg.Producer(), detector, msg.Len())

		objects := reflect.ValueOf(msg.Payload())
		for i := 0; i < objects.Len(); i++ {
			fmt.Fprintf(w.out, "      %+v\n", objects.Index(i).Interface())
		}
		w.written++
	}
	return w.out.Flush()
}

// Finalize flushes and closes the file.
func (w *Writer) Finalize(ctx context.Context) error {
	if w.file == nil {
		return nil
	}
	ctxlog.FromContext(ctx).Info("Text output closed.", "path", w.path, "messages", w.written)
	return errors.Join(w.out.Flush(), w.file.Close())
}
