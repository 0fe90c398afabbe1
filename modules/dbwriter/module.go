// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dbwriter provides DatabaseWriter, which stores every message
// dispatched on the bus in an SQLite database. Each event is written in one
// transaction; objects are stored as JSON.
package dbwriter

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/registry"

	_ "modernc.org/sqlite"
)

// Name is the module type name used in steering files.
const Name = "DatabaseWriter"

const defaultFileName = "pixsim.db"

// schema.sql creates the runs, messages and objects tables.
//
//go:embed schema.sql
var schemaSQL string

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: Name, Scope: module.Global, New: New})
}

// Writer is the DatabaseWriter instance.
type Writer struct {
	module.Base

	path    string
	include []string
	exclude []string

	db       *sql.DB
	runID    string
	pending  []messenger.BaseMessage
	events   uint64
	messages uint64
}

// New reads the configuration and subscribes to every message on the bus.
//
//	file_name database path (default pixsim.db in the module output directory)
//	include   message types to store; all when unset
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

	if err := messenger.RegisterFilter(env.Messenger, &w.Base, w.receive, messenger.IgnoreName()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) receive(_ context.Context, msg messenger.BaseMessage) error {
	if w.wants(msg.TypeName()) {
		w.pending = append(w.pending, msg)
	}
	return nil
}

func (w *Writer) wants(typeName string) bool {
	if len(w.include) > 0 {
		return slices.Contains(w.include, typeName)
	}
	return !slices.Contains(w.exclude, typeName)
}

// Path returns the database file.
func (w *Writer) Path() string { return w.path }

// Init opens the database, applies the schema and records the run.
func (w *Writer) Init(ctx context.Context) error {
	if w.path == "" {
		path, err := w.Output().Path(w.ModuleName(), defaultFileName)
		if err != nil {
			return err
		}
		w.path = path
	}

	dsn := w.path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply schema to %s: %w", w.path, err)
	}

	w.runID = w.RunID()
	if w.runID == "" {
		w.runID = uuid.NewString()
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		w.runID, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		_ = db.Close()
		return fmt.Errorf("record run %s: %w", w.runID, err)
	}
	w.db = db

	ctxlog.FromContext(ctx).Info("Database opened.", "path", w.path, "run_id", w.runID)
	return nil
}

// Run writes the messages of the event in one transaction.
func (w *Writer) Run(ctx context.Context, event uint64) error {
	pending := w.pending
	w.pending = nil
	w.events++

	if len(pending) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start event transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, msg := range pending {
		if err := w.insert(ctx, tx, event, msg); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event %d: %w", event, err)
	}

	w.messages += uint64(len(pending))
	ctxlog.FromContext(ctx).Debug("Event stored.", "messages", len(pending))
	return nil
}

func (w *Writer) insert(ctx context.Context, tx *sql.Tx, event uint64, msg messenger.BaseMessage) error {
	objects, err := splitObjects(msg.Payload())
	if err != nil {
		return fmt.Errorf("encode %s from %s: %w", msg.TypeName(), msg.Producer(), err)
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO messages (run_id, event, type, detector, name, producer, object_count)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, w.runID, event, msg.TypeName(), msg.Detector(), msg.Name(), msg.Producer(), len(objects))
	if err != nil {
		return fmt.Errorf("insert %s message: %w", msg.TypeName(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get message id: %w", err)
	}

	for i, obj := range objects {
		if _, err := tx.ExecContext(ctx, `INSERT INTO objects (message_id, idx, payload) VALUES (?, ?, ?)`,
			id, i, string(obj)); err != nil {
			return fmt.Errorf("insert %s object %d: %w", msg.TypeName(), i, err)
		}
	}
	return nil
}

// splitObjects encodes a message payload, which is a slice, as one JSON
// document per element.
func splitObjects(payload any) ([]json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var objects []json.RawMessage
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

// Finalize closes the run record and the database.
func (w *Writer) Finalize(ctx context.Context) error {
	if w.db == nil {
		return nil
	}
	_, err := w.db.ExecContext(ctx, `UPDATE runs SET finished_at = ?, events = ?, messages = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), w.events, w.messages, w.runID)
	if err != nil {
		err = fmt.Errorf("close run %s: %w", w.runID, err)
	}
	ctxlog.FromContext(ctx).Info("Database closed.", "path", w.path, "events", w.events, "messages", w.messages)
	return errors.Join(err, w.db.Close())
}
