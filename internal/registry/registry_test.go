package registry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/module"
)

type noop struct{ module.Base }

func (n *noop) Run(context.Context, uint64) error { return nil }

func newNoop(env module.Environment) (module.Module, error) {
	return &noop{Base: module.NewBase(env)}, nil
}

func TestRegisterModule(t *testing.T) {
	r := New()
	r.RegisterModule(Definition{Name: "B", Scope: module.PerDetector, New: newNoop})
	r.RegisterModule(Definition{Name: "A", New: newNoop})

	def, ok := r.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, module.PerDetector, def.Scope)
	assert.Equal(t, []string{"A", "B"}, r.Names())

	_, ok = r.Lookup("C")
	assert.False(t, ok)

	assert.PanicsWithValue(t, "module with name 'A' already registered", func() {
		r.RegisterModule(Definition{Name: "A", New: newNoop})
	})
	assert.Panics(t, func() { r.RegisterModule(Definition{Name: "D"}) })
}

func TestValidate(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	r := New()
	r.RegisterModule(Definition{Name: "Known", New: newNoop})

	model := config.NewModel()
	model.Modules = append(model.Modules, config.New("Known", "main.hcl"))
	require.NoError(t, r.Validate(ctx, model))

	model.Modules = append(model.Modules, config.New("Unknown", "main.hcl"))
	err := r.Validate(ctx, model)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'Unknown' (main.hcl)")
	assert.Contains(t, err.Error(), "available: Known")
}
