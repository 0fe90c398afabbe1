// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
)

// Validate checks that every module section of the steering model names a
// registered module type.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	var unknown []string
	for _, section := range model.Modules {
		if _, ok := r.definitions[section.Name()]; !ok {
			unknown = append(unknown, fmt.Sprintf("'%s' (%s)", section.Name(), section.FilePath()))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown module types: %s; available: %s",
			strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}

	logger.Debug("Registry validation passed.", "sections", len(model.Modules), "types", len(r.definitions))
	return nil
}
