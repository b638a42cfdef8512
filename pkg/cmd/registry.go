// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/flowforge/pkg/registry"
)

// NewRegistry returns the registry of built-in node kinds.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewDefaultRegistry(log)

	if missing := reg.Missing(); len(missing) > 0 {
		log.Warn("Node kinds without a registered spec", "kinds", missing)
	}

	return reg
}
