// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/flowcanvas/pkg/registry"
)

// NewRegistry creates the built-in tool registry, extended with the tools
// listed in the JSON file at toolsPath when it is set.
func NewRegistry(ctx context.Context, log *slog.Logger, toolsPath string) *registry.Registry {
	reg := registry.NewDefaultRegistry(log)

	if toolsPath == "" {
		return reg
	}

	tools, err := loadTools(toolsPath)
	if err != nil {
		panic(err)
	}

	for _, tool := range tools {
		reg.RegisterTool(tool)
	}

	log.InfoContext(ctx, "Loaded custom tools", "path", toolsPath, "count", len(tools))

	return reg
}

func loadTools(path string) ([]registry.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools file: %w", err)
	}

	var tools []registry.Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("failed to parse tools file: %w", err)
	}

	return tools, nil
}
