//go:build wireinject
// +build wireinject

package main

import (
	"log/slog"

	"github.com/google/wire"

	"financemcp/internal/app"
	"financemcp/internal/config"
	"financemcp/internal/mcp"
	"financemcp/internal/minutes"
)

// App holds application dependencies built by Wire.
type App struct {
	Config config.Config
	Logger *slog.Logger
	Tool   *minutes.Tool
	Server *mcp.Server
}

// InitializeApp builds App (Config + adapters + MCP server) via Wire.
func InitializeApp() (*App, error) {
	wire.Build(
		app.ProviderSet,
		wire.Struct(new(App), "Config", "Logger", "Tool", "Server"),
	)
	return nil, nil
}
