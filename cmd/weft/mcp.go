package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/weftlabs/weft/internal/artifact"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/panel"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/streaming"
	"github.com/weftlabs/weft/pkg/mcp"
)

// cmdMCP exposes the widget to MCP clients over stdio. Logs go to
// stderr; stdout belongs to the transport.
func cmdMCP(args []string) error {
	t, err := loadTarget(args)
	if err != nil {
		return err
	}

	cfg := loadConfig()
	logger := slog.New(logging.NewCorrelationHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.slogLevel()})))

	reg := render.NewRegistry()
	if err := render.RegisterBuiltins(reg); err != nil {
		return err
	}
	hub := streaming.NewMemoryHub()
	session := panel.NewLiveSession(t.root, reg, nil, nil, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Populate values and regions before the first tool call.
	if err := session.Run(ctx); err != nil {
		return err
	}

	p, err := artifact.NewPackager()
	if err != nil {
		return err
	}
	widgets := mcp.NewWidgetRegistry()
	widgets.Register(session)
	srv := mcp.NewWidgetServer(mcp.WidgetServerDeps{
		Widgets:  widgets,
		Hub:      hub,
		Packager: p,
		Logger:   logger,
	})

	go func() {
		if err := srv.BridgeEvents(ctx); err != nil {
			logger.Warn("event bridge stopped", "error", err)
		}
	}()
	return srv.Serve(ctx)
}
