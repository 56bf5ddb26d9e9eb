package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/validation"
	"github.com/weftlabs/weft/pkg/weft"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	listen := fs.String("listen", "", "HTTP listen address")
	storePath := fs.String("store", "", "session database path")
	autosave := fs.String("autosave", "", "autosave cron expression")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(fs.Args())
	if err != nil {
		return err
	}

	cfg := loadConfig()
	listenAddr := cfg.ListenAddr
	dbPath := cfg.DBPath
	autosaveCron := cfg.Autosave
	if m := t.manifest; m != nil {
		if m.Listen != "" {
			listenAddr = m.Listen
		}
		if m.Store != "" {
			dbPath = m.Store
		}
		if m.Autosave != "" {
			autosaveCron = m.Autosave
		}
	}
	if *listen != "" {
		listenAddr = *listen
	}
	if *storePath != "" {
		dbPath = *storePath
	}
	if *autosave != "" {
		autosaveCron = *autosave
	}

	logger := slog.New(logging.NewCorrelationHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.slogLevel()})))

	reg := render.NewRegistry()
	if err := render.RegisterBuiltins(reg); err != nil {
		return err
	}

	validator, err := validation.NewTreeValidator(reg, nil)
	if err != nil {
		return err
	}
	result := validator.Validate(t.root)
	for _, w := range result.Warnings {
		logger.Warn(w.Message, "path", w.Path, "code", w.Code)
	}
	if err := result.ToError(); err != nil {
		return err
	}

	opts := []weft.Option{
		weft.WithListenAddr(listenAddr),
		weft.WithLogger(logger),
		weft.WithRegistry(reg),
	}
	if dbPath != "" {
		opts = append(opts, weft.WithStorePath(dbPath))
	}
	if autosaveCron != "" {
		opts = append(opts, weft.WithAutosave(autosaveCron))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return weft.Serve(ctx, t.root, opts...)
}
