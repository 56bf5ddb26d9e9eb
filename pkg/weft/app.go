// Package weft wires a widget tree to its collaborators and serves it.
// It is the embedding surface for hand-written widgets: build a tree
// with pkg/resource, then Serve it over HTTP or RunOnce it headless.
package weft

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/weftlabs/weft/internal/artifact"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/panel"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/scheduler"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/streaming"
	"github.com/weftlabs/weft/pkg/resource"
)

// Option configures an App.
type Option func(*options)

type options struct {
	listenAddr   string
	storePath    string
	autosaveCron string
	logger       *slog.Logger
	registry     *render.Registry
	hub          streaming.EventHub
	packager     resource.Packager
}

// WithListenAddr sets the HTTP listen address (default ":4800").
func WithListenAddr(addr string) Option {
	return func(o *options) { o.listenAddr = addr }
}

// WithStorePath enables session persistence at the given libSQL file
// path. Without it the app runs in-memory only.
func WithStorePath(path string) Option {
	return func(o *options) { o.storePath = path }
}

// WithAutosave schedules periodic snapshots of the live session using
// a cron expression. Requires WithStorePath.
func WithAutosave(cronExpr string) Option {
	return func(o *options) { o.autosaveCron = cronExpr }
}

// WithLogger sets the base logger. Correlation attributes (session id,
// widget, resource path) are layered on top of it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry replaces the default renderer registry (builtins only).
func WithRegistry(reg *render.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithHub replaces the default in-memory event hub.
func WithHub(hub streaming.EventHub) Option {
	return func(o *options) { o.hub = hub }
}

// WithPackager replaces the default artifact packager.
func WithPackager(p resource.Packager) Option {
	return func(o *options) { o.packager = p }
}

// App is one widget tree wired to a live session, a panel server and
// optional persistence. Build with NewApp, run with Start.
type App struct {
	root      *resource.Root
	opts      options
	logger    *slog.Logger
	registry  *render.Registry
	hub       streaming.EventHub
	packager  resource.Packager
	session   *panel.LiveSession
	server    *panel.PanelServer
	store     store.Store
	autosaver *scheduler.Autosaver
}

// NewApp wires a widget tree into a ready-to-start App. The store is
// opened lazily by Start; everything in-memory is wired here.
func NewApp(root *resource.Root, opts ...Option) (*App, error) {
	if root == nil {
		return nil, resource.NewError(resource.ErrCodeConfiguration, "nil root")
	}
	o := options{listenAddr: ":4800"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(logging.NewCorrelationHandler(
			slog.NewTextHandler(os.Stderr, nil)))
	}
	if o.registry == nil {
		reg := render.NewRegistry()
		if err := render.RegisterBuiltins(reg); err != nil {
			return nil, err
		}
		o.registry = reg
	}
	if o.hub == nil {
		o.hub = streaming.NewMemoryHub()
	}
	if o.packager == nil {
		p, err := artifact.NewPackager()
		if err != nil {
			return nil, err
		}
		o.packager = p
	}
	if o.autosaveCron != "" && o.storePath == "" {
		return nil, resource.NewError(resource.ErrCodeConfiguration,
			"autosave requires a store path")
	}
	return &App{
		root:     root,
		opts:     o,
		logger:   o.logger,
		registry: o.registry,
		hub:      o.hub,
		packager: o.packager,
	}, nil
}

// Session returns the live session, wiring it on first use.
func (a *App) Session() *panel.LiveSession {
	if a.session == nil {
		var log *store.EventLog
		if s, ok := a.store.(*store.LibSQLStore); ok {
			log = store.NewEventLog(s)
		}
		a.session = panel.NewLiveSession(a.root, a.registry, a.store, log, a.hub, a.logger)
	}
	return a.session
}

// Handler returns the panel HTTP handler, wiring the server on first
// use. Useful for embedding the panel under an existing mux.
func (a *App) Handler() http.Handler {
	if a.server == nil {
		a.server = panel.NewPanelServer(a.Session(), panel.PanelDeps{
			Store:     a.store,
			Hub:       a.hub,
			Packager:  a.packager,
			Autosaver: a.autosaver,
			Logger:    a.logger,
		})
	}
	return a.server.Handler()
}

// Start opens the store if configured, runs one initial pass, and
// serves the panel until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if a.opts.storePath != "" {
		s, err := store.NewLibSQLStore("file:" + a.opts.storePath)
		if err != nil {
			return err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return err
		}
		a.store = s
		defer a.store.Close()
	}

	session := a.Session()
	if a.store != nil {
		if err := session.Persist(ctx); err != nil {
			return err
		}
	}
	if a.opts.autosaveCron != "" {
		a.autosaver = scheduler.NewAutosaver(session, a.logger)
		if err := a.autosaver.Register(session.SessionID(), a.opts.autosaveCron); err != nil {
			return err
		}
		if err := a.autosaver.Start(ctx); err != nil {
			return err
		}
		defer a.autosaver.Stop()
	}

	// First pass populates the regions before the first page load.
	if err := session.Run(ctx); err != nil {
		return err
	}

	srv := &http.Server{Addr: a.opts.listenAddr, Handler: a.Handler()}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.logger.Info("panel listening", "addr", a.opts.listenAddr, "widget", a.root.ID())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Serve is the one-call entry point: wire the tree and serve it until
// ctx is cancelled.
func Serve(ctx context.Context, root *resource.Root, opts ...Option) error {
	app, err := NewApp(root, opts...)
	if err != nil {
		return err
	}
	return app.Start(ctx)
}
