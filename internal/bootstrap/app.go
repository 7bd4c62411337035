// Copyright 2026 DevFlow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bootstrap assembles the host process: configuration, storage,
// the plugin runtime managers, the workflow engine, and the JSON-RPC
// dispatcher behind a single HTTP surface. It mirrors the teacher's
// daemon package's New/Start/Shutdown lifecycle, scaled down to DevFlow's
// one-endpoint transport.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/maxxentropy/devflow/internal/config"
	"github.com/maxxentropy/devflow/internal/dependency"
	"github.com/maxxentropy/devflow/internal/discovery"
	"github.com/maxxentropy/devflow/internal/domain/plugin"
	internallog "github.com/maxxentropy/devflow/internal/log"
	"github.com/maxxentropy/devflow/internal/observability"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/internal/persistence/eventbus"
	"github.com/maxxentropy/devflow/internal/persistence/sqlstore"
	"github.com/maxxentropy/devflow/internal/rpc"
	"github.com/maxxentropy/devflow/internal/runtime"
	"github.com/maxxentropy/devflow/internal/runtime/managed"
	"github.com/maxxentropy/devflow/internal/runtime/scripted"
	"github.com/maxxentropy/devflow/internal/runtime/standalone"
	"github.com/maxxentropy/devflow/internal/workflowengine"
)

// Options carries build-time metadata the bootstrap reports through
// initialize and the X-MCP-Server response header.
type Options struct {
	Name    string
	Version string
}

// DrainTimeout bounds how long Shutdown waits for the HTTP server to
// finish in-flight requests before forcing a close.
const DrainTimeout = 10 * time.Second

// App is the assembled host process.
type App struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	store      persistence.Port
	bus        *eventbus.Bus
	scanner    *discovery.Scanner
	watcher    *discovery.Watcher
	composite  *runtime.Composite
	engine     *workflowengine.Engine
	dispatcher *rpc.Dispatcher

	server         *http.Server
	tracerShutdown func(context.Context) error

	mu      sync.Mutex
	started bool
}

// New wires every component from cfg without starting any background
// work; Run performs the blocking startup.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := internallog.WithComponent(internallog.New(internallog.FromEnv()), "bootstrap")

	tracerShutdown, err := observability.NewTracerProvider(ctx, opts.Name, opts.Version, cfg.Observability.OtlpEndpoint)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: configure tracer provider: %w", err)
	}

	bus := eventbus.New(internallog.WithComponent(logger, "eventbus"))
	bus.Subscribe("*", func(_ context.Context, evt eventbus.Event) error {
		logger.Debug("domain event published", slog.String("event", evt.Name()))
		return nil
	})

	store, err := sqlstore.New(ctx, sqlstore.Config{Path: cfg.ConnectionString, WAL: true}, bus, internallog.WithComponent(logger, "sqlstore"))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open store: %w", err)
	}

	cache, err := dependency.NewCache(cfg.Plugins.RegistryCachePath, dependency.NewFilesystemDownloader(cfg.Plugins.RegistrySourceRoot), internallog.WithComponent(logger, "dependency"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("bootstrap: open dependency cache: %w", err)
	}
	resolver := dependency.NewResolver(cache, &pluginLookup{store: store})

	composite := runtime.NewComposite(map[plugin.Language]runtime.Manager{
		plugin.LanguageManaged:    managed.New(),
		plugin.LanguageScripted:   scripted.New(cfg.Plugins.ScriptedInterpreter, resolver),
		plugin.LanguageStandalone: standalone.New(cfg.Plugins.StandaloneInterpreter, filepath.Join(cfg.Plugins.RegistryCachePath, "venvs"), resolver),
	})
	if err := composite.Initialize(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("bootstrap: initialize runtime managers: %w", err)
	}

	scanner := discovery.NewScanner(internallog.WithComponent(logger, "discovery"))

	var watcher *discovery.Watcher
	if cfg.Plugins.EnableHotReload {
		interval := time.Duration(cfg.Plugins.ScanIntervalSeconds) * time.Second
		w, err := discovery.NewWatcher(cfg.Plugins.PluginDirectories, interval, internallog.WithComponent(logger, "discovery.watcher"))
		if err != nil {
			logger.Warn("hot reload disabled: failed to start plugin directory watcher", slog.Any("error", err))
		} else {
			watcher = w
		}
	}

	engine := workflowengine.New(store, composite, internallog.WithComponent(logger, "workflowengine"))

	dispatcher := &rpc.Dispatcher{
		Name:     opts.Name,
		Version:  opts.Version,
		Store:    store,
		Engine:   engine,
		Runtime:  composite,
		Resolver: resolver,
		Scanner:  scanner,
		Roots:    cfg.Plugins.PluginDirectories,
		Logger:   internallog.WithComponent(logger, "rpc"),
	}

	return &App{
		cfg:            cfg,
		opts:           opts,
		logger:         logger,
		store:          store,
		bus:            bus,
		scanner:        scanner,
		watcher:        watcher,
		composite:      composite,
		engine:         engine,
		dispatcher:     dispatcher,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP surface and blocks until ctx is cancelled or the
// server fails. It never returns a non-nil error on a clean ctx cancel.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return errors.New("bootstrap: app already started")
	}
	a.started = true
	a.mu.Unlock()

	if a.watcher != nil {
		go a.watcher.Run(ctx)
		go a.watchLoop(ctx)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", a.handleMCP)
	mux.HandleFunc("/health", a.handleHealth)
	mux.Handle("/metrics", observability.Handler())

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.McpServer.HttpPort),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.logger.Info("devflow host starting",
		slog.String("version", a.opts.Version),
		slog.Int("port", a.cfg.McpServer.HttpPort))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// watchLoop rescans the configured plugin directories whenever the
// discovery watcher signals a filesystem change.
func (a *App) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.watcher.Rescan:
			discovered, scanErrs := a.scanner.Scan(a.cfg.Plugins.PluginDirectories)
			for _, se := range scanErrs {
				a.logger.Warn("hot reload scan error", slog.String("error", se.Error()))
			}
			a.logger.Info("hot reload rescan complete", slog.Int("discovered", len(discovered)))
		}
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-MCP-Server", a.opts.Name+"/"+a.opts.Version)
	w.Header().Set("X-Protocol-Version", rpc.ProtocolVersion)

	if res := a.store.ListPlugins(r.Context(), persistence.PluginFilter{}); !res.IsOk() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) handleMCP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-MCP-Server", a.opts.Name+"/"+a.opts.Version)
	w.Header().Set("X-Protocol-Version", rpc.ProtocolVersion)
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	out := a.dispatcher.Handle(r.Context(), raw)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// Shutdown drains in-flight HTTP requests (bounded by DrainTimeout), then
// disposes the runtime managers and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}

	a.logger.Info("graceful shutdown initiated")

	if a.server != nil {
		a.server.SetKeepAlivesEnabled(false)
		drainCtx, cancel := context.WithTimeout(ctx, DrainTimeout)
		defer cancel()
		if err := a.server.Shutdown(drainCtx); err != nil {
			a.logger.Warn("drain timeout exceeded, forcing close", slog.Any("error", err))
			_ = a.server.Close()
		}
	}

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.logger.Warn("watcher close error", slog.Any("error", err))
		}
	}

	if err := a.composite.Dispose(ctx); err != nil {
		a.logger.Warn("runtime dispose error", slog.Any("error", err))
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer provider shutdown error", slog.Any("error", err))
		}
	}

	return a.store.Close()
}
