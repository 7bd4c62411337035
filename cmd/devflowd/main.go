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

// Command devflowd runs the DevFlow host: a JSON-RPC/MCP server that
// discovers plugins, resolves their dependencies, executes them across
// three language runtimes, and sequences them through workflows.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxxentropy/devflow/internal/bootstrap"
	"github.com/maxxentropy/devflow/internal/config"
	"github.com/maxxentropy/devflow/internal/log"
)

// Version information, injected via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes per spec.md §6.
const (
	exitOK            = 0
	exitFatalStartup  = 1
	exitConfigInvalid = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the JSON configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("devflowd %s (commit %s)\n", version, commit)
		return exitOK
	}

	logger := log.New(log.FromEnv())
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		return exitConfigInvalid
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Name: "devflow", Version: version})
	if err != nil {
		logger.Error("failed to start devflow host", slog.Any("error", err))
		return exitFatalStartup
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
		if err := app.Shutdown(context.Background()); err != nil {
			logger.Error("error during shutdown", slog.Any("error", err))
			return exitFatalStartup
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("devflow host error", slog.Any("error", err))
			return exitFatalStartup
		}
	}
	return exitOK
}
