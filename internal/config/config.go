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

// Package config loads the host's JSON configuration file and applies
// defaults to any field a minimal config omits.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config is the root configuration document (spec.md §6).
type Config struct {
	ConnectionString string              `json:"ConnectionString"`
	Plugins          PluginsConfig       `json:"Plugins"`
	McpServer        McpServerConfig     `json:"McpServer"`
	Observability    ObservabilityConfig `json:"Observability"`
}

// ObservabilityConfig controls the OpenTelemetry tracer provider. With an
// empty OtlpEndpoint a TracerProvider is still registered, but with no span
// processor: spans are created and attributed throughout the workflow
// engine and runtime managers, then discarded when they end.
type ObservabilityConfig struct {
	OtlpEndpoint string `json:"OtlpEndpoint"`
}

// PluginsConfig controls discovery, hot-reload, and execution limits.
type PluginsConfig struct {
	PluginDirectories   []string `json:"PluginDirectories"`
	EnableHotReload     bool     `json:"EnableHotReload"`
	ExecutionTimeoutMs  int      `json:"ExecutionTimeoutMs"`
	MaxMemoryMb         int      `json:"MaxMemoryMb"`
	ScanIntervalSeconds int      `json:"ScanIntervalSeconds"`
	RegistryCachePath   string   `json:"RegistryCachePath"`

	// ScriptedInterpreter is the subprocess binary the S runtime manager
	// invokes with the plugin's entry point as its sole argument.
	ScriptedInterpreter string `json:"ScriptedInterpreter"`
	// StandaloneInterpreter is the subprocess binary the P runtime manager
	// invokes inside a per-plugin virtual environment.
	StandaloneInterpreter string `json:"StandaloneInterpreter"`
	// RegistrySourceRoot is the filesystem-backed package registry mirror
	// the dependency cache downloads Package dependencies from.
	RegistrySourceRoot string `json:"RegistrySourceRoot"`
}

// McpServerConfig controls the HTTP front-end.
type McpServerConfig struct {
	HttpPort   int  `json:"HttpPort"`
	EnableHttp bool `json:"EnableHttp"`
}

// ErrInvalidConfig wraps a failed validation or parse.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		ConnectionString: "devflow.db",
		Plugins: PluginsConfig{
			PluginDirectories:   []string{"./plugins"},
			EnableHotReload:     false,
			ExecutionTimeoutMs:  30_000,
			MaxMemoryMb:         512,
			ScanIntervalSeconds:   10,
			RegistryCachePath:     "./.devflow/cache",
			ScriptedInterpreter:   "python3",
			StandaloneInterpreter: "python3",
			RegistrySourceRoot:    "./.devflow/registry",
		},
		McpServer: McpServerConfig{
			HttpPort:   8080,
			EnableHttp: true,
		},
	}
}

// Load reads configPath, if non-empty, over the Default() baseline, then
// applies defaults to any field the file left zero. An empty configPath
// returns the defaults unchanged.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, configPath, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued fields a partial file config left
// unset, using Default() as the source of truth.
func (c *Config) applyDefaults() {
	d := Default()
	if c.ConnectionString == "" {
		c.ConnectionString = d.ConnectionString
	}
	if len(c.Plugins.PluginDirectories) == 0 {
		c.Plugins.PluginDirectories = d.Plugins.PluginDirectories
	}
	if c.Plugins.ExecutionTimeoutMs == 0 {
		c.Plugins.ExecutionTimeoutMs = d.Plugins.ExecutionTimeoutMs
	}
	if c.Plugins.MaxMemoryMb == 0 {
		c.Plugins.MaxMemoryMb = d.Plugins.MaxMemoryMb
	}
	if c.Plugins.ScanIntervalSeconds == 0 {
		c.Plugins.ScanIntervalSeconds = d.Plugins.ScanIntervalSeconds
	}
	if c.Plugins.RegistryCachePath == "" {
		c.Plugins.RegistryCachePath = d.Plugins.RegistryCachePath
	}
	if c.Plugins.ScriptedInterpreter == "" {
		c.Plugins.ScriptedInterpreter = d.Plugins.ScriptedInterpreter
	}
	if c.Plugins.StandaloneInterpreter == "" {
		c.Plugins.StandaloneInterpreter = d.Plugins.StandaloneInterpreter
	}
	if c.Plugins.RegistrySourceRoot == "" {
		c.Plugins.RegistrySourceRoot = d.Plugins.RegistrySourceRoot
	}
	if c.McpServer.HttpPort == 0 {
		c.McpServer.HttpPort = d.McpServer.HttpPort
	}
}

// Validate rejects a configuration that would fail at startup in an
// avoidable way.
func (c *Config) Validate() error {
	if c.ConnectionString == "" {
		return errors.New("ConnectionString must not be empty")
	}
	if len(c.Plugins.PluginDirectories) == 0 {
		return errors.New("Plugins.PluginDirectories must list at least one directory")
	}
	if c.Plugins.ExecutionTimeoutMs <= 0 {
		return errors.New("Plugins.ExecutionTimeoutMs must be positive")
	}
	if c.McpServer.EnableHttp && (c.McpServer.HttpPort <= 0 || c.McpServer.HttpPort > 65535) {
		return errors.New("McpServer.HttpPort must be a valid port when EnableHttp is set")
	}
	return nil
}
