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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConnectionString != Default().ConnectionString {
		t.Errorf("ConnectionString = %q, want default", cfg.ConnectionString)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"McpServer": {"HttpPort": 9090, "EnableHttp": true}}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.McpServer.HttpPort != 9090 {
		t.Errorf("HttpPort = %d, want 9090", cfg.McpServer.HttpPort)
	}
	if cfg.Plugins.ScriptedInterpreter != "python3" {
		t.Errorf("ScriptedInterpreter = %q, want default python3", cfg.Plugins.ScriptedInterpreter)
	}
	if len(cfg.Plugins.PluginDirectories) == 0 {
		t.Error("expected PluginDirectories to fall back to the default")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected Load to reject malformed JSON")
	}
}

func TestLoadRejectsInvalidHttpPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"McpServer": {"HttpPort": 70000, "EnableHttp": true}}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected Load to reject an out-of-range HttpPort")
	}
}

func TestValidateRejectsEmptyConnectionString(t *testing.T) {
	cfg := Default()
	cfg.ConnectionString = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject an empty ConnectionString")
	}
}

func TestValidateRejectsNoPluginDirectories(t *testing.T) {
	cfg := Default()
	cfg.Plugins.PluginDirectories = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject an empty PluginDirectories list")
	}
}
