// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.ScrollbackLines != 1000 {
		t.Errorf("ScrollbackLines = %d, want 1000", cfg.ScrollbackLines)
	}
	if !cfg.BracketedPaste {
		t.Error("BracketedPaste should default to true")
	}
	if cfg.Shell != "" || cfg.HistoryDB != "" {
		t.Error("Shell and HistoryDB should default to empty")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom missing file: %v", err)
	}
	if cfg.ScrollbackLines != 1000 {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "shell = \"/bin/zsh\"\nscrollback_lines = 5000\nbracketed_paste = false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Shell != "/bin/zsh" {
		t.Errorf("Shell = %q, want /bin/zsh", cfg.Shell)
	}
	if cfg.ScrollbackLines != 5000 {
		t.Errorf("ScrollbackLines = %d, want 5000", cfg.ScrollbackLines)
	}
	if cfg.BracketedPaste {
		t.Error("BracketedPaste should be false")
	}
	// Unset keys keep their defaults.
	if cfg.HistoryDB != "" {
		t.Errorf("HistoryDB = %q, want empty", cfg.HistoryDB)
	}
}

func TestLoadFromBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("shell = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected an error for malformed TOML")
	}
}

func TestShellCommand(t *testing.T) {
	cfg := Default()
	cfg.Shell = "/bin/fish"
	if got := cfg.ShellCommand(); got != "/bin/fish" {
		t.Errorf("ShellCommand = %q, want /bin/fish", got)
	}

	cfg.Shell = ""
	t.Setenv("SHELL", "/bin/bash")
	if got := cfg.ShellCommand(); got != "/bin/bash" {
		t.Errorf("ShellCommand = %q, want /bin/bash", got)
	}

	t.Setenv("SHELL", "")
	if got := cfg.ShellCommand(); got != "/bin/sh" {
		t.Errorf("ShellCommand = %q, want /bin/sh", got)
	}
}
