// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: TOML configuration loaded from ~/.config/muxel/config.toml.

package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the multiplexer configuration.
type Config struct {
	// Shell is the command spawned into new panes. Empty means $SHELL,
	// falling back to /bin/sh.
	Shell string `toml:"shell"`
	// ScrollbackLines bounds how many scrolled-out rows each pane
	// retains.
	ScrollbackLines int `toml:"scrollback_lines"`
	// BracketedPaste wraps pastes in bracketed-paste escapes when the
	// application has enabled them.
	BracketedPaste bool `toml:"bracketed_paste"`
	// HistoryDB is the path of the SQLite history index. Empty disables
	// history indexing.
	HistoryDB string `toml:"history_db"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ScrollbackLines: 1000,
		BracketedPaste:  true,
	}
}

// Load reads ~/.config/muxel/config.toml, returning defaults when the
// file does not exist.
func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("Config: failed to resolve user config dir: %v", err)
		return Default(), nil
	}
	return LoadFrom(filepath.Join(configDir, "muxel", "config.toml"))
}

// LoadFrom reads the given TOML file over the defaults. A missing file
// yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config: no config file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	log.Printf("Config: loaded from %s", path)
	return cfg, nil
}

// ShellCommand resolves the shell to spawn: the configured value, then
// $SHELL, then /bin/sh.
func (c *Config) ShellCommand() string {
	if c.Shell != "" {
		return c.Shell
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}
