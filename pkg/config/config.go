// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config loads the triage tool configuration file. The file is JSON
// with #-comment lines allowed; unknown fields are rejected so typos do not
// silently disable options.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/helixscreen/triage/pkg/platform"
)

type Config struct {
	// DataDir is the directory holding uploaded telemetry events.
	// If empty, the tools look for .telemetry-data/events under the
	// enclosing project checkout.
	DataDir string `json:"data_dir"`
	// StoreURL overrides the symbol store base URL.
	StoreURL string `json:"store_url"`
	// CacheDir overrides where downloaded symbol files are kept.
	CacheDir string `json:"cache_dir"`
	// Platform forces one address-space layout ("pi" or "pi32") instead
	// of per-device detection.
	Platform string `json:"platform"`
}

func LoadFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no config file specified")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadData(data)
}

func LoadData(data []byte) (*Config, error) {
	// Remove comment lines starting with #.
	data = regexp.MustCompile(`(^|\n)\s*#[^\n]*`).ReplaceAll(data, nil)
	cfg := new(Config)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Complete(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Complete validates the loaded values and normalizes platform aliases.
func (cfg *Config) Complete() error {
	if cfg.StoreURL != "" {
		u, err := url.Parse(cfg.StoreURL)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("invalid store_url %q", cfg.StoreURL)
		}
	}
	if cfg.Platform != "" {
		p := platform.Normalize(cfg.Platform)
		if p != platform.Pi && p != platform.Pi32 {
			return fmt.Errorf("unknown platform %q (want pi or pi32)", cfg.Platform)
		}
		cfg.Platform = string(p)
	}
	return nil
}
