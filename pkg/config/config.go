// prospect-go: Icarus prospect save edit suite
// Copyright (C) 2018  Yishen Miao
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config loads the prospect tool's YAML configuration.
//
// The file is named by the --config flag or the PROSPECT_CONFIG environment
// variable. Without either the defaults apply. Command-line flags override
// whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mys721tx/prospect-go/pkg/prospect"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "PROSPECT_CONFIG"

// ErrUnset is returned by Load when EnvVar is empty.
var ErrUnset = errors.New(EnvVar + " environment variable not set")

// Config is the tool's configuration.
type Config struct {
	Unpack UnpackConfig `yaml:"unpack"`
	Pack   PackConfig   `yaml:"pack"`
	Log    LogConfig    `yaml:"log"`
}

// UnpackConfig configures the unpack action.
type UnpackConfig struct {
	// ActorID names recorder files by their actor ID instead of their
	// position.
	ActorID bool `yaml:"actor_id"`

	// Force allows unpacking over a non-empty parts directory.
	Force bool `yaml:"force"`
}

// PackConfig configures the pack action.
type PackConfig struct {
	// Compression is the blob algorithm: zlib, lz4, zstd or none.
	// Default: zlib
	Compression string `yaml:"compression"`
}

// LogConfig configures logging on stderr.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Pack: PackConfig{Compression: "zlib"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load loads the file named by EnvVar.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, ErrUnset
	}

	return LoadFile(path)
}

// LoadFile loads the file at path over the defaults and validates the
// result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Compression(); err != nil {
		errs = append(errs, fmt.Errorf("pack.compression: %w", err))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Compression returns the configured blob algorithm.
func (c *Config) Compression() (prospect.Algorithm, error) {
	return prospect.ParseAlgorithm(c.Pack.Compression)
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level

	err := l.UnmarshalText([]byte(c.Log.Level))

	return l, err
}
