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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/mys721tx/prospect-go/pkg/config"
	"github.com/mys721tx/prospect-go/pkg/parts"
)

const usg = `Usage: %[1]s [flags] unpack <prospect.json> <partsDir>
   Or: %[1]s [flags] pack <partsDir> <prospect.json>
   Or: %[1]s [flags] verify <prospect.json> <partsDir>

Flags:
%[2]s`

// flags holds the command line. Settings are applied over the config file
// only when given.
type flags struct {
	set         *pflag.FlagSet
	actorID     bool
	force       bool
	compression string
	configPath  string
	logLevel    string
	logFormat   string
}

func newFlags(stderr io.Writer) *flags {
	f := &flags{set: pflag.NewFlagSet("prospect", pflag.ContinueOnError)}

	f.set.SetOutput(stderr)
	f.set.BoolVar(&f.actorID, "actor-id", false, "name recorder files by actor ID instead of position (unpack)")
	f.set.BoolVar(&f.force, "force", false, "replace a non-empty parts directory (unpack)")
	f.set.StringVar(&f.compression, "compression", "zlib", "blob compression: zlib, lz4, zstd or none (pack)")
	f.set.StringVar(&f.configPath, "config", "", "YAML config file (default: $"+config.EnvVar+")")
	f.set.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	f.set.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	f.set.BoolP("help", "h", false, "show help")

	return f
}

// config loads the config file and applies the flags given over it.
func (f *flags) config() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else if cfg, err = config.Load(); errors.Is(err, config.ErrUnset) {
		cfg, err = config.Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f.set.Changed("actor-id") {
		cfg.Unpack.ActorID = f.actorID
	}

	if f.set.Changed("force") {
		cfg.Unpack.Force = f.force
	}

	if f.set.Changed("compression") {
		cfg.Pack.Compression = f.compression
	}

	if f.set.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}

	if f.set.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	f := newFlags(stderr)

	printUsage := func() {
		fmt.Fprintf(stderr, usg, "prospect", f.set.FlagUsages())
	}

	if err := f.set.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage()

			return nil
		}

		printUsage()

		return err
	}

	if help, _ := f.set.GetBool("help"); help {
		printUsage()

		return nil
	}

	if f.set.NArg() != 3 {
		printUsage()

		return fmt.Errorf("expecting an action and two paths, got %d arguments", f.set.NArg())
	}

	cfg, err := f.config()
	if err != nil {
		return err
	}

	alg, _ := cfg.Compression()

	opts := parts.Options{
		UseActorID:  cfg.Unpack.ActorID,
		Compression: alg,
		Logger:      newLogger(cfg, stderr),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	action, src, dst := f.set.Arg(0), f.set.Arg(1), f.set.Arg(2)

	switch action {
	case "unpack":
		return unpack(ctx, src, dst, cfg.Unpack.Force, opts)
	case "pack":
		return parts.Pack(ctx, src, dst, opts)
	case "verify":
		return verify(ctx, src, dst, opts)
	default:
		printUsage()

		return fmt.Errorf("unknown action %q", action)
	}
}

// unpack refuses to clear a non-empty parts directory unless forced.
func unpack(ctx context.Context, fn, dir string, force bool, opts parts.Options) error {
	entries, err := os.ReadDir(dir)

	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return err
	case len(entries) > 0 && !force:
		return fmt.Errorf("%s is not empty; use --force to replace its content", dir)
	case len(entries) > 0:
		opts.Logger.Warn("replacing parts directory", "dir", dir)
	}

	return parts.Unpack(ctx, fn, dir, opts)
}

func verify(ctx context.Context, fn, dir string, opts parts.Options) error {
	r, err := parts.Verify(ctx, fn, dir, opts)
	if err != nil {
		return err
	}

	if !r.Match() {
		return fmt.Errorf("%s does not match %s: digest %s, want %s", dir, fn, r.PartsDigest, r.ContainerDigest)
	}

	opts.Logger.Info("parts match prospect", "path", fn, "dir", dir, "digest", r.ContainerDigest)

	return nil
}
