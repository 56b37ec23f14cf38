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

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mys721tx/prospect-go/pkg/config"
	"github.com/mys721tx/prospect-go/pkg/prospect"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	fn := filepath.Join(t.TempDir(), "prospect.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0o644))

	return fn
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Unpack.ActorID)
	assert.False(t, cfg.Unpack.Force)

	alg, err := cfg.Compression()
	require.NoError(t, err)
	assert.Equal(t, prospect.ZLib, alg)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	fn := writeConfig(t, `
unpack:
  actor_id: true
pack:
  compression: zstd
log:
  level: debug
`)

	cfg, err := config.LoadFile(fn)
	require.NoError(t, err)

	assert.True(t, cfg.Unpack.ActorID)
	assert.False(t, cfg.Unpack.Force)

	alg, err := cfg.Compression()
	require.NoError(t, err)
	assert.Equal(t, prospect.Zstd, alg)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep their defaults")
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"compression", "pack:\n  compression: brotli\n", "pack.compression"},
		{"level", "log:\n  level: loud\n", "log.level"},
		{"format", "log:\n  format: xml\n", "log.format"},
		{"yaml", "unpack: [\n", "parsing"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadFile(writeConfig(t, tc.content))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrUnset)

	t.Setenv(config.EnvVar, writeConfig(t, "unpack:\n  force: true\n"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Unpack.Force)
}
