// Copyright 2025 walteh LLC
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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/slicebatch/pkg/patch"
	"github.com/walteh/slicebatch/pkg/profile"
	"gitlab.com/tozd/go/errors"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("SLICEBATCH_TEST_STORE", "/home/tester/.skeinforge")

	tests := []struct {
		name        string
		filename    string
		config      string
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:     "yaml",
			filename: "batch.yaml",
			config: `
inputs: [models/cube.stl, models/gear.stl]
profiles: [ABS, PLA]
output: out
max_tasks: 4
slicer: [python, craft.py, "{input}"]
patches:
  - "ABS:speed:Feed Rate (mm/s)\\::40"
patch_specs:
  - profile: PLA
    module: carve
    field: "Layer Height (mm):"
    value: "0.2"
recursive: true
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"models/cube.stl", "models/gear.stl"}, cfg.Inputs)
				assert.Equal(t, []string{"ABS", "PLA"}, cfg.Profiles)
				assert.Equal(t, 4, cfg.MaxTasks)
				assert.Equal(t, []string{"python", "craft.py", "{input}"}, cfg.Slicer)
				assert.True(t, cfg.Recursive)

				specs, err := cfg.Specs()
				require.NoError(t, err)
				assert.Equal(t, []patch.Spec{
					{Profile: "ABS", Module: "speed", Field: "Feed Rate (mm/s):", Value: "40"},
					{Profile: "PLA", Module: "carve", Field: "Layer Height (mm):", Value: "0.2"},
				}, specs)
			},
		},
		{
			name:        "yaml_unknown_field",
			filename:    "batch.yml",
			config:      "inputs: [a]\nbogus: true\n",
			errContains: "field bogus not found",
		},
		{
			name:     "hcl_with_env_and_blocks",
			filename: "batch.hcl",
			config: `
inputs     = ["models"]
output     = "out"
user_store = "${env.SLICEBATCH_TEST_STORE}"
slicer     = ["craft", "{input}"]

patch "ABS" {
  module = "speed"
  field  = "Feed Rate (mm/s):"
  value  = format("%d", 40)
}

patch "PLA" {
  module = "cool"
  field  = "Minimum Layer Time (seconds):"
  value  = "60"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/home/tester/.skeinforge", cfg.UserStore)
				assert.Equal(t, []string{"models"}, cfg.Inputs)
				assert.Equal(t, []patch.Spec{
					{Profile: "ABS", Module: "speed", Field: "Feed Rate (mm/s):", Value: "40"},
					{Profile: "PLA", Module: "cool", Field: "Minimum Layer Time (seconds):", Value: "60"},
				}, cfg.PatchSpecs)
			},
		},
		{
			name:        "hcl_unknown_attribute",
			filename:    "batch.hcl",
			config:      `bogus = 1`,
			errContains: "decoding HCL",
		},
		{
			name:     "json",
			filename: "batch.json",
			config:   `{"inputs": ["a.stl"], "profiles": ["PETG"], "max_tasks": 1, "delimiter": ","}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"PETG"}, cfg.Profiles)
				assert.Equal(t, 1, cfg.MaxTasks)
				assert.Equal(t, ",", cfg.Delimiter)
			},
		},
		{
			name:        "unsupported_extension",
			filename:    "batch.toml",
			config:      `inputs = []`,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestLogger(t)
			path := writeFile(t, filepath.Join(t.TempDir(), tt.filename), tt.config)

			cfg, err := Load(ctx, path)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				var pf *PreflightError
				assert.True(t, errors.As(err, &pf), "load errors are preflight errors")
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestOverride(t *testing.T) {
	cfg := &Config{
		Inputs:   []string{"from-file"},
		Profiles: []string{"ABS"},
		MaxTasks: 4,
		Patches:  []string{"ABS:a:b:c"},
	}
	cfg.Override(Config{
		Profiles:  []string{"PLA"},
		Patches:   []string{"PLA:a:b:c"},
		Recursive: true,
	})

	assert.Equal(t, []string{"from-file"}, cfg.Inputs)
	assert.Equal(t, []string{"PLA"}, cfg.Profiles)
	assert.Equal(t, 4, cfg.MaxTasks)
	assert.Equal(t, []string{"ABS:a:b:c", "PLA:a:b:c"}, cfg.Patches)
	assert.True(t, cfg.Recursive)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	user := t.TempDir()
	writeFile(t, filepath.Join(user, "profiles", "extrusion.csv"), "Profile Selection:\tABS\n")
	return &Config{
		Inputs:    []string{"cube.stl"},
		Output:    t.TempDir(),
		Slicer:    []string{"craft"},
		UserStore: user,
	}
}

func TestValidate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := validConfig(t)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 2, cfg.MaxTasks)
		assert.Equal(t, "\t", cfg.Delimiter)
		assert.Equal(t, profile.DefaultIndicatorField, cfg.IndicatorField)
		assert.Equal(t, []string{profile.CurrentlySelected}, cfg.Profiles)
	})

	t.Run("relative_output_made_absolute", func(t *testing.T) {
		cfg := validConfig(t)
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(filepath.Dir(cfg.Output)))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		cfg.Output = filepath.Base(cfg.Output)
		require.NoError(t, cfg.Validate())
		assert.True(t, filepath.IsAbs(cfg.Output))
		assert.DirExists(t, cfg.Output)
	})

	tests := []struct {
		name        string
		mutate      func(cfg *Config)
		errContains string
	}{
		{name: "no_inputs", mutate: func(cfg *Config) { cfg.Inputs = nil }, errContains: "at least one input"},
		{name: "negative_tasks", mutate: func(cfg *Config) { cfg.MaxTasks = -1 }, errContains: "max tasks"},
		{name: "no_slicer", mutate: func(cfg *Config) { cfg.Slicer = nil }, errContains: "slicer command"},
		{name: "no_output", mutate: func(cfg *Config) { cfg.Output = "" }, errContains: "output directory is required"},
		{name: "missing_output", mutate: func(cfg *Config) { cfg.Output = filepath.Join(cfg.Output, "nope") }, errContains: "output directory"},
		{name: "missing_local_store", mutate: func(cfg *Config) { cfg.LocalStore = "/definitely/not/here" }, errContains: "local profile store"},
		{name: "missing_shared", mutate: func(cfg *Config) { cfg.SharedContainer = "/definitely/not/here.csv" }, errContains: "shared profile container"},
		{name: "bad_patch", mutate: func(cfg *Config) { cfg.Patches = []string{"ABS:speed"} }, errContains: "invalid patch"},
		{name: "empty_profile", mutate: func(cfg *Config) { cfg.Profiles = []string{"ABS", " "} }, errContains: "profile names"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)

			var pf *PreflightError
			assert.True(t, errors.As(err, &pf))
		})
	}
}

func TestStore(t *testing.T) {
	cfg := &Config{UserStore: "/u", LocalStore: "/l", SharedContainer: "/s.csv"}
	assert.Equal(t, profile.Store{UserDir: "/u", LocalDir: "/l", SharedPath: "/s.csv"}, cfg.Store())
}
