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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/slicebatch/pkg/field"
	"github.com/walteh/slicebatch/pkg/patch"
	"github.com/walteh/slicebatch/pkg/profile"
	"github.com/walteh/slicebatch/pkg/scheduler"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// PreflightError reports a problem found before any container is touched.
type PreflightError struct {
	Reason string
	Err    error
}

func (e *PreflightError) Error() string {
	if e.Err != nil {
		return "preflight: " + e.Reason + ": " + e.Err.Error()
	}
	return "preflight: " + e.Reason
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

func preflight(err error, format string, args ...any) error {
	return &PreflightError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// 📚 Config is everything a batch run needs
type Config struct {
	Inputs          []string     `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Profiles        []string     `json:"profiles,omitempty" yaml:"profiles,omitempty"`
	Output          string       `json:"output,omitempty" yaml:"output,omitempty"`
	Patches         []string     `json:"patches,omitempty" yaml:"patches,omitempty"`
	PatchSpecs      []patch.Spec `json:"patch_specs,omitempty" yaml:"patch_specs,omitempty"`
	MaxTasks        int          `json:"max_tasks,omitempty" yaml:"max_tasks,omitempty"`
	Slicer          []string     `json:"slicer,omitempty" yaml:"slicer,omitempty"`
	UserStore       string       `json:"user_store,omitempty" yaml:"user_store,omitempty"`
	LocalStore      string       `json:"local_store,omitempty" yaml:"local_store,omitempty"`
	SharedContainer string       `json:"shared_container,omitempty" yaml:"shared_container,omitempty"`
	IndicatorField  string       `json:"indicator_field,omitempty" yaml:"indicator_field,omitempty"`
	Delimiter       string       `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Recursive       bool         `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	Include         []string     `json:"include,omitempty" yaml:"include,omitempty"`
}

// 🎯 Load reads a run file. The result is not validated; flags are usually
// layered on with Override first.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, preflight(err, "reading config file %s", path)
	}

	p := GetParser(path)
	if p == nil {
		return nil, preflight(nil, "no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, preflight(err, "parsing config %s", path)
	}
	return cfg, nil
}

// Override copies every non-zero field of o over cfg.
func (cfg *Config) Override(o Config) {
	if len(o.Inputs) > 0 {
		cfg.Inputs = o.Inputs
	}
	if len(o.Profiles) > 0 {
		cfg.Profiles = o.Profiles
	}
	if o.Output != "" {
		cfg.Output = o.Output
	}
	if len(o.Patches) > 0 {
		cfg.Patches = append(cfg.Patches, o.Patches...)
	}
	if len(o.PatchSpecs) > 0 {
		cfg.PatchSpecs = append(cfg.PatchSpecs, o.PatchSpecs...)
	}
	if o.MaxTasks != 0 {
		cfg.MaxTasks = o.MaxTasks
	}
	if len(o.Slicer) > 0 {
		cfg.Slicer = o.Slicer
	}
	if o.UserStore != "" {
		cfg.UserStore = o.UserStore
	}
	if o.LocalStore != "" {
		cfg.LocalStore = o.LocalStore
	}
	if o.SharedContainer != "" {
		cfg.SharedContainer = o.SharedContainer
	}
	if o.IndicatorField != "" {
		cfg.IndicatorField = o.IndicatorField
	}
	if o.Delimiter != "" {
		cfg.Delimiter = o.Delimiter
	}
	if o.Recursive {
		cfg.Recursive = true
	}
	if len(o.Include) > 0 {
		cfg.Include = o.Include
	}
}

// ApplyDefaults fills unset values. It never fails on missing paths.
func (cfg *Config) ApplyDefaults() error {
	if cfg.MaxTasks == 0 {
		cfg.MaxTasks = scheduler.DefaultMaxTasks
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = field.DefaultDelimiter
	}
	if cfg.IndicatorField == "" {
		cfg.IndicatorField = profile.DefaultIndicatorField
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = []string{profile.CurrentlySelected}
	}
	if cfg.UserStore == "" {
		dir, err := profile.DefaultUserDir()
		if err != nil {
			return preflight(err, "locating user profile store")
		}
		cfg.UserStore = dir
	}

	cfg.UserStore = filepath.Clean(cfg.UserStore)
	if cfg.LocalStore != "" {
		cfg.LocalStore = filepath.Clean(cfg.LocalStore)
	}
	if cfg.Output != "" {
		out, err := filepath.Abs(cfg.Output)
		if err != nil {
			return preflight(err, "resolving output directory %s", cfg.Output)
		}
		cfg.Output = out
	}
	return nil
}

// 🔍 Validate applies defaults and checks everything that must hold before
// any container is mutated. Every failure is a *PreflightError.
func (cfg *Config) Validate() error {
	if err := cfg.ApplyDefaults(); err != nil {
		return err
	}

	if len(cfg.Inputs) == 0 {
		return preflight(nil, "at least one input is required")
	}
	if cfg.MaxTasks < 1 {
		return preflight(nil, "max tasks must be at least 1, got %d", cfg.MaxTasks)
	}
	if len(cfg.Slicer) == 0 || strings.TrimSpace(cfg.Slicer[0]) == "" {
		return preflight(nil, "slicer command is required")
	}
	for _, p := range cfg.Profiles {
		if strings.TrimSpace(p) == "" {
			return preflight(nil, "profile names must not be empty")
		}
	}

	if cfg.Output == "" {
		return preflight(nil, "output directory is required")
	}
	if err := requireDir(cfg.Output, "output directory"); err != nil {
		return err
	}
	if err := requireDir(cfg.UserStore, "user profile store"); err != nil {
		return err
	}
	if cfg.LocalStore != "" {
		if err := requireDir(cfg.LocalStore, "local profile store"); err != nil {
			return err
		}
	}

	shared := cfg.Store().SharedContainer()
	if info, err := os.Stat(shared); err != nil || info.IsDir() {
		return preflight(err, "shared profile container %s is missing", shared)
	}

	if _, err := cfg.Specs(); err != nil {
		return preflight(err, "invalid patch")
	}
	return nil
}

func requireDir(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return preflight(err, "%s %s is missing", what, path)
	}
	if !info.IsDir() {
		return preflight(nil, "%s %s is not a directory", what, path)
	}
	return nil
}

// Store returns the profile store layout described by the config.
func (cfg *Config) Store() profile.Store {
	return profile.Store{
		UserDir:    cfg.UserStore,
		LocalDir:   cfg.LocalStore,
		SharedPath: cfg.SharedContainer,
	}
}

// Specs parses the raw patches and appends the structured ones.
func (cfg *Config) Specs() ([]patch.Spec, error) {
	specs, err := patch.ParseSpecs(cfg.Patches)
	if err != nil {
		return nil, err
	}
	for _, s := range cfg.PatchSpecs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%d input(s) x %v -> %s (max %d)", len(cfg.Inputs), cfg.Profiles, cfg.Output, cfg.MaxTasks)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

// 📝 Parse parses the config from YAML
func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}
