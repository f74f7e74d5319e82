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

// Package patch applies temporary field overrides to per-profile module
// containers and reverts them once the profile's batch has drained.
package patch

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/slicebatch/pkg/backup"
	"github.com/walteh/slicebatch/pkg/field"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrModuleNotFound is reported when no store holds the patch's module container.
	ErrModuleNotFound = errors.Base("module not found")
	// ErrFieldNotFound is reported when the module container lacks the patch's field.
	ErrFieldNotFound = errors.Base("field not found")
)

// State is the lifecycle of one profile's patch set.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateApplied
	StateReverted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateApplied:
		return "applied"
	case StateReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// ValidationError reports a patch that was skipped because its target does not exist.
type ValidationError struct {
	Spec Spec
	Kind error
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Spec.String() + ": " + e.Err.Error()
	}
	return e.Kind.Error() + ": " + e.Spec.String()
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Skip is a patch that was not applied.
type Skip struct {
	Spec Spec
	Err  error
}

// 📋 Report describes the outcome of one Apply call.
type Report struct {
	Profile    string
	Applied    []Spec
	Skipped    []Skip
	Containers []string
}

// Locator resolves a module container for a profile. profile.Store satisfies it.
type Locator interface {
	ModulePath(profile, module string) (string, bool, error)
}

// 🩹 Manager applies and reverts patch sets, one profile at a time. It never
// runs while workers are active; callers serialize Apply and Revert with the
// batch they bracket.
type Manager struct {
	locator   Locator
	guard     *backup.Guard
	delimiter string

	mu      sync.Mutex
	states  map[string]State
	touched map[string][]string
}

// 🏭 NewManager creates a manager. Every container it backs up is registered
// with guard so it is restored even if Revert is never reached.
func NewManager(locator Locator, guard *backup.Guard, delimiter string) *Manager {
	if delimiter == "" {
		delimiter = field.DefaultDelimiter
	}
	return &Manager{
		locator:   locator,
		guard:     guard,
		delimiter: delimiter,
		states:    make(map[string]State),
		touched:   make(map[string][]string),
	}
}

// State returns the lifecycle state of profile's patch set.
func (m *Manager) State(profile string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[profile]
}

// Touched returns the containers mutated for profile, in first-touch order.
func (m *Manager) Touched(profile string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.touched[profile]))
	copy(out, m.touched[profile])
	return out
}

func (m *Manager) setState(profile string, s State) {
	m.mu.Lock()
	m.states[profile] = s
	m.mu.Unlock()
}

func (m *Manager) markTouched(profile, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.touched[profile] {
		if p == path {
			return
		}
	}
	m.touched[profile] = append(m.touched[profile], path)
}

func (m *Manager) container(path string) *field.Container {
	return &field.Container{Path: path, Delimiter: m.delimiter}
}

// validate locates the patch's container and confirms the field exists. It
// never mutates anything.
func (m *Manager) validate(ctx context.Context, s Spec) (string, error) {
	path, found, err := m.locator.ModulePath(s.Profile, s.Module)
	if err != nil {
		return "", &ValidationError{Spec: s, Kind: ErrModuleNotFound, Err: err}
	}
	if !found {
		return "", &ValidationError{Spec: s, Kind: ErrModuleNotFound}
	}

	if _, err := m.container(path).ReadField(ctx, s.Field); err != nil {
		if errors.Is(err, field.ErrFieldNotFound) {
			return "", &ValidationError{Spec: s, Kind: ErrFieldNotFound, Err: m.suggest(ctx, path, s.Field)}
		}
		return "", &ValidationError{Spec: s, Kind: ErrModuleNotFound, Err: err}
	}
	return path, nil
}

// suggest names a record that differs from want only in case, spacing or a
// trailing colon. It returns nil when there is none.
func (m *Manager) suggest(ctx context.Context, path, want string) error {
	records, err := m.container(path).Records(ctx)
	if err != nil {
		return nil
	}
	key := fieldKey(want)
	for _, r := range records {
		if r.Name != "" && fieldKey(r.Name) == key {
			return errors.Errorf("did you mean %q", r.Name)
		}
	}
	return nil
}

func fieldKey(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ✅ Apply validates and applies every spec owned by profile. Each spec is
// validated on its own: a skipped spec never blocks the others. A container
// is backed up before its first mutation and never again during the run.
// Only context cancellation fails the call.
func (m *Manager) Apply(ctx context.Context, profile string, specs []Spec) (*Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("profile", profile).Logger()

	m.setState(profile, StateValidating)
	report := &Report{Profile: profile}

	for _, s := range ForProfile(specs, profile) {
		if err := ctx.Err(); err != nil {
			return report, errors.Errorf("applying patches for %s: %w", profile, err)
		}

		path, err := m.validate(ctx, s)
		if err != nil {
			logger.Warn().Err(err).Str("patch", s.String()).Msg("skipping patch")
			report.Skipped = append(report.Skipped, Skip{Spec: s, Err: err})
			continue
		}

		if _, err := m.guard.Protect(ctx, path); err != nil {
			err = errors.Errorf("backing up %s: %w", path, err)
			logger.Error().Err(err).Str("patch", s.String()).Msg("skipping patch")
			report.Skipped = append(report.Skipped, Skip{Spec: s, Err: err})
			continue
		}

		if err := m.container(path).SetField(ctx, s.Field, s.Value); err != nil {
			err = errors.Errorf("setting %s in %s: %w", s.Field, path, err)
			logger.Error().Err(err).Str("patch", s.String()).Msg("skipping patch")
			report.Skipped = append(report.Skipped, Skip{Spec: s, Err: err})
			continue
		}

		m.markTouched(profile, path)
		report.Applied = append(report.Applied, s)

		if logger.GetLevel() <= zerolog.DebugLevel {
			if diff, err := backup.Diff(path); err == nil {
				logger.Debug().Str("container", path).Str("diff", diff).Msg("patched container")
			}
		}
	}

	report.Containers = m.Touched(profile)
	m.setState(profile, StateApplied)
	return report, nil
}

// ♻️ Revert restores every container targeted by profile's specs that has a
// pending backup, and returns how many were restored. Reverting an already
// reverted set restores nothing.
func (m *Manager) Revert(ctx context.Context, profile string, specs []Spec) (int, error) {
	logger := zerolog.Ctx(ctx).With().Str("profile", profile).Logger()

	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, p := range m.Touched(profile) {
		add(p)
	}
	for _, s := range ForProfile(specs, profile) {
		path, found, err := m.locator.ModulePath(s.Profile, s.Module)
		if err != nil || !found {
			continue
		}
		add(path)
	}

	var (
		restored int
		errs     []error
	)
	for _, path := range paths {
		ok, err := backup.Restore(ctx, path)
		if err != nil {
			logger.Error().Err(err).Str("container", path).Msg("reverting container")
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		restored++
		if err := m.guard.Verify(path); err != nil {
			logger.Error().Err(err).Str("container", path).Msg("verifying reverted container")
			errs = append(errs, err)
		}
	}

	m.setState(profile, StateReverted)

	if len(errs) > 0 {
		return restored, errors.Join(errs...)
	}
	return restored, nil
}
