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

package backup

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrDigestMismatch is returned when a restored container differs from the
// content it had when it was first protected.
var ErrDigestMismatch = errors.Base("restored content does not match original")

// 🛡️ Guard owns every backup taken during a run and restores all of them
// exactly once when released, whatever the exit path.
type Guard struct {
	mu       sync.Mutex
	order    []string
	digests  map[string]string
	released bool
}

// 🏭 NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{digests: make(map[string]string)}
}

// Protect backs up path (reusing an existing backup) and registers it for
// restoration. It reports whether a new backup was created.
func (g *Guard) Protect(ctx context.Context, path string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return false, errors.Errorf("guard already released, refusing to protect %s", path)
	}

	created, err := Create(ctx, path)
	if err != nil {
		return false, err
	}

	if _, ok := g.digests[path]; !ok {
		// the backup holds the original content whether or not it was just made
		digest, err := Digest(Path(path))
		if err != nil {
			return created, err
		}
		g.digests[path] = digest
		g.order = append(g.order, path)
	}

	return created, nil
}

// Tracked returns the registered paths in protection order.
func (g *Guard) Tracked() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Verify checks that path currently holds its original content.
func (g *Guard) Verify(path string) error {
	g.mu.Lock()
	want, ok := g.digests[path]
	g.mu.Unlock()
	if !ok {
		return nil
	}

	got, err := Digest(path)
	if err != nil {
		return err
	}
	if got != want {
		return errors.Errorf("%w: %s", ErrDigestMismatch, path)
	}
	return nil
}

// ♻️ Release restores every registered path that still has a backup, most
// recent first. Later calls are no-ops.
func (g *Guard) Release(ctx context.Context) error {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return nil
	}
	g.released = true
	order := make([]string, len(g.order))
	copy(order, g.order)
	g.mu.Unlock()

	logger := zerolog.Ctx(ctx)

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		path := order[i]
		restored, err := Restore(ctx, path)
		if err != nil {
			logger.Error().Err(err).Str("path", path).Msg("restoring backup")
			errs = append(errs, err)
			continue
		}
		if !restored {
			continue
		}
		if err := g.Verify(path); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("verifying restored content")
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
