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

package orchestrator

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/slicebatch/pkg/backup"
	"github.com/walteh/slicebatch/pkg/config"
	"github.com/walteh/slicebatch/pkg/lock"
	"github.com/walteh/slicebatch/pkg/profile"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Pending lists every container in store with an outstanding backup.
func Pending(store profile.Store) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, root := range store.Roots() {
		found, err := backup.Scan(root)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}

	shared := store.SharedContainer()
	if !seen[shared] {
		ok, err := backup.Pending(shared)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, shared)
		}
	}

	sort.Strings(out)
	return out, nil
}

// ♻️ Recover restores every outstanding backup in store, as left behind by
// a run that was killed before it could restore. It refuses to run while
// another run holds the store.
func Recover(ctx context.Context, store profile.Store) ([]string, error) {
	pidLock, err := lock.Acquire(lock.PathFor(store.UserDir))
	if err != nil {
		return nil, &config.PreflightError{Reason: "locking profile store", Err: err}
	}
	defer pidLock.Release()

	pending, err := Pending(store)
	if err != nil {
		return nil, errors.Errorf("scanning for backups: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	var (
		restored []string
		errs     []error
	)
	for _, p := range pending {
		ok, err := backup.Restore(ctx, p)
		if err != nil {
			logger.Error().Err(err).Str("container", p).Msg("recovering container")
			errs = append(errs, err)
			continue
		}
		if ok {
			restored = append(restored, p)
		}
	}

	if len(errs) > 0 {
		return restored, errors.Join(errs...)
	}
	return restored, nil
}
