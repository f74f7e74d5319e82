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

// Package scheduler admits work in order onto a bounded number of worker
// slots and drains every started worker before returning.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxTasks is the slot count used when none is configured.
const DefaultMaxTasks = 2

// Worker processes one item. A returned error marks that item failed and
// nothing else.
type Worker[T any] func(ctx context.Context, item T) error

// 📊 Stats summarizes one RunAll call.
type Stats struct {
	Started   int
	Succeeded int
	Failed    int
	// Peak is the highest number of workers observed running at once.
	Peak int
}

// 🚦 RunAll starts fn for each item in order, never running more than
// maxTasks at once. When every slot is taken it blocks until one frees. It
// always waits for every started worker before returning. A worker's failure
// never cancels its siblings; RunAll itself fails only when ctx ends while it
// is waiting for a slot, in which case the remaining items are not started.
func RunAll[T any](ctx context.Context, items []T, maxTasks int, fn Worker[T]) (Stats, error) {
	if maxTasks < 1 {
		return Stats{}, errors.Errorf("max tasks must be at least 1, got %d", maxTasks)
	}

	logger := zerolog.Ctx(ctx)

	var (
		sem     = semaphore.NewWeighted(int64(maxTasks))
		g       errgroup.Group
		running atomic.Int64
		peak    atomic.Int64
		mu      sync.Mutex
		stats   Stats
		waitErr error
	)

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			waitErr = errors.Errorf("waiting for a worker slot (%d of %d started): %w", i, len(items), err)
			break
		}

		now := running.Add(1)
		for {
			p := peak.Load()
			if now <= p || peak.CompareAndSwap(p, now) {
				break
			}
		}

		mu.Lock()
		stats.Started++
		mu.Unlock()

		logger.Trace().Int("index", i).Int64("running", now).Msg("admitted worker")

		g.Go(func() error {
			defer sem.Release(1)
			defer running.Add(-1)

			err := runOne(ctx, fn, item)

			mu.Lock()
			if err != nil {
				stats.Failed++
			} else {
				stats.Succeeded++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	stats.Peak = int(peak.Load())
	return stats, waitErr
}

// runOne turns a worker panic into a failure so its slot is still released.
func runOne[T any](ctx context.Context, fn Worker[T], item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("worker panicked: %s", fmt.Sprint(r))
			zerolog.Ctx(ctx).Error().Err(err).Msg("worker panicked")
		}
	}()
	return fn(ctx, item)
}
