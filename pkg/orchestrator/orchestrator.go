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

// Package orchestrator drives a batch run: for each profile it selects the
// profile, applies its patches, runs every input through the slicer, drains,
// and reverts. Configuration is only ever mutated while no job is running.
package orchestrator

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/walteh/slicebatch/pkg/backup"
	"github.com/walteh/slicebatch/pkg/config"
	"github.com/walteh/slicebatch/pkg/discover"
	"github.com/walteh/slicebatch/pkg/field"
	"github.com/walteh/slicebatch/pkg/job"
	"github.com/walteh/slicebatch/pkg/lock"
	"github.com/walteh/slicebatch/pkg/log"
	"github.com/walteh/slicebatch/pkg/patch"
	"github.com/walteh/slicebatch/pkg/profile"
	"github.com/walteh/slicebatch/pkg/scheduler"
	"github.com/walteh/slicebatch/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// ErrInterrupted is returned when the run was cancelled before it finished.
var ErrInterrupted = errors.Base("interrupted")

// Exit codes.
const (
	ExitOK          = 0
	ExitPreflight   = 1
	ExitInterrupted = 2
)

// ExitCode maps a Run error to the process exit code. Job failures never
// reach here, so a nil error is always ExitOK.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInterrupted):
		return ExitInterrupted
	default:
		return ExitPreflight
	}
}

// 🎼 Orchestrator runs one batch.
type Orchestrator struct {
	cfg     *config.Config
	console *log.Logger
}

// 🏭 New creates an orchestrator for a validated config. A nil console prints nothing.
func New(cfg *config.Config, console *log.Logger) *Orchestrator {
	if console == nil {
		console = log.Discard()
	}
	return &Orchestrator{cfg: cfg, console: console}
}

// 🚀 Run executes the batch. Only preflight problems, a failure to back up
// the shared container, a failed restoration or an interrupt produce an
// error; patch and job failures are reported through the tracker.
func (o *Orchestrator) Run(ctx context.Context) (tracker *status.Tracker, err error) {
	cfg := o.cfg
	logger := zerolog.Ctx(ctx)
	tracker = status.NewTracker(logger)

	inputs, err := discover.Inputs(ctx, cfg.Inputs, discover.Options{Recursive: cfg.Recursive, Include: cfg.Include})
	if err != nil {
		return tracker, preflight(ctx, "discovering inputs", err)
	}

	specs, err := cfg.Specs()
	if err != nil {
		return tracker, preflight(ctx, "parsing patches", err)
	}

	converter, err := job.NewConverter(cfg.Output, cfg.Slicer)
	if err != nil {
		return tracker, preflight(ctx, "preparing slicer", err)
	}

	pidLock, err := lock.Acquire(lock.PathFor(cfg.UserStore))
	if err != nil {
		return tracker, preflight(ctx, "locking profile store", err)
	}
	if ctx.Err() != nil {
		_ = pidLock.Release()
		return tracker, interrupted(ctx)
	}
	defer func() {
		if lerr := pidLock.Release(); lerr != nil {
			logger.Warn().Err(lerr).Msg("releasing store lock")
		}
	}()

	store := cfg.Store()
	o.warnStale(ctx, store)

	guard := backup.NewGuard()
	// the guard restores on every exit path, including cancellation
	defer func() {
		if rerr := guard.Release(context.WithoutCancel(ctx)); rerr != nil {
			o.console.Errorf("restoring profile containers: %v", rerr)
			err = errors.Join(err, rerr)
		}
	}()

	shared := &field.Container{Path: store.SharedContainer(), Delimiter: cfg.Delimiter}
	if _, err := guard.Protect(ctx, shared.Path); err != nil {
		return tracker, errors.Errorf("backing up shared container: %w", err)
	}

	selector := profile.NewSelector(shared, cfg.IndicatorField)
	manager := patch.NewManager(store, guard, cfg.Delimiter)

	o.console.Header(cfg.String())

	for _, name := range cfg.Profiles {
		if ctx.Err() != nil {
			break
		}
		o.runProfile(ctx, name, inputs, specs, selector, manager, converter, tracker)
	}

	tracked := guard.Tracked()
	logger.Debug().Strs("containers", tracked).Msg("restoring profile containers")
	if rerr := guard.Release(context.WithoutCancel(ctx)); rerr != nil {
		return tracker, errors.Errorf("restoring profile containers: %w", rerr)
	}
	o.console.Infof("restored %d profile container(s)", len(tracked))

	if ctx.Err() != nil {
		o.console.Warning("interrupted, profile containers restored")
		return tracker, interrupted(ctx)
	}

	if n := tracker.Failed(); n > 0 {
		o.console.Warningf("%d job(s) failed, see their logs", n)
	} else {
		o.console.Success("all jobs finished")
	}
	return tracker, nil
}

// preflight wraps a setup failure, unless the failure came from an interrupt.
func preflight(ctx context.Context, reason string, err error) error {
	if ctx.Err() != nil {
		return interrupted(ctx)
	}
	return &config.PreflightError{Reason: reason, Err: err}
}

func interrupted(ctx context.Context) error {
	return errors.Errorf("%w: %s", ErrInterrupted, context.Cause(ctx))
}

func (o *Orchestrator) runProfile(
	ctx context.Context,
	name string,
	inputs []string,
	specs []patch.Spec,
	selector *profile.Selector,
	manager *patch.Manager,
	converter *job.Converter,
	tracker *status.Tracker,
) {
	logger := zerolog.Ctx(ctx)

	active, err := selector.Select(ctx, name)
	if err != nil {
		o.console.Errorf("selecting profile %s: %v", name, err)
		tracker.BeginProfile(name)
		return
	}
	tracker.BeginProfile(active)

	owned := patch.ForProfile(specs, active)
	report, err := manager.Apply(ctx, active, specs)
	o.reportPatches(ctx, active, report, tracker)

	// revert runs even when apply or the batch was interrupted
	defer func() {
		restored, rerr := manager.Revert(context.WithoutCancel(ctx), active, specs)
		if rerr != nil {
			o.console.Errorf("reverting patches for %s: %v", active, rerr)
		}
		tracker.TrackRevert(ctx, active, restored)
		tracker.FinishOperation(ctx)
		o.console.EndProfile(ctx)
	}()

	jobs := job.Plan(active, inputs)
	o.console.StartProfile(ctx, log.ProfileOperation{Name: active, Patches: len(owned), Jobs: len(jobs)})
	tracker.StartOperation(ctx, len(jobs))

	if err != nil {
		logger.Warn().Err(err).Str("profile", active).Msg("patching interrupted")
		return
	}

	stats, err := scheduler.RunAll(ctx, jobs, o.cfg.MaxTasks, func(ctx context.Context, j job.Job) error {
		res, err := converter.Run(ctx, j)
		o.reportJob(ctx, j, res, err, tracker)
		return err
	})
	if err != nil {
		logger.Warn().Err(err).Str("profile", active).Msg("batch stopped early")
	}
	logger.Debug().
		Str("profile", active).
		Int("started", stats.Started).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Int("peak", stats.Peak).
		Msg("batch drained")
}

func (o *Orchestrator) reportPatches(ctx context.Context, profileName string, report *patch.Report, tracker *status.Tracker) {
	if report == nil {
		return
	}
	for _, s := range report.Applied {
		o.console.LogPatch(ctx, log.PatchOperation{Spec: s.String(), Profile: profileName})
		tracker.TrackPatch(ctx, status.PatchRecord{Spec: s.String(), Profile: profileName, Applied: true})
	}
	for _, sk := range report.Skipped {
		o.console.LogPatch(ctx, log.PatchOperation{Spec: sk.Spec.String(), Profile: profileName, Skipped: true, Reason: sk.Err.Error()})
		tracker.TrackPatch(ctx, status.PatchRecord{Spec: sk.Spec.String(), Profile: profileName, Error: sk.Err})
	}
}

func (o *Orchestrator) reportJob(ctx context.Context, j job.Job, res *job.Result, err error, tracker *status.Tracker) {
	rec := status.JobRecord{Input: j.Input, Profile: j.Profile, Status: status.JobSucceeded, ExitCode: 0}
	op := log.JobOperation{Input: filepath.Base(j.Input), Profile: j.Profile, Status: "done"}

	if res != nil {
		rec.LogPath = res.Layout.Log
		rec.Duration = res.Duration
		op.LogPath = res.Layout.Log
		op.Duration = res.Duration
	}

	if err != nil {
		rec.Status = status.JobFailed
		rec.Error = err
		rec.ExitCode = -1
		op.Failed = true
		op.Status = "failed"

		var jerr *job.Error
		if errors.As(err, &jerr) {
			rec.ExitCode = jerr.ExitCode
			rec.LogPath = jerr.LogPath
			op.LogPath = jerr.LogPath
			if jerr.ExitCode >= 0 {
				op.Status = "exit " + strconv.Itoa(jerr.ExitCode)
			}
		}
		o.console.Errorf("%v", err)
	}

	o.console.LogJob(ctx, op)
	tracker.TrackJob(ctx, rec)
}

func (o *Orchestrator) warnStale(ctx context.Context, store profile.Store) {
	pending, err := Pending(store)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("scanning for stale backups")
		return
	}
	for _, p := range pending {
		o.console.Warningf("stale backup found for %s, its backup will be treated as the original", p)
	}
}
