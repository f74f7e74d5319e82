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

package status

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 📊 JobStatus is the terminal state of a job
type JobStatus int

const (
	JobPending JobStatus = iota
	JobSucceeded
	JobFailed
)

// String returns a string representation of JobStatus
func (s JobStatus) String() string {
	switch s {
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "pending"
	}
}

// 📄 JobRecord is the outcome of one job
type JobRecord struct {
	Input    string
	Profile  string
	Status   JobStatus
	ExitCode int
	LogPath  string
	Duration time.Duration
	Error    error
}

// 🩹 PatchRecord is the outcome of one patch
type PatchRecord struct {
	Spec    string
	Profile string
	Applied bool
	Error   error
}

// ProfileSummary counts outcomes for one profile
type ProfileSummary struct {
	Profile        string
	Jobs           int
	Succeeded      int
	Failed         int
	PatchesApplied int
	PatchesSkipped int
	Reverted       int
}

// 🔧 Tracker records outcomes. It is safe for concurrent use.
type Tracker struct {
	logger    *zerolog.Logger
	formatter Formatter

	mu       sync.RWMutex
	order    []string
	profiles map[string]*ProfileSummary
	jobs     []JobRecord
	patches  []PatchRecord

	total     int
	processed int
}

// 🏭 NewTracker creates a new tracker
func NewTracker(logger *zerolog.Logger) *Tracker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Tracker{
		logger:    logger,
		formatter: NewDefaultFormatter(),
		profiles:  make(map[string]*ProfileSummary),
	}
}

// profile returns the summary for name; the caller holds mu.
func (t *Tracker) profile(name string) *ProfileSummary {
	p, ok := t.profiles[name]
	if !ok {
		p = &ProfileSummary{Profile: name}
		t.profiles[name] = p
		t.order = append(t.order, name)
	}
	return p
}

// BeginProfile registers a profile so it appears in the summary even with no jobs.
func (t *Tracker) BeginProfile(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profile(name)
}

// TrackJob records a finished job and advances progress
func (t *Tracker) TrackJob(ctx context.Context, rec JobRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs = append(t.jobs, rec)
	p := t.profile(rec.Profile)
	p.Jobs++
	switch rec.Status {
	case JobSucceeded:
		p.Succeeded++
	case JobFailed:
		p.Failed++
	}
	t.processed++

	ev := t.logger.Info()
	if rec.Status == JobFailed {
		ev = t.logger.Warn().Err(rec.Error)
	}
	ev.Str("input", rec.Input).
		Str("profile", rec.Profile).
		Str("status", rec.Status.String()).
		Int("processed", t.processed).
		Int("total", t.total).
		Msg(t.formatter.FormatJob(rec))
}

// TrackPatch records an applied or skipped patch
func (t *Tracker) TrackPatch(ctx context.Context, rec PatchRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.patches = append(t.patches, rec)
	p := t.profile(rec.Profile)
	if rec.Applied {
		p.PatchesApplied++
		return
	}
	p.PatchesSkipped++
	t.logger.Warn().Str("patch", rec.Spec).Msg(t.formatter.FormatError(rec.Error))
}

// TrackRevert records how many containers were restored for a profile
func (t *Tracker) TrackRevert(ctx context.Context, profile string, restored int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profile(profile).Reverted += restored
}

// Jobs returns a copy of every job record
func (t *Tracker) Jobs() []JobRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]JobRecord, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// Patches returns a copy of every patch record
func (t *Tracker) Patches() []PatchRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PatchRecord, len(t.patches))
	copy(out, t.patches)
	return out
}

// Summary returns per-profile counts in first-seen order
func (t *Tracker) Summary() []ProfileSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ProfileSummary, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.profiles[name])
	}
	return out
}

// Failed returns the number of failed jobs across all profiles
func (t *Tracker) Failed() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, p := range t.profiles {
		n += p.Failed
	}
	return n
}

func (t *Tracker) StartOperation(ctx context.Context, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.processed = 0
	t.logger.Info().Int("total", total).Msg(t.formatter.FormatProgress(0, total))
}

func (t *Tracker) FinishOperation(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.Info().
		Int("processed", t.processed).
		Int("total", t.total).
		Msg(t.formatter.FormatProgress(t.processed, t.total))
}

// 📋 Render writes the per-profile summary table to w
func (t *Tracker) Render(w io.Writer) error {
	data := pterm.TableData{
		{"Profile", "Jobs", "Succeeded", "Failed", "Patched", "Skipped", "Reverted"},
	}
	for _, p := range t.Summary() {
		data = append(data, []string{
			p.Profile,
			fmt.Sprint(p.Jobs),
			fmt.Sprint(p.Succeeded),
			fmt.Sprint(p.Failed),
			fmt.Sprint(p.PatchesApplied),
			fmt.Sprint(p.PatchesSkipped),
			fmt.Sprint(p.Reverted),
		})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
