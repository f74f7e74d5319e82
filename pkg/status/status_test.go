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
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func newTestTracker(t *testing.T) *Tracker {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return NewTracker(&logger)
}

func TestTrackerSummary(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)

	tr.BeginProfile("ABS")
	tr.BeginProfile("PLA")
	tr.StartOperation(ctx, 3)
	tr.TrackJob(ctx, JobRecord{Input: "a.stl", Profile: "ABS", Status: JobSucceeded})
	tr.TrackJob(ctx, JobRecord{Input: "b.stl", Profile: "ABS", Status: JobFailed, ExitCode: 1, Error: errors.New("exit 1")})
	tr.TrackJob(ctx, JobRecord{Input: "a.stl", Profile: "PLA", Status: JobSucceeded})
	tr.FinishOperation(ctx)

	tr.TrackPatch(ctx, PatchRecord{Spec: "ABS:speed:Feed=1", Profile: "ABS", Applied: true})
	tr.TrackPatch(ctx, PatchRecord{Spec: "ABS:nozzle:D=1", Profile: "ABS", Error: errors.New("module not found")})
	tr.TrackRevert(ctx, "ABS", 1)

	assert.Equal(t, []ProfileSummary{
		{Profile: "ABS", Jobs: 2, Succeeded: 1, Failed: 1, PatchesApplied: 1, PatchesSkipped: 1, Reverted: 1},
		{Profile: "PLA", Jobs: 1, Succeeded: 1},
	}, tr.Summary())
	assert.Equal(t, 1, tr.Failed())
	assert.Len(t, tr.Jobs(), 3)
	assert.Len(t, tr.Patches(), 2)
}

func TestTrackerConcurrent(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackJob(ctx, JobRecord{Input: fmt.Sprintf("%d.stl", i), Profile: "ABS", Status: JobSucceeded})
		}()
	}
	wg.Wait()

	require.Len(t, tr.Summary(), 1)
	assert.Equal(t, 50, tr.Summary()[0].Succeeded)
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)
	tr.TrackJob(ctx, JobRecord{Input: "cube.stl", Profile: "PETG", Status: JobSucceeded})

	buf := &bytes.Buffer{}
	require.NoError(t, tr.Render(buf))
	assert.Contains(t, buf.String(), "Profile")
	assert.Contains(t, buf.String(), "PETG")
}

func TestRenderBackups(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, RenderBackups(buf, nil))
	assert.Contains(t, buf.String(), "no pending backups")

	buf.Reset()
	require.NoError(t, RenderBackups(buf, []string{"/store/profiles/extrusion.csv"}))
	assert.Contains(t, buf.String(), "1 container(s) still patched")
	assert.Contains(t, buf.String(), "/store/profiles/extrusion.csv")
}

func TestDefaultFormatter(t *testing.T) {
	f := NewDefaultFormatter()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "succeeded", got: f.FormatJob(JobRecord{Input: "/m/cube.stl", Profile: "ABS", Status: JobSucceeded}), want: "✨ Sliced cube.stl under ABS"},
		{name: "failed_exit", got: f.FormatJob(JobRecord{Input: "cube.stl", Profile: "ABS", Status: JobFailed, ExitCode: 2}), want: "❌ Failed cube.stl under ABS (exit 2)"},
		{name: "failed_start", got: f.FormatJob(JobRecord{Input: "cube.stl", Profile: "ABS", Status: JobFailed, ExitCode: -1}), want: "❌ Failed cube.stl under ABS"},
		{name: "pending", got: f.FormatJob(JobRecord{Input: "cube.stl", Profile: "ABS"}), want: "⏳ Pending cube.stl under ABS"},
		{name: "progress_partial", got: f.FormatProgress(1, 4), want: "⏳ Progress: 1/4 (25%)"},
		{name: "progress_done", got: f.FormatProgress(4, 4), want: "✅ Progress: 4/4 (100%)"},
		{name: "progress_empty", got: f.FormatProgress(0, 0), want: "✅ Progress: 0/0 (0%)"},
		{name: "error", got: f.FormatError(errors.New("boom")), want: "❌ Error: boom"},
		{name: "nil_error", got: f.FormatError(nil), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
