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

package log

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_job",
			op: func(t *testing.T, logger *Logger) {
				logger.LogJob(context.Background(), JobOperation{
					Input:   "cube.stl",
					Profile: "ABS",
					Status:  "done",
				})
			},
			wantLogs: []string{
				fmt.Sprintf("✓ %-35s %-15s %s", "cube.stl", "ABS", "done"),
			},
		},
		{
			name: "start_profile",
			op: func(t *testing.T, logger *Logger) {
				logger.StartProfile(context.Background(), ProfileOperation{
					Name:    "PLA",
					Patches: 2,
					Jobs:    5,
				})
			},
			wantLogs: []string{
				"◆ PLA • 2 patches, 5 jobs",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("slicing 3 files")
			},
			wantLogs: []string{
				"slicebatch • slicing 3 files",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.New(zerolog.NewTestWriter(t)))

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := Discard()

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "logger from context should be the same instance")

	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}

func TestOperationFormatting(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name string
		log  func(l *Logger)
		want string
	}{
		{
			name: "failed_job",
			log: func(l *Logger) {
				l.LogJob(context.Background(), JobOperation{Input: "gear.stl", Profile: "PLA", Status: "exit 3", Failed: true})
			},
			want: fmt.Sprintf("✗ %-35s %-15s %s", "gear.stl", "PLA", "exit 3"),
		},
		{
			name: "applied_patch",
			log: func(l *Logger) {
				l.LogPatch(context.Background(), PatchOperation{Spec: "ABS:speed:Feed=40", Profile: "ABS", Container: "/s/speed.csv"})
			},
			want: fmt.Sprintf("⟳ %-35s %-15s %s", "ABS:speed:Feed=40", "ABS", "patched"),
		},
		{
			name: "skipped_patch",
			log: func(l *Logger) {
				l.LogPatch(context.Background(), PatchOperation{Spec: "ABS:nozzle:D=1", Profile: "ABS", Skipped: true, Reason: "module not found"})
			},
			want: fmt.Sprintf("- %-35s %-15s %s", "ABS:nozzle:D=1", "ABS", "skipped: module not found"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.log(New(buf, zerolog.Nop()))
			assert.Equal(t, tt.want, strings.TrimSpace(buf.String()), "formatted output should match")
		})
	}
}

func TestEndProfileResets(t *testing.T) {
	logger := Discard()
	ctx := context.Background()

	logger.EndProfile(ctx)

	logger.StartProfile(ctx, ProfileOperation{Name: "ABS", Jobs: 1})
	logger.LogJob(ctx, JobOperation{Input: "a.stl", Profile: "ABS", Status: "done"})
	logger.EndProfile(ctx)

	assert.Nil(t, logger.currentOp)
	assert.Empty(t, logger.jobs)
}
