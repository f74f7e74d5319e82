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
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	lineIndent   = 4  // spaces to indent job and patch entries
	nameWidth    = 35 // width for input or patch name
	profileWidth = 15 // width for profile name
	statusWidth  = 15 // width for status text
)

// 🎯 JobOperation is one finished conversion job
type JobOperation struct {
	Input    string        // input leaf name
	Profile  string        // active profile
	Status   string        // short status text
	Failed   bool          // slicer failed or could not start
	LogPath  string        // slicer log
	Duration time.Duration // wall time
}

// 🩹 PatchOperation is one applied or skipped patch
type PatchOperation struct {
	Spec      string // patch in profile:module:field=value form
	Profile   string // owning profile
	Container string // resolved module container, empty when skipped
	Skipped   bool   // validation or write failed
	Reason    string // why it was skipped
}

// 📦 ProfileOperation is one profile's batch
type ProfileOperation struct {
	Name    string // profile name as requested
	Patches int    // patches owned by the profile
	Jobs    int    // jobs in the batch
}

// 🎯 Logger prints console lines and mirrors them into zerolog
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	currentOp *ProfileOperation
	jobs      []JobOperation
}

// 🏭 New creates a new logger writing human output to console
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// Discard returns a logger that prints nothing.
func Discard() *Logger {
	return New(io.Discard, zerolog.Nop())
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func row(symbol string, symbolColor color.Attribute, name, profile string, profileColor color.Attribute, status string) string {
	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", lineIndent, ""),
		color.New(symbolColor).Sprint(symbol),
		fmt.Sprintf("%-*s", nameWidth, name),
		color.New(profileColor).Sprint(fmt.Sprintf("%-*s", profileWidth, profile)),
		fmt.Sprintf("%-*s", statusWidth, status))
}

func (l *Logger) formatJob(op JobOperation) string {
	if op.Failed {
		return row("✗", color.FgRed, op.Input, op.Profile, color.FgCyan, op.Status)
	}
	return row("✓", color.FgGreen, op.Input, op.Profile, color.FgCyan, op.Status)
}

func (l *Logger) formatPatch(op PatchOperation) string {
	if op.Skipped {
		return row("-", color.FgYellow, op.Spec, op.Profile, color.FgYellow, "skipped: "+op.Reason)
	}
	return row("⟳", color.FgBlue, op.Spec, op.Profile, color.FgCyan, "patched")
}

// 📝 LogJob logs a finished job
func (l *Logger) LogJob(ctx context.Context, op JobOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jobs = append(l.jobs, op)
	fmt.Fprintln(l.console, l.formatJob(op))

	ev := l.zlog.Info()
	if op.Failed {
		ev = l.zlog.Warn()
	}
	ev.Str("input", op.Input).
		Str("profile", op.Profile).
		Str("status", op.Status).
		Bool("failed", op.Failed).
		Str("log", op.LogPath).
		Dur("duration", op.Duration).
		Msg("job finished")
}

// 📝 LogPatch logs an applied or skipped patch
func (l *Logger) LogPatch(ctx context.Context, op PatchOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatPatch(op))

	ev := l.zlog.Info()
	if op.Skipped {
		ev = l.zlog.Warn()
	}
	ev.Str("patch", op.Spec).
		Str("profile", op.Profile).
		Str("container", op.Container).
		Bool("skipped", op.Skipped).
		Str("reason", op.Reason).
		Msg("patch")
}

// 📝 StartProfile starts a profile batch
func (l *Logger) StartProfile(ctx context.Context, op ProfileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.jobs = nil

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Name),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%d patches, %d jobs", op.Patches, op.Jobs))

	l.zlog.Info().
		Str("profile", op.Name).
		Int("patches", op.Patches).
		Int("jobs", op.Jobs).
		Msg("starting profile")
}

// 📝 EndProfile ends the current profile batch
func (l *Logger) EndProfile(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	failed := 0
	for _, j := range l.jobs {
		if j.Failed {
			failed++
		}
	}

	l.zlog.Info().
		Str("profile", l.currentOp.Name).
		Int("jobs", len(l.jobs)).
		Int("failed", failed).
		Msg("profile complete")

	l.currentOp = nil
	l.jobs = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("slicebatch")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
