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

package job

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/slicebatch/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// Error reports a job whose slicer could not run or exited non-zero.
type Error struct {
	Job      Job
	ExitCode int
	LogPath  string
	Err      error
}

func (e *Error) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("job %s: slicer exited %d (log: %s)", e.Job, e.ExitCode, e.LogPath)
	}
	return fmt.Sprintf("job %s: %v (log: %s)", e.Job, e.Err, e.LogPath)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result describes a finished job.
type Result struct {
	Job      Job
	Layout   Layout
	Duration time.Duration
}

// ⚙️ Converter invokes the slicer for jobs. It is safe for concurrent use.
type Converter struct {
	outputRoot string
	command    []string
	replacer   *text.SimpleTextReplacer
}

// 🏭 NewConverter creates a converter writing under outputRoot. command is
// the slicer argv; {input}, {dir}, {leaf} and {profile} are expanded per job,
// and the staged input is appended when no placeholder appears.
//
// The slicer inherits the caller's working directory, so relative paths in
// command resolve as typed. Every path handed to it is absolute.
func NewConverter(outputRoot string, command []string) (*Converter, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("slicer command is empty")
	}
	root, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, errors.Errorf("resolving output directory: %w", err)
	}
	return &Converter{
		outputRoot: root,
		command:    append([]string(nil), command...),
		replacer:   text.NewSimpleTextReplacer(),
	}, nil
}

func (c *Converter) argv(ctx context.Context, j Job, l Layout) ([]string, error) {
	rules := text.Placeholders(map[string]string{
		"input":   l.Staged,
		"dir":     l.Dir,
		"leaf":    l.Leaf,
		"profile": j.Profile,
	})
	res, err := c.replacer.Expand(ctx, c.command, rules)
	if err != nil {
		return nil, errors.Errorf("expanding slicer arguments: %w", err)
	}
	if !res.WasModified {
		return append(res.ExpandedArgs, l.Staged), nil
	}
	return res.ExpandedArgs, nil
}

// 🚀 Run stages the job's input into its own directory, runs the slicer on
// the staged copy with combined output going to the log, and removes the
// staged copy whatever the outcome.
func (c *Converter) Run(ctx context.Context, j Job) (*Result, error) {
	l := j.Layout(c.outputRoot)
	logger := zerolog.Ctx(ctx).With().
		Str("job_id", j.ID.String()).
		Str("input", j.Input).
		Str("profile", j.Profile).
		Logger()

	start := time.Now()
	fail := func(code int, err error) (*Result, error) {
		return nil, &Error{Job: j, ExitCode: code, LogPath: l.Log, Err: err}
	}

	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fail(-1, errors.Errorf("creating output directory: %w", err))
	}

	defer func() {
		if err := os.Remove(l.Staged); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("staged", l.Staged).Msg("removing staged input")
		}
	}()

	if err := stage(j.Input, l.Staged); err != nil {
		return fail(-1, err)
	}

	logFile, err := os.Create(l.Log)
	if err != nil {
		return fail(-1, errors.Errorf("creating log file: %w", err))
	}
	defer logFile.Close()

	args, err := c.argv(ctx, j, l)
	if err != nil {
		return fail(-1, err)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		"SLICEBATCH_PROFILE="+j.Profile,
		"SLICEBATCH_JOB_ID="+j.ID.String(),
	)

	logger.Debug().Strs("args", args).Msg("starting slicer")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fail(-1, errors.Errorf("slicer stopped: %w", ctx.Err()))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fail(exitErr.ExitCode(), err)
		}
		return fail(-1, errors.Errorf("starting slicer: %w", err))
	}

	res := &Result{Job: j, Layout: l, Duration: time.Since(start)}
	logger.Debug().Dur("duration", res.Duration).Msg("slicer finished")
	return res, nil
}

func stage(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening input: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Errorf("stat input: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("creating staged input: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Errorf("staging input: %w", err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing staged input: %w", err)
	}
	return nil
}
