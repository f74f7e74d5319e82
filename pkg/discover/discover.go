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

// Package discover expands input arguments into the list of files to slice.
package discover

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrInputNotFound is returned when an input path does not exist.
	ErrInputNotFound = errors.Base("input not found")
	// ErrNoInputs is returned when expansion yields no files.
	ErrNoInputs = errors.Base("no input files")
)

// Options controls directory expansion.
type Options struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// Include keeps only files whose base name matches one of these doublestar patterns.
	Include []string
}

func isPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// 🔎 Inputs expands files, directories and glob patterns into a sorted,
// deduplicated list of regular files. Hidden files found by directory
// expansion are skipped; explicitly named files never are.
func Inputs(ctx context.Context, args []string, opts Options) ([]string, error) {
	for _, inc := range opts.Include {
		if !doublestar.ValidatePattern(inc) {
			return nil, errors.Errorf("invalid include pattern %q", inc)
		}
	}

	logger := zerolog.Ctx(ctx)
	seen := make(map[string]bool)
	var out []string

	add := func(path string, explicit bool) {
		base := filepath.Base(path)
		if !explicit && strings.HasPrefix(base, ".") {
			return
		}
		if !matchesInclude(base, opts.Include) {
			return
		}
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("discovering inputs: %w", err)
		}
		if isPattern(arg) {
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, errors.Errorf("expanding %q: %w", arg, err)
			}
			logger.Debug().Str("pattern", arg).Int("matches", len(matches)).Msg("expanded pattern")
			base, _ := doublestar.SplitPattern(filepath.ToSlash(arg))
			for _, m := range matches {
				if rel, err := filepath.Rel(filepath.FromSlash(base), m); err == nil && hiddenPath(filepath.ToSlash(rel)) {
					continue
				}
				add(m, false)
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Errorf("%w: %s", ErrInputNotFound, arg)
			}
			return nil, errors.Errorf("checking input %s: %w", arg, err)
		}

		if !info.IsDir() {
			add(arg, true)
			continue
		}

		files, err := expandDir(arg, opts.Recursive)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("dir", arg).Int("files", len(files)).Msg("expanded directory")
		for _, f := range files {
			add(f, false)
		}
	}

	if len(out) == 0 {
		return nil, errors.Errorf("%w: %s", ErrNoInputs, strings.Join(args, ", "))
	}

	sort.Strings(out)
	return out, nil
}

func expandDir(dir string, recursive bool) ([]string, error) {
	if recursive {
		matches, err := doublestar.Glob(os.DirFS(dir), "**", doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("walking %s: %w", dir, err)
		}
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			if hiddenPath(m) {
				continue
			}
			out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
		}
		return out, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func hiddenPath(slashPath string) bool {
	for _, part := range strings.Split(slashPath, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func matchesInclude(base string, include []string) bool {
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
