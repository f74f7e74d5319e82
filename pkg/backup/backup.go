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
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/zeebo/blake3"
	"gitlab.com/tozd/go/errors"
)

// Suffix marks a container that is patched and pending restoration.
const Suffix = ".bak"

// Path returns the backup sibling of path.
func Path(path string) string {
	return path + Suffix
}

// 🔍 Pending reports whether path has an outstanding backup.
func Pending(path string) (bool, error) {
	_, err := os.Stat(Path(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking backup existence: %w", err)
}

// 💾 Create copies path to its backup sibling. An existing backup is never
// overwritten, so the oldest copy (the original content) always survives.
func Create(ctx context.Context, path string) (bool, error) {
	pending, err := Pending(path)
	if err != nil {
		return false, err
	}
	if pending {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("reusing existing backup")
		return false, nil
	}

	if err := copyFile(path, Path(path)); err != nil {
		return false, errors.Errorf("creating backup of %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("created backup")
	return true, nil
}

// ♻️ Restore moves the backup back over path. Restoring a path without a
// backup is a no-op.
func Restore(ctx context.Context, path string) (bool, error) {
	pending, err := Pending(path)
	if err != nil {
		return false, err
	}
	if !pending {
		return false, nil
	}

	if err := os.Rename(Path(path), path); err != nil {
		return false, errors.Errorf("restoring %s from backup: %w", path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("restored backup")
	return true, nil
}

// Digest returns the blake3 hash of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Diff returns a textual patch from the backup of path to its live content.
func Diff(path string) (string, error) {
	before, err := os.ReadFile(Path(path))
	if err != nil {
		return "", errors.Errorf("reading backup: %w", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Errorf("reading live file: %w", err)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(before), string(after), false)
	return dmp.PatchToText(dmp.PatchMake(string(before), diffs)), nil
}

// 🔎 Scan lists every outstanding backup under root as live container paths.
// A missing root yields no results.
func Scan(root string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), "**/*"+Suffix, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("scanning %s for backups: %w", root, err)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		live := filepath.Join(root, filepath.FromSlash(m))
		out = append(out, live[:len(live)-len(Suffix)])
	}
	return out, nil
}

// copyFile writes src to a temp sibling of dst and renames it into place, so
// a half-written backup can never be mistaken for a complete one.
func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return errors.Errorf("stat source file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, source); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("copying file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("syncing destination file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing destination file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("setting destination mode: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming destination file: %w", err)
	}
	return nil
}
