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
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "creating dir")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "writing file")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "reading file")
	return string(data)
}

func TestCreateAndRestore(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("create_then_restore", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "speed.csv")
		writeFile(t, path, "Feed Rate (mm/s):\t16\n")

		created, err := Create(ctx, path)
		require.NoError(t, err, "creating backup")
		assert.True(t, created, "first backup should be created")
		assert.Equal(t, "Feed Rate (mm/s):\t16\n", readFile(t, Path(path)))

		writeFile(t, path, "Feed Rate (mm/s):\t40\n")

		restored, err := Restore(ctx, path)
		require.NoError(t, err, "restoring backup")
		assert.True(t, restored, "backup should be restored")
		assert.Equal(t, "Feed Rate (mm/s):\t16\n", readFile(t, path))

		pending, err := Pending(path)
		require.NoError(t, err)
		assert.False(t, pending, "backup should be gone after restore")
	})

	t.Run("second_create_keeps_original", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "speed.csv")
		writeFile(t, path, "original")

		_, err := Create(ctx, path)
		require.NoError(t, err)
		writeFile(t, path, "patched once")

		created, err := Create(ctx, path)
		require.NoError(t, err)
		assert.False(t, created, "existing backup must be reused")
		assert.Equal(t, "original", readFile(t, Path(path)))
	})

	t.Run("restore_without_backup_is_noop", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "speed.csv")
		writeFile(t, path, "live")

		restored, err := Restore(ctx, path)
		require.NoError(t, err)
		assert.False(t, restored)
		assert.Equal(t, "live", readFile(t, path))
	})

	t.Run("create_missing_source_fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.csv")
		_, err := Create(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "opening source file")
	})
}

func TestDigestAndDiff(t *testing.T) {
	ctx := setupTestLogger(t)

	path := filepath.Join(t.TempDir(), "temperature.csv")
	writeFile(t, path, "Temperature:\t200\n")

	before, err := Digest(path)
	require.NoError(t, err)

	_, err = Create(ctx, path)
	require.NoError(t, err)
	writeFile(t, path, "Temperature:\t230\n")

	after, err := Digest(path)
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "digest should change with content")

	diff, err := Diff(path)
	require.NoError(t, err)
	assert.Contains(t, diff, "230")
	assert.Contains(t, diff, "@@")
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "profiles", "extrusion", "ABS", "carve.csv")
	b := filepath.Join(root, "profiles", "extrusion.csv")
	writeFile(t, a+Suffix, "x")
	writeFile(t, b+Suffix, "y")
	writeFile(t, filepath.Join(root, "profiles", "other.csv"), "z")

	got, err := Scan(root)
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{b, a}, got)

	none, err := Scan(filepath.Join(root, "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGuard(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("release_restores_all_once", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.csv")
		b := filepath.Join(dir, "b.csv")
		writeFile(t, a, "a-original")
		writeFile(t, b, "b-original")

		g := NewGuard()
		created, err := g.Protect(ctx, a)
		require.NoError(t, err)
		assert.True(t, created)
		_, err = g.Protect(ctx, b)
		require.NoError(t, err)

		created, err = g.Protect(ctx, a)
		require.NoError(t, err)
		assert.False(t, created, "second protect must reuse the backup")
		assert.Equal(t, []string{a, b}, g.Tracked())

		writeFile(t, a, "a-patched")
		writeFile(t, b, "b-patched")

		require.NoError(t, g.Release(ctx))
		assert.Equal(t, "a-original", readFile(t, a))
		assert.Equal(t, "b-original", readFile(t, b))

		writeFile(t, a, "changed after release")
		require.NoError(t, g.Release(ctx), "second release is a no-op")
		assert.Equal(t, "changed after release", readFile(t, a))

		_, err = g.Protect(ctx, a)
		require.Error(t, err, "protect after release must fail")
	})

	t.Run("release_skips_already_restored", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.csv")
		writeFile(t, path, "original")

		g := NewGuard()
		_, err := g.Protect(ctx, path)
		require.NoError(t, err)
		writeFile(t, path, "patched")

		_, err = Restore(ctx, path)
		require.NoError(t, err)

		require.NoError(t, g.Release(ctx))
		assert.Equal(t, "original", readFile(t, path))
	})

	t.Run("stale_backup_is_treated_as_original", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.csv")
		writeFile(t, path, "left patched by a crash")
		writeFile(t, Path(path), "true original")

		g := NewGuard()
		created, err := g.Protect(ctx, path)
		require.NoError(t, err)
		assert.False(t, created)

		require.NoError(t, g.Release(ctx))
		assert.Equal(t, "true original", readFile(t, path))
	})

	t.Run("verify_detects_mismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.csv")
		writeFile(t, path, "original")

		g := NewGuard()
		_, err := g.Protect(ctx, path)
		require.NoError(t, err)

		writeFile(t, path, "patched")
		err = g.Verify(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDigestMismatch))
	})
}
