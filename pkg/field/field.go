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

// Package field reads and rewrites single named fields inside line-oriented
// profile containers ("name<delim>value" per line).
//
// Only the first record matching a name is ever read or written. The slicer
// resolves duplicate names the same way.
package field

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultDelimiter separates a field name from its value.
const DefaultDelimiter = "\t"

var (
	// ErrFieldNotFound is returned when no record carries the requested name.
	ErrFieldNotFound = errors.Base("field not found")
	// ErrContainerUnreadable is returned when the container cannot be opened.
	ErrContainerUnreadable = errors.Base("container unreadable")
)

// 📄 Record is one line of a container.
type Record struct {
	Name  string
	Value string
}

// 📦 Container is a line-oriented configuration file.
type Container struct {
	Path      string
	Delimiter string
}

// 🏭 New returns a container using the default delimiter.
func New(path string) *Container {
	return &Container{Path: path, Delimiter: DefaultDelimiter}
}

func (c *Container) delimiter() string {
	if c.Delimiter == "" {
		return DefaultDelimiter
	}
	return c.Delimiter
}

type document struct {
	lines    []string
	newline  string
	trailing bool
	mode     os.FileMode
}

func (c *Container) load() (*document, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, errors.Errorf("%w: %s: %v", ErrContainerUnreadable, c.Path, err)
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, errors.Errorf("%w: %s: %v", ErrContainerUnreadable, c.Path, err)
	}

	text := string(data)
	doc := &document{newline: "\n", mode: info.Mode().Perm()}
	if strings.Contains(text, "\r\n") {
		doc.newline = "\r\n"
	}
	if strings.HasSuffix(text, doc.newline) {
		doc.trailing = true
		text = strings.TrimSuffix(text, doc.newline)
	}
	if text != "" || doc.trailing {
		doc.lines = strings.Split(text, doc.newline)
	}
	return doc, nil
}

func (c *Container) parse(line string) Record {
	name, value, _ := strings.Cut(line, c.delimiter())
	return Record{Name: name, Value: value}
}

// Records returns every record in file order.
func (c *Container) Records(ctx context.Context) ([]Record, error) {
	doc, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(doc.lines))
	for _, line := range doc.lines {
		out = append(out, c.parse(line))
	}
	return out, nil
}

// 🔍 ReadField returns the value of the first record named name.
func (c *Container) ReadField(ctx context.Context, name string) (string, error) {
	doc, err := c.load()
	if err != nil {
		return "", err
	}
	for _, line := range doc.lines {
		if rec := c.parse(line); rec.Name == name {
			return rec.Value, nil
		}
	}
	return "", errors.Errorf("%w: %q in %s", ErrFieldNotFound, name, c.Path)
}

// ✏️ SetField replaces the value of the first record named name and rewrites
// the whole container atomically. No record is ever added.
func (c *Container) SetField(ctx context.Context, name, value string) error {
	doc, err := c.load()
	if err != nil {
		return err
	}

	found := false
	for i, line := range doc.lines {
		if c.parse(line).Name == name {
			doc.lines[i] = name + c.delimiter() + value
			found = true
			break
		}
	}
	if !found {
		return errors.Errorf("%w: %q in %s", ErrFieldNotFound, name, c.Path)
	}

	content := strings.Join(doc.lines, doc.newline)
	if doc.trailing {
		content += doc.newline
	}

	zerolog.Ctx(ctx).Debug().
		Str("container", c.Path).
		Str("field", name).
		Str("value", value).
		Msg("setting field")

	return WriteFileAtomic(c.Path, []byte(content), doc.mode)
}

// WriteFileAtomic writes content to a temp sibling and renames it over path,
// so an interrupted write never leaves a truncated file behind.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if mode != 0 {
		if err := os.Chmod(tmpPath, mode); err != nil {
			os.Remove(tmpPath)
			return errors.Errorf("setting temp file mode: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
