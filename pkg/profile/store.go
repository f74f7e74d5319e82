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

package profile

import (
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

const (
	// DefaultKind is the profile family every module container lives under.
	DefaultKind = "extrusion"
	// ModuleExt is the extension of per-module containers.
	ModuleExt = ".csv"
	// DefaultUserDirName is the user-private store under the home directory.
	DefaultUserDirName = ".skeinforge"
)

// 🗂️ Store describes where profile containers live on disk. Module
// containers are looked up in the user-private store first and then in the
// installation-local store.
type Store struct {
	UserDir  string
	LocalDir string
	// SharedPath overrides the location of the top-level container holding the
	// active-profile indicator.
	SharedPath string
	// Kind defaults to DefaultKind.
	Kind string
}

// DefaultUserDir returns the user-private store for the current user.
func DefaultUserDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, DefaultUserDirName), nil
}

func (s Store) kind() string {
	if s.Kind == "" {
		return DefaultKind
	}
	return s.Kind
}

// SharedContainer returns the path of the top-level container.
func (s Store) SharedContainer() string {
	if s.SharedPath != "" {
		return s.SharedPath
	}
	return filepath.Join(s.UserDir, "profiles", s.kind()+ModuleExt)
}

// ProfileDir returns <root>/profiles/<kind>/<profile>.
func (s Store) ProfileDir(root, profile string) string {
	return filepath.Join(root, "profiles", s.kind(), profile)
}

// Roots returns the configured store roots in lookup order.
func (s Store) Roots() []string {
	var roots []string
	for _, r := range []string{s.UserDir, s.LocalDir} {
		if r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}

// 🔍 ModulePath resolves the container for module under profile. The same
// root is used for the existence check and for the returned path. The second
// result is false when no store holds the module.
func (s Store) ModulePath(profile, module string) (string, bool, error) {
	for _, root := range s.Roots() {
		path := filepath.Join(s.ProfileDir(root, profile), module+ModuleExt)
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return "", false, errors.Errorf("module container %s is a directory", path)
			}
			return path, true, nil
		}
		if !os.IsNotExist(err) {
			return "", false, errors.Errorf("checking module container %s: %w", path, err)
		}
	}
	return "", false, nil
}
