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

// Package profile locates profile containers and switches the active profile.
package profile

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/slicebatch/pkg/field"
	"gitlab.com/tozd/go/errors"
)

const (
	// CurrentlySelected asks the selector to keep whatever profile is active.
	CurrentlySelected = "@current"
	// DefaultIndicatorField names the active-profile record in the shared container.
	DefaultIndicatorField = "Profile Selection:"
)

// 🎚️ Selector reads and sets the active-profile indicator.
type Selector struct {
	container *field.Container
	name      string
}

// 🏭 NewSelector creates a selector over the shared container.
func NewSelector(container *field.Container, indicatorField string) *Selector {
	if indicatorField == "" {
		indicatorField = DefaultIndicatorField
	}
	return &Selector{container: container, name: indicatorField}
}

// Container returns the shared container the selector mutates.
func (s *Selector) Container() *field.Container {
	return s.container
}

// Active returns the currently selected profile.
func (s *Selector) Active(ctx context.Context) (string, error) {
	v, err := s.container.ReadField(ctx, s.name)
	if err != nil {
		return "", errors.Errorf("reading active profile: %w", err)
	}
	return v, nil
}

// 🎯 Select makes name the active profile and returns the resolved name.
// CurrentlySelected reads the indicator back instead of writing it.
func (s *Selector) Select(ctx context.Context, name string) (string, error) {
	if name == CurrentlySelected {
		active, err := s.Active(ctx)
		if err != nil {
			return "", err
		}
		zerolog.Ctx(ctx).Debug().Str("profile", active).Msg("using currently selected profile")
		return active, nil
	}

	if err := s.container.SetField(ctx, s.name, name); err != nil {
		return "", errors.Errorf("selecting profile %s: %w", name, err)
	}
	zerolog.Ctx(ctx).Debug().Str("profile", name).Msg("selected profile")
	return name, nil
}
