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

package patch

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🩹 Spec is one intended field override: set Field of Module under Profile
// to Value for the duration of that profile's batch.
type Spec struct {
	Profile string `json:"profile" yaml:"profile" hcl:"profile"`
	Module  string `json:"module" yaml:"module" hcl:"module"`
	Field   string `json:"field" yaml:"field" hcl:"field"`
	Value   string `json:"value" yaml:"value" hcl:"value"`
}

func (s Spec) String() string {
	return fmt.Sprintf("%s:%s:%s=%s", s.Profile, s.Module, s.Field, s.Value)
}

// Validate checks that the addressing parts are present. An empty value is allowed.
func (s Spec) Validate() error {
	switch {
	case s.Profile == "":
		return errors.Errorf("patch %q: profile is required", s.String())
	case s.Module == "":
		return errors.Errorf("patch %q: module is required", s.String())
	case s.Field == "":
		return errors.Errorf("patch %q: field is required", s.String())
	}
	return nil
}

// 📝 ParseSpec parses "profile:module:field:value". A backslash escapes the
// next character, so "\:" puts a literal colon into the profile, module or
// field part. Everything after the third separator is the value, unescaped.
func ParseSpec(raw string) (Spec, error) {
	var (
		parts []string
		cur   strings.Builder
		rest  string
		done  bool
	)

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch == '\\' && i+1 < len(raw):
			i++
			cur.WriteByte(raw[i])
		case ch == ':':
			parts = append(parts, cur.String())
			cur.Reset()
			if len(parts) == 3 {
				rest = raw[i+1:]
				done = true
			}
		default:
			cur.WriteByte(ch)
		}
		if done {
			break
		}
	}

	if !done {
		return Spec{}, errors.Errorf("patch %q: expected profile:module:field:value", raw)
	}

	s := Spec{Profile: parts[0], Module: parts[1], Field: parts[2], Value: rest}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// ParseSpecs parses every raw patch string.
func ParseSpecs(raws []string) ([]Spec, error) {
	out := make([]Spec, 0, len(raws))
	for _, raw := range raws {
		s, err := ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ForProfile returns the specs owned by profile, in order.
func ForProfile(specs []Spec, profile string) []Spec {
	var out []Spec
	for _, s := range specs {
		if s.Profile == profile {
			out = append(out, s)
		}
	}
	return out
}
