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

// Package text expands placeholders in slicer command-line arguments.
package text

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ReplacementRule defines a single text replacement operation
type ReplacementRule struct {
	// FromText is the text to replace
	FromText string

	// ToText is the replacement text
	ToText string
}

// ReplacementResult contains the results of expanding an argument list
type ReplacementResult struct {
	// WasModified indicates if any replacements were made
	WasModified bool

	// ReplacementCount is the number of replacements made
	ReplacementCount int

	// OriginalArgs are the arguments before replacements
	OriginalArgs []string

	// ExpandedArgs are the arguments after replacements
	ExpandedArgs []string
}

// Placeholder wraps name in braces, the form recognized in slicer arguments.
func Placeholder(name string) string {
	return "{" + name + "}"
}

// Placeholders builds one rule per key, sorted by key.
func Placeholders(values map[string]string) []ReplacementRule {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := make([]ReplacementRule, 0, len(keys))
	for _, k := range keys {
		rules = append(rules, ReplacementRule{FromText: Placeholder(k), ToText: values[k]})
	}
	return rules
}

// SimpleTextReplacer applies rules with plain string replacement
type SimpleTextReplacer struct{}

// NewSimpleTextReplacer creates a new SimpleTextReplacer
func NewSimpleTextReplacer() *SimpleTextReplacer {
	return &SimpleTextReplacer{}
}

// ReplaceText applies every rule to s in a single pass and returns the result
// and the number of replacements made. Text inserted by one rule is never
// matched by another; where two rules match at the same position the earlier
// rule wins.
func (r *SimpleTextReplacer) ReplaceText(s string, rules []ReplacementRule) (string, int) {
	pairs := make([]string, 0, 2*len(rules))
	for _, rule := range rules {
		if rule.FromText == "" {
			continue
		}
		pairs = append(pairs, rule.FromText, rule.ToText)
	}
	if len(pairs) == 0 {
		return s, 0
	}

	count := 0
	for i := 0; i < len(s); {
		matched := false
		for j := 0; j < len(pairs); j += 2 {
			if strings.HasPrefix(s[i:], pairs[j]) {
				count++
				i += len(pairs[j])
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	if count == 0 {
		return s, 0
	}
	return strings.NewReplacer(pairs...).Replace(s), count
}

// 🔧 Expand applies the rules to each argument independently.
func (r *SimpleTextReplacer) Expand(ctx context.Context, args []string, rules []ReplacementRule) (*ReplacementResult, error) {
	if err := r.ValidateRules(rules); err != nil {
		return nil, err
	}

	result := &ReplacementResult{
		OriginalArgs: make([]string, len(args)),
		ExpandedArgs: make([]string, 0, len(args)),
	}
	copy(result.OriginalArgs, args)

	for _, arg := range args {
		expanded, n := r.ReplaceText(arg, rules)
		result.ReplacementCount += n
		result.ExpandedArgs = append(result.ExpandedArgs, expanded)
	}
	result.WasModified = result.ReplacementCount > 0

	zerolog.Ctx(ctx).Trace().
		Strs("args", result.ExpandedArgs).
		Int("replacements", result.ReplacementCount).
		Msg("expanded arguments")

	return result, nil
}

// ValidateRules checks that all rules are valid
func (r *SimpleTextReplacer) ValidateRules(rules []ReplacementRule) error {
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		if rule.FromText == "" {
			return errors.Errorf("rule %d: from_text is required", i)
		}
		if seen[rule.FromText] {
			return errors.Errorf("rule %d: duplicate from_text %q", i, rule.FromText)
		}
		seen[rule.FromText] = true
	}
	return nil
}
