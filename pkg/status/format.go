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

package status

import (
	"fmt"
	"path/filepath"
)

// Formatter defines how job outcomes and progress are worded
type Formatter interface {
	// FormatJob formats a finished job
	FormatJob(rec JobRecord) string

	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFormatter provides a default implementation of Formatter
type DefaultFormatter struct{}

// NewDefaultFormatter creates a new DefaultFormatter
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

// FormatJob formats a finished job with emojis
func (f *DefaultFormatter) FormatJob(rec JobRecord) string {
	name := filepath.Base(rec.Input)
	switch rec.Status {
	case JobSucceeded:
		return fmt.Sprintf("✨ Sliced %s under %s", name, rec.Profile)
	case JobFailed:
		if rec.ExitCode >= 0 {
			return fmt.Sprintf("❌ Failed %s under %s (exit %d)", name, rec.Profile, rec.ExitCode)
		}
		return fmt.Sprintf("❌ Failed %s under %s", name, rec.Profile)
	default:
		return fmt.Sprintf("⏳ Pending %s under %s", name, rec.Profile)
	}
}

// FormatProgress formats a progress message with percentage
func (f *DefaultFormatter) FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatError formats an error message with emoji
func (f *DefaultFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
