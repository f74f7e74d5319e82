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
	"io"

	"github.com/pterm/pterm"
)

// RenderBackups lists containers that still have a pending backup, the
// on-disk marker of a run that did not finish restoring.
func RenderBackups(w io.Writer, pending []string) error {
	if len(pending) == 0 {
		_, err := fmt.Fprint(w, pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).Sprintln("no pending backups"))
		return err
	}

	printer := pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"})
	if _, err := fmt.Fprint(w, printer.Sprintfln("%d container(s) still patched, run `slicebatch recover`", len(pending))); err != nil {
		return err
	}
	for _, p := range pending {
		if _, err := fmt.Fprintf(w, "    %s\n", p); err != nil {
			return err
		}
	}
	return nil
}
