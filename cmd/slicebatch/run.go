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
package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/slicebatch/pkg/orchestrator"
)

// addBatchFlags adds the flags of a batch run to cmd
func addBatchFlags(cmd *cobra.Command, o *rootOpts) {
	f := cmd.Flags()
	f.StringSliceVarP(&o.flags.Profiles, "profile", "p", nil, "profile to slice with, repeatable (default: the active profile)")
	f.StringVarP(&o.flags.Output, "output", "o", "", "output directory")
	f.StringArrayVar(&o.flags.Patches, "patch", nil, "PROFILE:MODULE:FIELD:VALUE override, repeatable (escape ':' as '\\:')")
	f.IntVarP(&o.flags.MaxTasks, "max-tasks", "j", 0, "maximum concurrent slicer jobs (default 2)")
	f.StringVar(&o.slicerLine, "slicer", "", "slicer command; {input}, {dir}, {leaf} and {profile} are expanded per job")
	f.BoolVarP(&o.flags.Recursive, "recursive", "r", false, "descend into input directories")
	f.StringSliceVar(&o.flags.Include, "include", nil, "glob filter for files found in directories (default: every file)")
	f.StringVar(&o.flags.IndicatorField, "indicator-field", "", "name of the active-profile field in the shared container")
}

func runBatch(ctx context.Context, o *rootOpts, args []string) error {
	if len(args) > 0 {
		o.flags.Inputs = args
	}
	if o.slicerLine != "" {
		o.flags.Slicer = strings.Fields(o.slicerLine)
	}

	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	console := o.console()
	tracker, runErr := orchestrator.New(cfg, console).Run(ctx)
	if tracker != nil && len(tracker.Summary()) > 0 {
		if err := tracker.Render(o.stdout); err != nil {
			o.zlog.Warn().Err(err).Msg("rendering summary")
		}
	}
	return runErr
}
