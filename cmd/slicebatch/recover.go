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
	"github.com/spf13/cobra"
	"github.com/walteh/slicebatch/pkg/orchestrator"
)

func newRecoverCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Restore containers left patched by a run that was killed",
		Long: `Recover moves every pending backup in the profile store back over its
container. A run that exits normally, or on interrupt, restores on its own;
this is for a run that was killed before it could.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := o.storeConfig(ctx)
			if err != nil {
				return err
			}

			restored, err := orchestrator.Recover(ctx, cfg.Store())
			console := o.console()
			for _, p := range restored {
				console.Successf("restored %s", p)
			}
			if err != nil {
				return err
			}
			if len(restored) == 0 {
				console.Info("nothing to recover")
			}
			return nil
		},
	}
}
