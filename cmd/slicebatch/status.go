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
	"github.com/walteh/slicebatch/pkg/status"
)

func newStatusCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List containers that still have a pending backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.storeConfig(cmd.Context())
			if err != nil {
				return err
			}
			pending, err := orchestrator.Pending(cfg.Store())
			if err != nil {
				return err
			}
			return status.RenderBackups(o.stdout, pending)
		},
	}
}
