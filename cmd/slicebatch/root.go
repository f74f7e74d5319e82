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
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/slicebatch/pkg/config"
	"github.com/walteh/slicebatch/pkg/log"
)

// rootOpts holds the flag values shared by every command.
type rootOpts struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	debug      bool
	flags      config.Config
	slicerLine string

	zlog *zerolog.Logger
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *rootOpts) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "c", "", "run file (.yaml, .yml, .json or .hcl)")
	pf.BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")
	pf.StringVar(&o.flags.UserStore, "user-store", "", "user profile store (default ~/.skeinforge)")
	pf.StringVar(&o.flags.LocalStore, "local-store", "", "installation-local profile store")
	pf.StringVar(&o.flags.SharedContainer, "shared-container", "", "container holding the active-profile indicator")
}

// setupLogging builds the structured logger for ctx based on flags
func (o *rootOpts) setupLogging(ctx context.Context) context.Context {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: o.stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	o.zlog = &logger
	return logger.WithContext(ctx)
}

// console returns the human-facing printer.
func (o *rootOpts) console() *log.Logger {
	zlog := zerolog.Nop()
	if o.zlog != nil {
		zlog = *o.zlog
	}
	return log.New(o.stdout, zlog)
}

// loadConfig reads the run file, if any, and layers flag values on top.
func (o *rootOpts) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if o.configFile != "" {
		loaded, err := config.Load(ctx, o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Override(o.flags)
	return cfg, nil
}

// storeConfig loads the config without requiring a runnable batch, for the
// commands that only inspect the profile store.
func (o *rootOpts) storeConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slicebatch [flags] INPUT...",
		Short: "Slice a batch of models across several profiles",
		Long: `slicebatch runs every input model through an external slicer once per
profile. Before a profile's jobs start it selects the profile and applies the
patches addressed to it; once they finish it reverts them. Every container it
touches is backed up first and restored on exit, including on interrupt.

Inputs may be files, directories or glob patterns.`,
		Example: `  slicebatch -p ABS -p PLA -o out --slicer "python craft.py {input}" models/*.stl
  slicebatch -c batch.hcl --patch 'ABS:speed:Feed Rate (mm/s)\::40' part.stl`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(o.setupLogging(cmd.Context()))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), o, args)
		},
	}

	addRootFlags(cmd, o)
	addBatchFlags(cmd, o)

	cmd.AddCommand(
		newRecoverCmd(o),
		newStatusCmd(o),
		newVersionCmd(o),
	)
	return cmd
}
