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

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/walteh/slicebatch/pkg/patch"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// envObject exposes the process environment as env.NAME.
func envObject() cty.Value {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"join":   stdlib.JoinFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "slicebatch.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Define HCL schema
	type hclPatch struct {
		Profile string `hcl:"profile,label"`
		Module  string `hcl:"module"`
		Field   string `hcl:"field"`
		Value   string `hcl:"value"`
	}
	type hclConfig struct {
		Inputs          []string   `hcl:"inputs,optional"`
		Profiles        []string   `hcl:"profiles,optional"`
		Output          string     `hcl:"output,optional"`
		Patches         []string   `hcl:"patches,optional"`
		PatchBlocks     []hclPatch `hcl:"patch,block"`
		MaxTasks        int        `hcl:"max_tasks,optional"`
		Slicer          []string   `hcl:"slicer,optional"`
		UserStore       string     `hcl:"user_store,optional"`
		LocalStore      string     `hcl:"local_store,optional"`
		SharedContainer string     `hcl:"shared_container,optional"`
		IndicatorField  string     `hcl:"indicator_field,optional"`
		Delimiter       string     `hcl:"delimiter,optional"`
		Recursive       bool       `hcl:"recursive,optional"`
		Include         []string   `hcl:"include,optional"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		Inputs:          hclCfg.Inputs,
		Profiles:        hclCfg.Profiles,
		Output:          hclCfg.Output,
		Patches:         hclCfg.Patches,
		MaxTasks:        hclCfg.MaxTasks,
		Slicer:          hclCfg.Slicer,
		UserStore:       hclCfg.UserStore,
		LocalStore:      hclCfg.LocalStore,
		SharedContainer: hclCfg.SharedContainer,
		IndicatorField:  hclCfg.IndicatorField,
		Delimiter:       hclCfg.Delimiter,
		Recursive:       hclCfg.Recursive,
		Include:         hclCfg.Include,
	}

	for _, b := range hclCfg.PatchBlocks {
		cfg.PatchSpecs = append(cfg.PatchSpecs, patch.Spec{
			Profile: b.Profile,
			Module:  b.Module,
			Field:   b.Field,
			Value:   b.Value,
		})
	}

	return cfg, nil
}
