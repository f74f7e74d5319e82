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

/*
Package config loads and validates the options of a batch run.

	            +-------------+
	            |   Config    |
	            | (run file)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
  - Reads an optional run file, picking the parser by extension
  - Lets command-line flags override file values
  - Fills defaults and runs every preflight check before anything is mutated

🔄 Flow:
 1. Load parses the run file (no validation)
 2. Override layers flag values on top
 3. Validate fills defaults and returns a *PreflightError on the first problem

HCL files can read the environment and build strings:

	user_store = "${env.HOME}/.skeinforge"
	slicer     = ["python", "craft.py", "{input}"]

	patch "ABS" {
		module = "speed"
		field  = "Feed Rate (mm/s):"
		value  = format("%d", 40)
	}

🔍 Example:

	cfg, err := config.Load(ctx, "batch.yaml")
	if err != nil {
		return err
	}
	cfg.Override(flags)
	if err := cfg.Validate(); err != nil {
		var pf *config.PreflightError
		if errors.As(err, &pf) {
			// exit 1 before touching any profile
		}
		return err
	}
*/
package config
