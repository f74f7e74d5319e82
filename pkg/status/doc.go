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
Package status records what happened during a batch run and reports it.

	        +-----------+
	        |  Tracker  |
	        +-----+-----+
	              |
	   +----------+----------+
	   |                     |
	+--+-------+      +------+-----+
	|  Jobs    |      |  Patches   |
	| (events) |      |  (events)  |
	+----------+      +------------+
	              |
	        +-----+-----+
	        |  Render   |
	        |  (pterm)  |
	        +-----------+

🎯 Purpose:
  - Collect per-job and per-patch outcomes from concurrent workers
  - Report progress while a profile's batch drains
  - Render an end-of-run summary table

🔄 Flow:
 1. The orchestrator calls StartOperation with the batch size
 2. Workers call TrackJob as each job finishes
 3. The patch manager's report is fed through TrackPatch
 4. Render prints one row per profile after the run

🔍 Example:

	tracker := status.NewTracker(&logger)
	tracker.StartOperation(ctx, len(jobs))
	tracker.TrackJob(ctx, status.JobRecord{Input: "cube.stl", Profile: "ABS", Status: status.JobSucceeded})
	tracker.Render(os.Stdout)
*/
package status
