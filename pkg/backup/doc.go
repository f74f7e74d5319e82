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
Package backup manages the ".bak" siblings that mark a profile container as
patched and pending restoration.

	+-------------+   Create    +-----------------+
	|  live file  | ----------> |  live file.bak  |
	+-------------+             +-----------------+
	       ^                             |
	       +---------- Restore ----------+
	                 (rename back)

🎯 Rules:
  - a backup is created before the first mutation of a container and never
    overwritten while it exists, so it always holds the original content
  - the existence of the sibling is the only "pending restoration" signal
  - restoring moves the backup over the live file, which also removes it
  - a leftover backup after a run is the marker for `slicebatch recover`

The Guard type owns every backup taken during a run and restores them all when
released, on normal completion, validation abort or interrupt alike.
*/
package backup
