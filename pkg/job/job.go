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

// Package job runs the slicer on one input file under one profile inside an
// isolated output directory.
package job

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// LogSuffix is appended to the staged input name to form the log path.
const LogSuffix = ".log"

// 🧱 Job is one (input, profile) conversion unit. It carries no handle to any
// profile container.
type Job struct {
	ID      uuid.UUID
	Input   string
	Profile string
}

// New creates a job with a fresh ID.
func New(input, profile string) Job {
	return Job{ID: uuid.New(), Input: input, Profile: profile}
}

func (j Job) String() string {
	return fmt.Sprintf("%s@%s", filepath.Base(j.Input), j.Profile)
}

// Layout is where a job stages its input and writes its log.
type Layout struct {
	Leaf   string
	Dir    string
	Staged string
	Log    string
}

// Layout derives <root>/<leaf>/<profile>/ and the staged input and log inside it.
func (j Job) Layout(outputRoot string) Layout {
	leaf := filepath.Base(j.Input)
	dir := filepath.Join(outputRoot, leaf, j.Profile)
	staged := filepath.Join(dir, leaf)
	return Layout{
		Leaf:   leaf,
		Dir:    dir,
		Staged: staged,
		Log:    staged + LogSuffix,
	}
}

// Plan builds one job per input for profile, in input order.
func Plan(profile string, inputs []string) []Job {
	jobs := make([]Job, 0, len(inputs))
	for _, in := range inputs {
		jobs = append(jobs, New(in, profile))
	}
	return jobs
}
