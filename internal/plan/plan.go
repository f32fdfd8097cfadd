// Copyright 2026 Marko Milivojevic
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
//
// SPDX-License-Identifier: Apache-2.0

// Package plan validates a backup request and turns it into an immutable
// restic invocation.
package plan

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/icemarkom/restic-s3/internal/credentials"
	"github.com/icemarkom/restic-s3/internal/errors"
	"github.com/icemarkom/restic-s3/internal/repository"
)

// DefaultBinary is the restic executable looked up on PATH
const DefaultBinary = "restic"

// Request is everything the planner needs, gathered from flags and the
// resolved environment
type Request struct {
	Source     string
	Bucket     string
	Prefix     string
	Repository string // Full override; bucket/prefix/endpoint are ignored when set
	Binary     string // Defaults to DefaultBinary
	Tags       []string
	Excludes   []string
	Host       string
	Verbose    bool
	DryRun     bool

	Env          credentials.Env
	Missing      []string // Required variables without a value
	SettingsFile string   // Mentioned in hints when variables are missing
}

// Plan is a validated restic invocation. It cannot be modified after
// Planner.Plan returns it.
type Plan struct {
	binary     string
	enginePath string
	repository string
	source     string
	args       []string
	env        credentials.Env
	verbose    bool
	dryRun     bool
}

// Binary returns the engine name as requested (e.g. "restic")
func (p *Plan) Binary() string { return p.binary }

// EnginePath returns the resolved path of the engine executable
func (p *Plan) EnginePath() string { return p.enginePath }

// Repository returns the repository address
func (p *Plan) Repository() string { return p.repository }

// Source returns the path being backed up
func (p *Plan) Source() string { return p.source }

// Env returns the effective environment for the engine
func (p *Plan) Env() credentials.Env { return p.env }

// Verbose reports whether diagnostics were requested
func (p *Plan) Verbose() bool { return p.verbose }

// DryRun reports whether execution should be skipped
func (p *Plan) DryRun() bool { return p.dryRun }

// Args returns a copy of the engine arguments, without argv[0]
func (p *Plan) Args() []string {
	return append([]string(nil), p.args...)
}

// CommandLine renders the invocation for display. Arguments that need it
// are quoted. Secrets are never part of the argument vector.
func (p *Plan) CommandLine() string {
	parts := make([]string, 0, len(p.args)+1)
	parts = append(parts, quote(p.binary))
	for _, arg := range p.args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'\\$`") {
		return strconv.Quote(s)
	}
	return s
}

// Planner validates requests. Its hooks default to the real filesystem and
// PATH lookup.
type Planner struct {
	LookPath func(file string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
}

// NewPlanner returns a planner using exec.LookPath and os.Stat
func NewPlanner() *Planner {
	return &Planner{
		LookPath: exec.LookPath,
		Stat:     os.Stat,
	}
}

// Plan validates req and builds the invocation. Checks run in this order,
// stopping at the first failure:
//
//  1. repository override or bucket present
//  2. source path exists
//  3. required variables set
//  4. engine binary resolvable
//
// The first three are configuration errors (exit 2); the last is an
// environment error (exit 3).
func (pl *Planner) Plan(req Request) (*Plan, error) {
	repo := req.Repository
	if repo == "" {
		if strings.Trim(req.Bucket, "/") == "" {
			return nil, errors.MissingRequired("--bucket",
				"Pass --bucket, or give the full repository address with --repository s3:HOST/BUCKET[/PREFIX]")
		}
		repo = repository.Build(req.Env.Value(credentials.EnvEndpoint), req.Bucket, req.Prefix)
	}

	if req.Source == "" {
		return nil, errors.MissingRequired("--source", "Pass the file or directory to back up with --source PATH")
	}
	if _, err := pl.Stat(req.Source); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingFile(req.Source, "Check the --source path; it must exist before restic is invoked")
		}
		return nil, errors.WrapConfig(err, fmt.Sprintf("Cannot access source %s", req.Source),
			"Check the --source path and its permissions")
	}

	if len(req.Missing) > 0 {
		return nil, errors.MissingVariables(req.Missing, req.SettingsFile)
	}

	binary := req.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	enginePath, err := pl.LookPath(binary)
	if err != nil {
		return nil, errors.EngineNotFound(binary, err)
	}

	return &Plan{
		binary:     binary,
		enginePath: enginePath,
		repository: repo,
		source:     req.Source,
		args:       buildArgs(repo, req),
		env:        req.Env,
		verbose:    req.Verbose,
		dryRun:     req.DryRun,
	}, nil
}

// buildArgs assembles: -r REPO backup SOURCE [--tag T]... [--exclude P]... [--host H] [--verbose]
func buildArgs(repo string, req Request) []string {
	args := []string{"-r", repo, "backup", req.Source}

	for _, tag := range req.Tags {
		args = append(args, "--tag", tag)
	}
	for _, pattern := range req.Excludes {
		args = append(args, "--exclude", pattern)
	}
	if req.Host != "" {
		args = append(args, "--host", req.Host)
	}
	if req.Verbose {
		args = append(args, "--verbose")
	}

	return args
}
