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

// Package engine runs restic for a validated plan.
package engine

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/icemarkom/restic-s3/internal/errors"
	"github.com/icemarkom/restic-s3/internal/plan"
	"github.com/icemarkom/restic-s3/internal/progress"
)

// Outcome is the result of one engine invocation
type Outcome struct {
	Ran      bool // false for dry runs
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elapsed  time.Duration
}

// Executor runs restic. The zero value is ready to use.
type Executor struct {
	// Progress receives the verbose-mode spinner (default: stderr)
	Progress io.Writer
}

// Execute runs the plan's engine with exactly the plan's environment and
// waits for it to finish. Stdout and stderr are captured separately so the
// caller can relay them after its own diagnostics.
//
// A dry-run plan returns a zero Outcome without starting anything. A
// process that cannot be started yields an ExecutionStart error; a process
// that runs and exits non-zero is not an error here, its code is in
// Outcome.ExitCode. There is no timeout.
func (e *Executor) Execute(p *plan.Plan) (*Outcome, error) {
	if p.DryRun() {
		return &Outcome{}, nil
	}

	cmd := exec.Command(p.EnginePath(), p.Args()...)
	cmd.Env = p.Env().Environ()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.StartFailed(p.Binary(), err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		stdoutPipe.Close()
		return nil, errors.StartFailed(p.Binary(), err)
	}

	started := time.Now()
	// Start closes both pipes itself when it fails
	if err := cmd.Start(); err != nil {
		return nil, errors.StartFailed(p.Binary(), err)
	}

	var stdout, stderr bytes.Buffer
	spinner := progress.NewWriter(&stdout, progress.Config{
		Description: p.Binary() + " backup",
		Enabled:     p.Verbose(),
		Output:      e.Progress,
	})

	// Both pipes must be drained before Wait, or a chatty child blocks
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(spinner, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	copyErr := g.Wait()
	waitErr := cmd.Wait()
	spinner.Finish()

	outcome := &Outcome{
		Ran:     true,
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: time.Since(started),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(waitErr, &exitErr) {
			return outcome, fmt.Errorf("failed waiting for %s: %w", p.Binary(), waitErr)
		}
		outcome.ExitCode = exitErr.ExitCode()
		if outcome.ExitCode < 0 {
			// Terminated by a signal
			outcome.ExitCode = errors.ExitGeneral
		}
	}

	if copyErr != nil {
		return outcome, fmt.Errorf("failed to capture %s output: %w", p.Binary(), copyErr)
	}

	return outcome, nil
}
