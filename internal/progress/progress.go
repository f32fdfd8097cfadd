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

package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Config holds configuration for progress tracking
type Config struct {
	Description string    // Description of the operation
	Enabled     bool      // Only true when --verbose flag is set
	Output      io.Writer // Where the spinner is drawn (default: stderr)
}

// Writer wraps an io.Writer with an optional spinner that advances as
// restic produces output. restic's output is captured until it exits, so
// the spinner is the only sign of life during a long backup.
type Writer struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewWriter creates a new progress-tracking writer
// If config.Enabled is false, returns a pass-through writer with no spinner
func NewWriter(w io.Writer, cfg Config) *Writer {
	if !cfg.Enabled {
		return &Writer{writer: w}
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(cfg.Description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSpinnerType(14),
	)

	return &Writer{writer: w, bar: bar}
}

// Write implements io.Writer and advances the spinner
func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	if pw.bar != nil && n > 0 {
		pw.bar.Add(n)
	}
	return n, err
}

// Finish completes the spinner line
func (pw *Writer) Finish() {
	if pw.bar != nil {
		pw.bar.Finish()
	}
}
