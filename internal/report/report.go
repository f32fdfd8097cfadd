// Package report prints restic-s3 diagnostics and relays restic's output.
package report

import (
	"fmt"
	"io"

	"github.com/icemarkom/restic-s3/internal/credentials"
	"github.com/icemarkom/restic-s3/internal/engine"
	"github.com/icemarkom/restic-s3/internal/format"
	"github.com/icemarkom/restic-s3/internal/plan"
)

// Reporter writes to an stdout/stderr pair
type Reporter struct {
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a reporter
func New(stdout, stderr io.Writer) *Reporter {
	return &Reporter{Stdout: stdout, Stderr: stderr}
}

// Plan prints the repository, command line and redacted environment.
// Environment values only reach the output through credentials.Redact.
func (r *Reporter) Plan(p *plan.Plan) {
	fmt.Fprintf(r.Stdout, "Repository: %s\n", p.Repository())
	fmt.Fprintf(r.Stdout, "Source:     %s (%s)\n", p.Source(), format.Source(p.Source()))
	fmt.Fprintf(r.Stdout, "Command:    %s\n", p.CommandLine())
	fmt.Fprintln(r.Stdout, "Environment (redacted):")
	for _, entry := range credentials.Redact(p.Env()) {
		fmt.Fprintf(r.Stdout, "  %s\n", entry)
	}

	if p.DryRun() {
		fmt.Fprintf(r.Stdout, "Dry-run mode: not running %s.\n", p.Binary())
	}
}

// Outcome relays restic's captured output verbatim: stdout to stdout and
// stderr to stderr. In verbose mode a one-line summary follows.
func (r *Reporter) Outcome(p *plan.Plan, o *engine.Outcome) error {
	if o == nil || !o.Ran {
		return nil
	}

	if _, err := r.Stdout.Write(o.Stdout); err != nil {
		return fmt.Errorf("failed to relay %s output: %w", p.Binary(), err)
	}
	if _, err := r.Stderr.Write(o.Stderr); err != nil {
		return fmt.Errorf("failed to relay %s errors: %w", p.Binary(), err)
	}

	if p.Verbose() {
		if o.ExitCode == 0 {
			fmt.Fprintf(r.Stdout, "Backup completed successfully in %s\n", format.Elapsed(o.Elapsed))
		} else {
			fmt.Fprintf(r.Stderr, "%s exited with status %d after %s\n", p.Binary(), o.ExitCode, format.Elapsed(o.Elapsed))
		}
	}
	return nil
}
