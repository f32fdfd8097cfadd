package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/icemarkom/restic-s3/internal/credentials"
	"github.com/icemarkom/restic-s3/internal/engine"
	"github.com/icemarkom/restic-s3/internal/errors"
	"github.com/icemarkom/restic-s3/internal/passphrase"
	"github.com/icemarkom/restic-s3/internal/plan"
	"github.com/icemarkom/restic-s3/internal/report"
	"github.com/icemarkom/restic-s3/internal/repository"
	"github.com/icemarkom/restic-s3/internal/settings"
)

// DefaultPrefix is the folder inside the bucket used when --prefix is not given
const DefaultPrefix = "restic"

// backupOptions holds the flag values for one run
type backupOptions struct {
	source     string
	bucket     string
	prefix     string
	endpoint   string
	region     string
	repository string

	accessKey string
	secretKey string
	password  string

	envFile                string
	identity               string
	identityPassphrase     string
	identityPassphraseFile string

	binary   string
	tags     []string
	excludes []string
	host     string

	dryRun  bool
	verbose bool
}

var backupOpts backupOptions

func init() {
	flags := rootCmd.Flags()

	flags.StringVar(&backupOpts.source, "source", "", "File or directory to back up (required)")
	flags.StringVar(&backupOpts.bucket, "bucket", "", "Bucket name (required unless --repository is given)")
	flags.StringVar(&backupOpts.prefix, "prefix", DefaultPrefix, "Folder inside the bucket")
	flags.StringVar(&backupOpts.endpoint, "endpoint", "", "S3 endpoint host (overrides WASABI_ENDPOINT)")
	flags.StringVar(&backupOpts.region, "region", repository.DefaultRegion, "Wasabi region, used when no endpoint is configured")
	flags.StringVar(&backupOpts.repository, "repository", "", "Full restic repository address (overrides --bucket, --prefix and the endpoint)")

	flags.StringVar(&backupOpts.accessKey, "access-key", "", "S3 access key ID (overrides AWS_ACCESS_KEY_ID)")
	flags.StringVar(&backupOpts.secretKey, "secret-key", "", "S3 secret access key (overrides AWS_SECRET_ACCESS_KEY; insecure)")
	flags.StringVar(&backupOpts.password, "password", "", "restic repository password (overrides RESTIC_PASSWORD; insecure)")

	flags.StringVar(&backupOpts.envFile, "env-file", settings.DefaultPath, "Settings file with KEY=value lines (.age/.gpg files are decrypted)")
	flags.StringVar(&backupOpts.identity, "identity", "", "age identity or OpenPGP private key for an encrypted --env-file")
	flags.StringVar(&backupOpts.identityPassphrase, "identity-passphrase", "", "OpenPGP private key passphrase (insecure, prefer "+passphrase.EnvName+")")
	flags.StringVar(&backupOpts.identityPassphraseFile, "identity-passphrase-file", "", "File containing the OpenPGP private key passphrase")

	flags.StringVar(&backupOpts.binary, "restic-binary", plan.DefaultBinary, "restic executable name or path")
	flags.StringArrayVar(&backupOpts.tags, "tag", nil, "Tag for the snapshot (repeatable)")
	flags.StringArrayVar(&backupOpts.excludes, "exclude", nil, "Exclude pattern passed to restic (repeatable)")
	flags.StringVar(&backupOpts.host, "host", "", "Hostname recorded in the snapshot")

	flags.BoolVar(&backupOpts.dryRun, "dry-run", false, "Print the restic command and redacted environment without running it")
	flags.BoolVarP(&backupOpts.verbose, "verbose", "v", false, "Verbose output")
}

func runBackup(cmd *cobra.Command, args []string) error {
	return backup(backupOpts, credentials.AmbientFromEnviron(os.Environ()),
		cmd.OutOrStdout(), cmd.ErrOrStderr(), plan.NewPlanner(), newExecutor(cmd))
}

// newExecutor draws the verbose spinner on the command's stderr
func newExecutor(cmd *cobra.Command) *engine.Executor {
	return &engine.Executor{Progress: cmd.ErrOrStderr()}
}

// backup runs the whole pipeline: settings → credentials → plan → report → execute → report.
// ambient is read once by the caller and never consulted again.
func backup(opts backupOptions, ambient map[string]string, stdout, stderr io.Writer, planner *plan.Planner, executor *engine.Executor) error {
	if opts.secretKey != "" || opts.password != "" {
		fmt.Fprintln(stderr, "WARNING: Secrets on the command line are visible in process lists. Prefer the environment or --env-file.")
	}

	file, err := settings.Load(settings.Options{
		Path:           opts.envFile,
		Identity:       opts.identity,
		PassphraseFlag: opts.identityPassphrase,
		PassphraseEnv:  ambient[passphrase.EnvName],
		PassphraseFile: opts.identityPassphraseFile,
		Warn:           stderr,
	})
	if err != nil {
		return err
	}
	if opts.verbose {
		if file.Found {
			fmt.Fprintf(stdout, "Settings:   %s (%d values)\n", file.Path, len(file.Values))
		} else if file.Path != "" {
			fmt.Fprintf(stdout, "Settings:   %s (not found, skipped)\n", file.Path)
		}
	}

	env, missing := credentials.Resolve(credentials.Overrides{
		Endpoint:  opts.endpoint,
		Region:    opts.region,
		AccessKey: opts.accessKey,
		SecretKey: opts.secretKey,
		Password:  opts.password,
	}, ambient, file.Values)

	p, err := planner.Plan(plan.Request{
		Source:       opts.source,
		Bucket:       opts.bucket,
		Prefix:       opts.prefix,
		Repository:   opts.repository,
		Binary:       opts.binary,
		Tags:         opts.tags,
		Excludes:     opts.excludes,
		Host:         opts.host,
		Verbose:      opts.verbose,
		DryRun:       opts.dryRun,
		Env:          env,
		Missing:      missing,
		SettingsFile: opts.envFile,
	})
	if err != nil {
		return err
	}

	reporter := report.New(stdout, stderr)
	if p.Verbose() || p.DryRun() {
		reporter.Plan(p)
	}

	outcome, err := executor.Execute(p)
	if outcome != nil {
		if relayErr := reporter.Outcome(p, outcome); relayErr != nil && err == nil {
			err = relayErr
		}
	}
	if err != nil {
		return err
	}

	if outcome.ExitCode != 0 {
		return errors.EngineFailure(p.Binary(), outcome.ExitCode)
	}
	return nil
}
