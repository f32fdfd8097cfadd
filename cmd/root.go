package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icemarkom/restic-s3/internal/errors"
)

var (
	appVersion = "dev"
	appCommit  = "unknown"
	appDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "restic-s3 --source PATH [--bucket NAME | --repository s3:HOST/BUCKET]",
	Short: "Back up a file or directory to S3-compatible storage with restic",
	Long: `restic-s3 backs up a local file or directory to an S3-compatible
object store (Wasabi by default) by running restic with a scoped environment.

Configuration is resolved in this order (highest first):
  1. Command-line flags (--endpoint, --access-key, --secret-key, --password)
  2. Process environment (WASABI_ENDPOINT, AWS_ACCESS_KEY_ID,
     AWS_SECRET_ACCESS_KEY, RESTIC_PASSWORD)
  3. Settings file (--env-file, default .env.local; .age/.gpg files are
     decrypted with --identity)

Only the variables above plus PATH and HOME are passed to restic.
Secrets are always redacted in --verbose and --dry-run output.

Exit codes:
  0  success or dry run
  2  invalid or missing configuration
  3  restic not found
  4  restic could not be started
  *  any other code is restic's own exit status`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBackup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "restic-s3 %s\n", appVersion)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", appCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", appDate)
	},
}

// SetVersion sets version information from build-time ldflags
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the current application version
func GetVersion() string {
	return appVersion
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Flag parsing problems are configuration errors (exit 2)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.WrapConfig(err, err.Error(), fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()))
	})
}
