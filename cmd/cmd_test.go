package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icemarkom/restic-s3/internal/credentials"
	"github.com/icemarkom/restic-s3/internal/engine"
	"github.com/icemarkom/restic-s3/internal/errors"
	"github.com/icemarkom/restic-s3/internal/plan"
	"github.com/icemarkom/restic-s3/internal/repository"
)

// Test flag defaults
func TestRootCommand_FlagDefaults(t *testing.T) {
	cmd := rootCmd

	prefix, _ := cmd.Flags().GetString("prefix")
	assert.Equal(t, DefaultPrefix, prefix, "default prefix should be the package constant")

	region, _ := cmd.Flags().GetString("region")
	assert.Equal(t, repository.DefaultRegion, region)

	envFile, _ := cmd.Flags().GetString("env-file")
	assert.Equal(t, ".env.local", envFile)

	binary, _ := cmd.Flags().GetString("restic-binary")
	assert.Equal(t, "restic", binary)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	assert.False(t, dryRun, "default dry-run should be false")

	verbose, _ := cmd.Flags().GetBool("verbose")
	assert.False(t, verbose, "default verbose should be false")
}

func TestRootCommand_FlagsRegistered(t *testing.T) {
	for _, name := range []string{
		"source", "bucket", "prefix", "endpoint", "region", "repository",
		"access-key", "secret-key", "password", "env-file",
		"identity", "identity-passphrase", "identity-passphrase-file",
		"restic-binary", "tag", "exclude", "host", "dry-run", "verbose",
	} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), "flag --%s", name)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	commandNames := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "version")
}

func TestRootCommand_UnknownFlagIsConfigurationError(t *testing.T) {
	rootCmd.SetArgs([]string{"--no-such-flag"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	defer SetVersion("dev", "unknown", "unknown")

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "restic-s3 1.2.3")
	assert.Contains(t, out.String(), "commit: abc123")
	assert.Equal(t, "1.2.3", GetVersion())
}

// fakeRestic writes a shell script standing in for restic
func fakeRestic(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake restic scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "restic")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func credentialsAmbient() map[string]string {
	return map[string]string{
		credentials.EnvAccessKey: "AKIASCENARIO",
		credentials.EnvSecretKey: "scenario-secret",
		credentials.EnvPassword:  "scenario-password",
		credentials.EnvPath:      os.Getenv("PATH"),
		credentials.EnvHome:      "/home/backup",
	}
}

type runResult struct {
	err    error
	stdout string
	stderr string
}

func run(opts backupOptions, ambient map[string]string) runResult {
	var stdout, stderr bytes.Buffer
	err := backup(opts, ambient, &stdout, &stderr, plan.NewPlanner(), &engine.Executor{Progress: &bytes.Buffer{}})
	return runResult{err: err, stdout: stdout.String(), stderr: stderr.String()}
}

func scenarioOptions(t *testing.T, binary string) backupOptions {
	t.Helper()
	source := filepath.Join(t.TempDir(), "photos")
	require.NoError(t, os.Mkdir(source, 0755))

	return backupOptions{
		source:   source,
		bucket:   "trips",
		prefix:   "2024",
		endpoint: "s3.example.com",
		region:   repository.DefaultRegion,
		envFile:  filepath.Join(t.TempDir(), ".env.local"),
		binary:   binary,
	}
}

func TestBackup_PropagatesEngineExitStatus(t *testing.T) {
	script := fakeRestic(t, `echo "repository=$2"
echo "restic: some files could not be read" >&2
exit 3
`)
	res := run(scenarioOptions(t, script), credentialsAmbient())

	require.Error(t, res.err)
	assert.Equal(t, 3, errors.ExitCode(res.err))
	assert.Equal(t, "repository=s3:s3.example.com/trips/2024\n", res.stdout)
	assert.Equal(t, "restic: some files could not be read\n", res.stderr)
}

func TestBackup_Success(t *testing.T) {
	script := fakeRestic(t, "echo \"snapshot saved to $2\"\n")
	res := run(scenarioOptions(t, script), credentialsAmbient())

	require.NoError(t, res.err)
	assert.Equal(t, errors.ExitOK, errors.ExitCode(res.err))
	assert.Equal(t, "snapshot saved to s3:s3.example.com/trips/2024\n", res.stdout)
}

func TestBackup_DryRun(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	script := fakeRestic(t, "touch "+marker+"\n")
	opts := scenarioOptions(t, script)
	opts.dryRun = true

	res := run(opts, credentialsAmbient())

	require.NoError(t, res.err)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "dry run must not start restic")

	assert.Contains(t, res.stdout, "Repository: s3:s3.example.com/trips/2024")
	assert.Contains(t, res.stdout, "Dry-run mode")
	assert.Contains(t, res.stdout, "RESTIC_PASSWORD="+credentials.RedactedMarker)
	for _, secret := range []string{"AKIASCENARIO", "scenario-secret", "scenario-password"} {
		assert.NotContains(t, res.stdout+res.stderr, secret)
	}
}

func TestBackup_MissingPassword(t *testing.T) {
	script := fakeRestic(t, "exit 0\n")
	ambient := credentialsAmbient()
	delete(ambient, credentials.EnvPassword)

	res := run(scenarioOptions(t, script), ambient)

	require.Error(t, res.err)
	assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(res.err))
	assert.Contains(t, res.err.Error(), "RESTIC_PASSWORD")
	assert.NotContains(t, res.err.Error(), "scenario-secret")
}

func TestBackup_MissingBucket(t *testing.T) {
	opts := scenarioOptions(t, fakeRestic(t, "exit 0\n"))
	opts.bucket = ""

	res := run(opts, credentialsAmbient())

	require.Error(t, res.err)
	assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(res.err))
	assert.Contains(t, res.err.Error(), "--bucket")
}

func TestBackup_RepositoryOverride(t *testing.T) {
	opts := scenarioOptions(t, fakeRestic(t, "echo \"$2\"\n"))
	opts.bucket = ""
	opts.repository = "s3:example.com/mybucket"

	res := run(opts, credentialsAmbient())

	require.NoError(t, res.err)
	assert.Equal(t, "s3:example.com/mybucket\n", res.stdout)
}

func TestBackup_NonexistentSource(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	opts := scenarioOptions(t, fakeRestic(t, "touch "+marker+"\n"))
	opts.source = filepath.Join(t.TempDir(), "missing")

	res := run(opts, credentialsAmbient())

	require.Error(t, res.err)
	assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(res.err))
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBackup_EngineNotFound(t *testing.T) {
	opts := scenarioOptions(t, "restic-s3-test-no-such-binary")

	res := run(opts, credentialsAmbient())

	require.Error(t, res.err)
	assert.Equal(t, errors.ExitEnvironment, errors.ExitCode(res.err))
}

func TestBackup_SettingsFilePrecedence(t *testing.T) {
	script := fakeRestic(t, `echo "access=$AWS_ACCESS_KEY_ID"
echo "secret=$AWS_SECRET_ACCESS_KEY"
echo "password=$RESTIC_PASSWORD"
echo "endpoint=$WASABI_ENDPOINT"
`)
	opts := scenarioOptions(t, script)
	opts.endpoint = ""
	opts.secretKey = "cli-secret"
	require.NoError(t, os.WriteFile(opts.envFile, []byte(`AWS_ACCESS_KEY_ID=file-access
AWS_SECRET_ACCESS_KEY=file-secret
RESTIC_PASSWORD=file-password
WASABI_ENDPOINT=s3.file.example.com
`), 0600))

	ambient := map[string]string{
		credentials.EnvAccessKey: "ambient-access",
		credentials.EnvPath:      os.Getenv("PATH"),
	}

	res := run(opts, ambient)

	require.NoError(t, res.err)
	assert.Equal(t, strings.Join([]string{
		"access=ambient-access",
		"secret=cli-secret",
		"password=file-password",
		"endpoint=s3.file.example.com",
	}, "\n")+"\n", res.stdout)
	assert.Contains(t, res.stderr, "WARNING: Secrets on the command line")
}

func TestBackup_EndpointFromRegion(t *testing.T) {
	opts := scenarioOptions(t, fakeRestic(t, "echo \"$2\"\n"))
	opts.endpoint = ""
	opts.region = "eu-central-1"
	opts.prefix = ""

	res := run(opts, credentialsAmbient())

	require.NoError(t, res.err)
	assert.Equal(t, "s3:s3.eu-central-1.wasabisys.com/trips\n", res.stdout)
}

func TestBackup_VerboseReportsBeforeRelaying(t *testing.T) {
	opts := scenarioOptions(t, fakeRestic(t, "echo restic-output-line\n"))
	opts.verbose = true

	res := run(opts, credentialsAmbient())

	require.NoError(t, res.err)
	report := strings.Index(res.stdout, "Environment (redacted):")
	relayed := strings.Index(res.stdout, "restic-output-line")
	require.GreaterOrEqual(t, report, 0)
	require.GreaterOrEqual(t, relayed, 0)
	assert.Less(t, report, relayed, "diagnostics must come before restic output")
	assert.Contains(t, res.stdout, "Settings:   "+opts.envFile+" (not found, skipped)")
	assert.Contains(t, res.stdout, "Backup completed successfully")
}

func TestBackup_UnreadableSettingsFile(t *testing.T) {
	opts := scenarioOptions(t, fakeRestic(t, "exit 0\n"))
	opts.envFile = t.TempDir()

	res := run(opts, credentialsAmbient())

	require.Error(t, res.err)
	assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(res.err))
}

func TestBackup_ConflictingIdentityPassphrases(t *testing.T) {
	opts := scenarioOptions(t, fakeRestic(t, "exit 0\n"))
	opts.envFile = filepath.Join(t.TempDir(), "settings.env.gpg")
	require.NoError(t, os.WriteFile(opts.envFile, []byte("sealed"), 0600))
	opts.identity = filepath.Join(t.TempDir(), "key.asc")
	opts.identityPassphrase = "one"

	ambient := credentialsAmbient()
	ambient["RESTIC_S3_IDENTITY_PASSPHRASE"] = "two"

	res := run(opts, ambient)

	require.Error(t, res.err)
	assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(res.err))

	var userErr *errors.UserError
	require.ErrorAs(t, res.err, &userErr)
	require.NotNil(t, userErr.Cause)
	assert.Contains(t, userErr.Cause.Error(), "multiple passphrase sources")
}

func TestBackup_MissingGPGSettingsFileSkipsPassphrase(t *testing.T) {
	opts := scenarioOptions(t, fakeRestic(t, "exit 0\n"))
	opts.envFile = filepath.Join(t.TempDir(), "settings.env.gpg")
	opts.identityPassphrase = "one"

	ambient := credentialsAmbient()
	ambient["RESTIC_S3_IDENTITY_PASSPHRASE"] = "two"

	res := run(opts, ambient)

	require.NoError(t, res.err)
}

func TestBackup_MalformedSettingsFileDoesNotLeakSecrets(t *testing.T) {
	for name, content := range map[string]string{
		"unterminated quote": "RESTIC_PASSWORD=\"hunter2-top-secret\n",
		"bad key name":       "AWS_ACCESS_KEY_ID=AKIASCENARIO\nbad key!=x\nAWS_SECRET_ACCESS_KEY=hunter2-top-secret\n",
	} {
		t.Run(name, func(t *testing.T) {
			marker := filepath.Join(t.TempDir(), "ran")
			opts := scenarioOptions(t, fakeRestic(t, "touch "+marker+"\n"))
			require.NoError(t, os.WriteFile(opts.envFile, []byte(content), 0600))

			res := run(opts, map[string]string{credentials.EnvPath: os.Getenv("PATH")})

			require.Error(t, res.err)
			assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(res.err))
			assert.Contains(t, res.err.Error(), opts.envFile)
			assert.NotContains(t, res.err.Error(), "hunter2-top-secret")
			assert.NotContains(t, res.stdout+res.stderr, "hunter2-top-secret")

			_, statErr := os.Stat(marker)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestNewExecutor_SpinnerUsesCommandStderr(t *testing.T) {
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	defer rootCmd.SetErr(nil)

	assert.Same(t, &stderr, newExecutor(rootCmd).Progress)
}
