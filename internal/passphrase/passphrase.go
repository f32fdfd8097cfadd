package passphrase

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// EnvName is the environment variable holding the identity key passphrase
const EnvName = "RESTIC_S3_IDENTITY_PASSPHRASE"

// Get retrieves the identity key passphrase from one of three sources in priority order:
// 1. Flag value (--identity-passphrase)
// 2. Environment value (RESTIC_S3_IDENTITY_PASSPHRASE, already looked up by the caller)
// 3. File path (--identity-passphrase-file)
//
// Returns an error if multiple sources are provided (mutually exclusive).
// Returns empty string if no sources are provided (allowed for keys without passphrase).
// Warnings (flag use, world-readable file) go to warn.
func Get(flagValue, envValue, filePath string, warn io.Writer) (string, error) {
	sources := []string{}

	if flagValue != "" {
		sources = append(sources, "--identity-passphrase flag")
	}
	if envValue != "" {
		sources = append(sources, fmt.Sprintf("%s environment variable", EnvName))
	}
	if filePath != "" {
		sources = append(sources, "--identity-passphrase-file flag")
	}

	if len(sources) > 1 {
		return "", fmt.Errorf("multiple passphrase sources provided (%s). Use only one method", strings.Join(sources, ", "))
	}

	switch {
	case flagValue != "":
		fmt.Fprintf(warn, "WARNING: Passphrase on command line is insecure and visible in process lists. Use %s environment variable or --identity-passphrase-file instead.\n", EnvName)
		return flagValue, nil
	case envValue != "":
		return envValue, nil
	case filePath != "":
		return readFromFile(filePath, warn)
	}

	return "", nil
}

// readFromFile reads the passphrase from a file safely
func readFromFile(path string, warn io.Writer) (string, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("passphrase file not found: %s", path)
		}
		return "", fmt.Errorf("failed to read passphrase file: %w", err)
	}

	if fileInfo.Mode().Perm()&0004 != 0 {
		fmt.Fprintf(warn, "WARNING: Passphrase file %s is world-readable. Recommend: chmod 600 %s\n", path, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase file: %w", err)
	}

	passphrase := strings.TrimSpace(string(data))
	if passphrase == "" {
		return "", fmt.Errorf("passphrase file is empty: %s", path)
	}

	return passphrase, nil
}
