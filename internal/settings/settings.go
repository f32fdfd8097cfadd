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

// Package settings reads the optional KEY=value settings file. It never
// touches the process environment; merging is left to the credentials
// package.
package settings

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/icemarkom/restic-s3/internal/errors"
	"github.com/icemarkom/restic-s3/internal/passphrase"
	"github.com/icemarkom/restic-s3/internal/sealed"
)

// DefaultPath is the settings file read when --env-file is not given
const DefaultPath = ".env.local"

// Options controls how the settings file is read
type Options struct {
	Path     string
	Identity string // Key for sealed (.age/.gpg) files

	// OpenPGP key passphrase sources, consulted only once a .gpg file is found
	PassphraseFlag string
	PassphraseEnv  string
	PassphraseFile string

	Warn io.Writer // Destination for warnings (nil discards)
}

// File is the result of reading a settings file
type File struct {
	Path   string
	Found  bool
	Sealed sealed.Method
	Values map[string]string
}

// Load reads the settings file at opts.Path. A missing file is not an error:
// it yields a File with Found false and no values. Files ending in .age or
// .gpg are decrypted with opts.Identity before parsing.
func Load(opts Options) (*File, error) {
	file := &File{
		Path:   opts.Path,
		Sealed: sealed.MethodForPath(opts.Path),
		Values: map[string]string{},
	}
	if opts.Path == "" {
		return file, nil
	}

	warn := opts.Warn
	if warn == nil {
		warn = io.Discard
	}

	info, err := os.Stat(opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return nil, errors.WrapConfig(err, fmt.Sprintf("Cannot read settings file %s", opts.Path),
			"Check the file permissions or pass a different --env-file")
	}
	if info.IsDir() {
		return nil, errors.InvalidConfig("--env-file", fmt.Sprintf("%s is a directory", opts.Path),
			"Point --env-file at a KEY=value file")
	}
	file.Found = true

	if file.Sealed == sealed.None && info.Mode().Perm()&0004 != 0 {
		fmt.Fprintf(warn, "WARNING: Settings file %s is world-readable. Recommend: chmod 600 %s\n", opts.Path, opts.Path)
	}

	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, errors.WrapConfig(err, fmt.Sprintf("Cannot read settings file %s", opts.Path),
			"Check the file permissions or pass a different --env-file")
	}
	defer f.Close()

	var r io.Reader = f
	if file.Sealed != sealed.None {
		r, err = open(file.Sealed, f, opts, warn)
		if err != nil {
			return nil, err
		}
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapConfig(err, fmt.Sprintf("Cannot read settings file %s", opts.Path),
			"Check the file permissions or pass a different --env-file")
	}

	values, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		// godotenv quotes the offending content, which may be a secret.
		// Report the location only and drop the cause.
		return nil, errors.InvalidConfig("--env-file",
			fmt.Sprintf("%s has a malformed KEY=value line (line %d)", opts.Path, badLine(content)),
			"Use one KEY=value pair per line and close every quoted value")
	}
	file.Values = values

	return file, nil
}

// badLine returns the 1-based line where parsing starts to fail: one past
// the longest prefix of whole lines that still parses.
func badLine(content []byte) int {
	lines := bytes.SplitAfter(content, []byte("\n"))
	for n := len(lines) - 1; n > 0; n-- {
		if _, err := godotenv.Parse(bytes.NewReader(bytes.Join(lines[:n], nil))); err == nil {
			return n + 1
		}
	}
	return 1
}

func open(method sealed.Method, r io.Reader, opts Options, warn io.Writer) (io.Reader, error) {
	if opts.Identity == "" {
		return nil, errors.MissingRequired("--identity",
			fmt.Sprintf("%s is encrypted with %s; pass the key that opens it with --identity", opts.Path, method))
	}

	var keyPassphrase string
	if method == sealed.GPG {
		var err error
		keyPassphrase, err = passphrase.Get(opts.PassphraseFlag, opts.PassphraseEnv, opts.PassphraseFile, warn)
		if err != nil {
			return nil, errors.WrapConfig(err, "Cannot read the identity passphrase",
				"Use exactly one of --identity-passphrase, --identity-passphrase-file or "+passphrase.EnvName)
		}
	}

	opener, err := sealed.NewOpener(sealed.Config{
		Method:     method,
		Identity:   opts.Identity,
		Passphrase: keyPassphrase,
	})
	if err != nil {
		return nil, err
	}

	plaintext, err := opener.Open(r)
	if err != nil {
		return nil, errors.WrapConfig(err, fmt.Sprintf("Failed to decrypt settings file %s", opts.Path),
			"Check that --identity holds the key the file was encrypted to")
	}
	return plaintext, nil
}
