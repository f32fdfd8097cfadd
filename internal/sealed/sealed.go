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

// Package sealed opens settings files that are kept encrypted at rest with
// age or OpenPGP, so credentials never sit on disk in the clear.
package sealed

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Method identifies how a settings file is sealed
type Method string

const (
	None Method = ""
	AGE  Method = "age"
	GPG  Method = "gpg"
)

// Opener decrypts a sealed settings stream
type Opener interface {
	// Open decrypts the input stream and returns the plaintext
	Open(ciphertext io.Reader) (io.Reader, error)

	// Type returns the sealing method
	Type() Method
}

// Config holds the key material needed to open a sealed file
type Config struct {
	Method     Method
	Identity   string // Path to age identity file or OpenPGP private key
	Passphrase string // OpenPGP key passphrase (optional)
}

// MethodForPath infers the sealing method from a file extension.
// ".age" is age; ".gpg", ".pgp" and ".asc" are OpenPGP; anything else is plain.
func MethodForPath(path string) Method {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".age":
		return AGE
	case ".gpg", ".pgp", ".asc":
		return GPG
	default:
		return None
	}
}

// NewOpener creates an opener for cfg.Method
func NewOpener(cfg Config) (Opener, error) {
	switch cfg.Method {
	case AGE:
		return NewAgeOpener(cfg), nil
	case GPG:
		return NewGPGOpener(cfg), nil
	case None:
		return nil, fmt.Errorf("settings file is not sealed")
	default:
		return nil, fmt.Errorf("unknown sealing method: %s", cfg.Method)
	}
}
