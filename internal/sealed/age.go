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

package sealed

import (
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// AgeOpener opens settings files encrypted to an age X25519 recipient
type AgeOpener struct {
	identityPath string
}

// NewAgeOpener creates an age opener reading identities from cfg.Identity
func NewAgeOpener(cfg Config) *AgeOpener {
	return &AgeOpener{identityPath: cfg.Identity}
}

// Open decrypts an age stream
func (o *AgeOpener) Open(ciphertext io.Reader) (io.Reader, error) {
	if o.identityPath == "" {
		return nil, fmt.Errorf("age identity file not configured")
	}

	identities, err := o.loadIdentities()
	if err != nil {
		return nil, fmt.Errorf("failed to load age identities: %w", err)
	}

	reader, err := age.Decrypt(ciphertext, identities...)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt age settings file: %w", err)
	}

	return reader, nil
}

// Type returns AGE
func (o *AgeOpener) Type() Method {
	return AGE
}

func (o *AgeOpener) loadIdentities() ([]age.Identity, error) {
	f, err := os.Open(o.identityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open age identity file %s: %w", o.identityPath, err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse age identities from %s: %w", o.identityPath, err)
	}

	if len(identities) == 0 {
		return nil, fmt.Errorf("no age identities found in %s", o.identityPath)
	}

	return identities, nil
}
