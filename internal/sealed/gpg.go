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
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// maxSealedSize bounds how much of a sealed settings file is buffered.
const maxSealedSize = 1 << 20

// GPGOpener opens OpenPGP-encrypted settings files with a private key
type GPGOpener struct {
	privateKeyPath string
	passphrase     []byte
}

// NewGPGOpener creates an OpenPGP opener for the key at cfg.Identity
func NewGPGOpener(cfg Config) *GPGOpener {
	return &GPGOpener{
		privateKeyPath: cfg.Identity,
		passphrase:     []byte(cfg.Passphrase),
	}
}

// Open decrypts an OpenPGP message, armored or binary
func (o *GPGOpener) Open(ciphertext io.Reader) (io.Reader, error) {
	keyring, err := o.loadPrivateKeyring()
	if err != nil {
		return nil, fmt.Errorf("failed to load private keys: %w", err)
	}

	for _, entity := range keyring {
		if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt(o.passphrase); err != nil {
				return nil, fmt.Errorf("failed to decrypt private key: %w", err)
			}
		}
		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt(o.passphrase); err != nil {
					return nil, fmt.Errorf("failed to decrypt subkey: %w", err)
				}
			}
		}
	}

	body, err := unarmor(ciphertext)
	if err != nil {
		return nil, err
	}

	md, err := openpgp.ReadMessage(body, keyring, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted settings file: %w", err)
	}

	return md.UnverifiedBody, nil
}

// Type returns GPG
func (o *GPGOpener) Type() Method {
	return GPG
}

func (o *GPGOpener) loadPrivateKeyring() (openpgp.EntityList, error) {
	if o.privateKeyPath == "" {
		return nil, fmt.Errorf("private key path not configured")
	}

	keyFile, err := os.Open(o.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open private key file %s: %w", o.privateKeyPath, err)
	}
	defer keyFile.Close()

	// Try armored format first
	keyring, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		if _, seekErr := keyFile.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("failed to rewind private key file: %w", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("no private keys found in %s", o.privateKeyPath)
	}

	return keyring, nil
}

// unarmor strips ASCII armor when present. Settings files are small, so the
// whole message is buffered to sniff the header.
func unarmor(r io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSealedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted settings file: %w", err)
	}
	if len(data) > maxSealedSize {
		return nil, fmt.Errorf("encrypted settings file exceeds %d bytes", maxSealedSize)
	}

	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN PGP")) {
		return bytes.NewReader(data), nil
	}

	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode armored settings file: %w", err)
	}
	return block.Body, nil
}
