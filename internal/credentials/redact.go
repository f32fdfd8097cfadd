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

package credentials

// Display markers used by Redact.
const (
	RedactedMarker = "***REDACTED***"
	NotSetMarker   = "(not set)"
)

// SecretKeys never appear verbatim in any output.
var SecretKeys = []string{EnvAccessKey, EnvSecretKey, EnvSessionToken, EnvPassword}

// reportedKeys are always listed, even when absent.
var reportedKeys = []string{EnvEndpoint, EnvAccessKey, EnvSecretKey, EnvPassword}

// Entry is one display-safe environment line
type Entry struct {
	Key   string
	Value string
}

// String renders the entry as KEY=value
func (e Entry) String() string {
	return e.Key + "=" + e.Value
}

// IsSecret reports whether key belongs to SecretKeys
func IsSecret(key string) bool {
	for _, k := range SecretKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Redact returns a display-safe view of env. Secret values are replaced by
// RedactedMarker, empty or absent values by NotSetMarker, and everything
// else passes through. The reported keys come first in fixed order,
// followed by the remaining keys sorted.
//
// This is the only function that turns environment values into text.
func Redact(env Env) []Entry {
	entries := make([]Entry, 0, env.Len()+len(reportedKeys))
	seen := make(map[string]bool, len(reportedKeys))

	for _, k := range reportedKeys {
		entries = append(entries, redactEntry(k, env.Value(k)))
		seen[k] = true
	}
	for _, k := range env.Keys() {
		if seen[k] {
			continue
		}
		entries = append(entries, redactEntry(k, env.Value(k)))
	}
	return entries
}

func redactEntry(key, value string) Entry {
	switch {
	case value == "":
		return Entry{Key: key, Value: NotSetMarker}
	case IsSecret(key):
		return Entry{Key: key, Value: RedactedMarker}
	default:
		return Entry{Key: key, Value: value}
	}
}
