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

// Package credentials resolves the environment handed to restic from CLI
// flags, the process environment and the settings file, and renders it
// safely for display.
package credentials

import (
	"sort"
	"strings"

	"github.com/icemarkom/restic-s3/internal/repository"
)

// Environment variable names understood by restic-s3 and restic.
const (
	EnvEndpoint     = "WASABI_ENDPOINT"
	EnvAccessKey    = "AWS_ACCESS_KEY_ID"
	EnvSecretKey    = "AWS_SECRET_ACCESS_KEY"
	EnvSessionToken = "AWS_SESSION_TOKEN"
	EnvPassword     = "RESTIC_PASSWORD"
	EnvPath         = "PATH"
	EnvHome         = "HOME"
)

// RequiredKeys must be non-empty before restic may run.
var RequiredKeys = []string{EnvAccessKey, EnvSecretKey, EnvPassword}

// credentialKeys are taken from the CLI, ambient and file layers.
var credentialKeys = []string{EnvEndpoint, EnvAccessKey, EnvSecretKey, EnvSessionToken, EnvPassword}

// preservedKeys come from the ambient environment only.
var preservedKeys = []string{EnvPath, EnvHome}

// Overrides holds values given on the command line. Empty fields are unset.
type Overrides struct {
	Endpoint  string // --endpoint
	Region    string // --region, used only when no endpoint is configured
	AccessKey string // --access-key
	SecretKey string // --secret-key
	Password  string // --password
}

func (o Overrides) values() map[string]string {
	return map[string]string{
		EnvEndpoint:  o.Endpoint,
		EnvAccessKey: o.AccessKey,
		EnvSecretKey: o.SecretKey,
		EnvPassword:  o.Password,
	}
}

// Env is the effective environment passed to restic. It has no mutators;
// the zero value is an empty environment.
type Env struct {
	vars map[string]string
}

// Get returns the value for key and whether it is present
func (e Env) Get(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Value returns the value for key, or "" when absent
func (e Env) Value(key string) string {
	return e.vars[key]
}

// Len returns the number of variables
func (e Env) Len() int {
	return len(e.vars)
}

// Keys returns the variable names in sorted order
func (e Env) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Environ returns the environment as sorted KEY=value pairs for exec.Cmd.Env
func (e Env) Environ() []string {
	keys := e.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+e.vars[k])
	}
	return out
}

// Missing returns the required keys whose value is empty or absent, in
// RequiredKeys order.
func (e Env) Missing() []string {
	var missing []string
	for _, k := range RequiredKeys {
		if e.vars[k] == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// NewEnv builds an Env from a map. The map is copied.
func NewEnv(vars map[string]string) Env {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return Env{vars: copied}
}

// Resolve merges the three configuration layers into the effective
// environment and reports which required variables are still missing.
//
// Precedence, highest first: CLI override, ambient process environment,
// settings file. A settings-file value only fills a key the ambient
// environment does not define, and CLI overrides are applied last. When no
// layer provides an endpoint, one is derived from overrides.Region.
//
// PATH and HOME are carried through from ambient unmodified. Nothing else
// from the ambient environment is inherited. Neither input map is modified.
func Resolve(overrides Overrides, ambient, file map[string]string) (Env, []string) {
	vars := make(map[string]string, len(credentialKeys)+len(preservedKeys))

	for _, k := range credentialKeys {
		if v, ok := file[k]; ok {
			vars[k] = v
		}
		if v, ok := ambient[k]; ok {
			vars[k] = v
		}
	}

	for k, v := range overrides.values() {
		if v != "" {
			vars[k] = v
		}
	}

	if vars[EnvEndpoint] == "" {
		vars[EnvEndpoint] = repository.EndpointForRegion(overrides.Region)
	}

	for _, k := range preservedKeys {
		if v, ok := ambient[k]; ok {
			vars[k] = v
		}
	}

	env := Env{vars: vars}
	return env, env.Missing()
}

// AmbientFromEnviron converts KEY=value pairs (as returned by os.Environ)
// into a map. Later duplicates win, matching os.Getenv.
func AmbientFromEnviron(environ []string) map[string]string {
	ambient := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		ambient[k] = v
	}
	return ambient
}
