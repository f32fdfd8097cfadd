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

// Package repository builds restic repository addresses for S3-compatible
// object stores.
package repository

import (
	"fmt"
	"strings"
)

// Scheme is the restic backend prefix for S3-compatible stores.
const Scheme = "s3"

// DefaultRegion is used to derive an endpoint when none is configured.
const DefaultRegion = "us-east-1"

// Build returns the restic repository address scheme:endpoint[/bucket][/prefix].
//
// Trailing slashes are stripped from endpoint, and leading/trailing slashes
// from bucket and prefix. Empty segments are omitted rather than joined, so
// the result never contains "//". Build does not check whether the
// combination makes sense (a prefix without a bucket is joined as-is).
func Build(endpoint, bucket, prefix string) string {
	parts := []string{Scheme + ":" + strings.TrimRight(endpoint, "/")}
	for _, segment := range []string{bucket, prefix} {
		if s := strings.Trim(segment, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// EndpointForRegion returns the Wasabi S3 endpoint host for a region
// (e.g. "s3.us-west-1.wasabisys.com"). An empty region uses DefaultRegion.
func EndpointForRegion(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		region = DefaultRegion
	}
	return fmt.Sprintf("s3.%s.wasabisys.com", region)
}
