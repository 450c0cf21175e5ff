// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for filecached.
//
// Configuration is loaded from a single file specified by either the
// FILECACHED_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no fallback search path and no
// automatic discovery, so configuration stays deterministic and
// auditable.
//
// [Config] mirrors the external configuration surface of the content
// cache directly: directory, the optional byte ceiling, refresh
// interval, cache lifetime, replacement policy, read allow-list, write
// patterns, redirect and notification rules, and the HTTP protocol
// toggles. Struct tags drive both YAML decoding (via gopkg.in/yaml.v3)
// and validation (via github.com/go-playground/validator/v10);
// [Config.Validate] layers a handful of cross-field checks the
// specification calls out explicitly on top of the tag-driven checks.
//
// Key exports:
//
//   - [Config] -- the master struct
//   - [Default] -- a Config with conservative zero-value defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other filecached package.
package config
