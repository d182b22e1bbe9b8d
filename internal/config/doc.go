// SPDX-License-Identifier: MPL-2.0

// Package config loads rbridge configuration.
//
// Values come from, in increasing priority: built-in defaults, a CUE file
// validated against the embedded #Config schema, and RBRIDGE_* environment
// variables (dots and dashes in keys become underscores). Filesystem paths
// support ~ and $VAR expansion.
package config
