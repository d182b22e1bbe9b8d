// SPDX-License-Identifier: MPL-2.0

// Package main is the entry point for the rbridge CLI.
package main

import cmd "github.com/salesdash/rbridge/cmd/rbridge"

func main() {
	cmd.Execute()
}
