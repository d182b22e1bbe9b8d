// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"

	"mvdan.cc/sh/v3/shell"
)

// expandEnv is the variable lookup used for path expansion. Tests replace it.
var expandEnv = os.Getenv

// ExpandPath expands a leading ~ and $VAR / ${VAR} references the way a
// POSIX shell would, without running any commands. Empty input stays empty.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	out, err := shell.Expand(p, expandEnv)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return out, nil
}

func expandPaths(cfg *Config) error {
	fields := []*string{
		&cfg.ProjectRoot,
		&cfg.R.Home,
		&cfg.R.Executable,
		&cfg.R.Rscript,
	}
	for _, f := range fields {
		expanded, err := ExpandPath(*f)
		if err != nil {
			return err
		}
		*f = expanded
	}
	for name, p := range cfg.Scripts {
		expanded, err := ExpandPath(p)
		if err != nil {
			return err
		}
		cfg.Scripts[name] = expanded
	}
	return nil
}
