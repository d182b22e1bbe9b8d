// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"path/filepath"

	"github.com/spf13/afero"
)

type (
	// discoverer locates the R and Rscript executables. All filesystem and
	// environment access goes through its hooks.
	discoverer struct {
		fs       afero.Fs
		lookPath func(string) (string, error)
		getenv   func(string) string
		goos     string

		rHome       string
		rHomeSource Source
		explicitR   string
		explicitRs  string
	}

	candidate struct {
		path   string
		source Source
	}
)

func newDiscoverer(opts Options) *discoverer {
	d := &discoverer{
		fs:         opts.FS,
		lookPath:   opts.LookPath,
		getenv:     opts.Getenv,
		goos:       opts.GOOS,
		explicitR:  opts.RExecutable,
		explicitRs: opts.Rscript,
	}
	if opts.RHome != "" {
		d.rHome, d.rHomeSource = opts.RHome, SourceConfig
	} else if home := d.getenv("R_HOME"); home != "" {
		d.rHome, d.rHomeSource = home, SourceEnv
	}
	return d
}

// discover finds R (required) and Rscript (optional).
func (d *discoverer) discover() (Runtime, error) {
	rPath, rSource, ok := d.find(d.explicitR, d.rCandidates(), "R")
	if !ok {
		return Runtime{}, runtimeNotFoundError("R executable")
	}

	rt := Runtime{
		RHome:       d.rHome,
		RExecutable: rPath,
		RSource:     rSource,
	}
	if p, src, ok := d.find(d.explicitRs, d.rscriptCandidates(), "Rscript"); ok {
		rt.RscriptExecutable = p
		rt.RscriptSource = src
	}
	return rt, nil
}

// find tries the explicit path, then the install-root candidates, then PATH.
func (d *discoverer) find(explicit string, home []string, name string) (string, Source, bool) {
	candidates := make([]candidate, 0, len(home)+1)
	if explicit != "" {
		candidates = append(candidates, candidate{path: explicit, source: SourceConfig})
	}
	for _, p := range home {
		candidates = append(candidates, candidate{path: p, source: d.rHomeSource})
	}

	for _, c := range candidates {
		if d.isFile(c.path) {
			return filepath.Clean(c.path), c.source, true
		}
	}

	if p, err := d.lookPath(name); err == nil && p != "" {
		return p, SourcePath, true
	}
	return "", "", false
}

func (d *discoverer) rCandidates() []string {
	if d.rHome == "" {
		return nil
	}
	if d.goos == "windows" {
		return []string{
			filepath.Join(d.rHome, "bin", "R.exe"),
			filepath.Join(d.rHome, "bin", "x64", "R.exe"),
		}
	}
	return []string{filepath.Join(d.rHome, "bin", "R")}
}

// rscriptCandidates prefers the 64-bit build on Windows.
func (d *discoverer) rscriptCandidates() []string {
	if d.rHome == "" {
		return nil
	}
	if d.goos == "windows" {
		return []string{
			filepath.Join(d.rHome, "bin", "x64", "Rscript.exe"),
			filepath.Join(d.rHome, "bin", "Rscript.exe"),
		}
	}
	return []string{filepath.Join(d.rHome, "bin", "Rscript")}
}

func (d *discoverer) isFile(path string) bool {
	info, err := d.fs.Stat(path)
	return err == nil && !info.IsDir()
}
