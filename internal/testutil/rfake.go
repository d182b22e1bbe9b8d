// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeRscript runs the "R script" as a POSIX shell script, so tests control
// output and exit status with plain sh.
const fakeRscript = "#!/bin/sh\nexec /bin/sh \"$@\"\n"

const fakeR = "#!/bin/sh\necho 'R version 4.4.0 (fake)'\n"

// SkipIfNoShell skips tests that spawn the fake runtime on platforms
// without /bin/sh.
func SkipIfNoShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake R runtime needs /bin/sh")
	}
}

// FakeRHome creates an R install root whose bin/R and bin/Rscript are shell
// stubs. Rscript executes its script argument with /bin/sh.
func FakeRHome(t testing.TB) string {
	t.Helper()
	SkipIfNoShell(t)

	home := t.TempDir()
	bin := filepath.Join(home, "bin")
	MustMkdirAll(t, bin, 0o755)
	MustWriteFile(t, filepath.Join(bin, "R"), fakeR, 0o755)
	MustWriteFile(t, filepath.Join(bin, "Rscript"), fakeRscript, 0o755)
	return home
}

// WriteScript writes an R script (a shell script under the fake runtime)
// at rel below root, creating parent directories.
func WriteScript(t testing.TB, root, rel, body string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	MustMkdirAll(t, filepath.Dir(path), 0o755)
	MustWriteFile(t, path, body, 0o644)
	return path
}

// MustWriteFile writes content to path.
// The test fails immediately if the write fails.
func MustWriteFile(t testing.TB, path, content string, perm os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
