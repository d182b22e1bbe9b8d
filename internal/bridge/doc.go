// SPDX-License-Identifier: MPL-2.0

// Package bridge drives the external R runtime for the sales analytics
// project.
//
// A Bridge locates R and Rscript (explicit config paths, then R_HOME, then
// PATH), runs scripts to completion with RunScript and starts the Shiny
// dashboard in the background with StartDashboard. When an Embedder is
// configured the bridge runs in embedded mode and Call evaluates R
// expressions in-process; otherwise it spawns Rscript child processes and
// Call reports ErrUnsupportedMode.
//
// Child processes run with an explicit working directory. The bridge never
// changes the working directory of the current process.
package bridge
