// SPDX-License-Identifier: MPL-2.0

// Package tasks defines the fixed entry operations of the analytics
// project (package installation, dataset creation, exploration, report,
// visualizations and the dashboard) and runs them through the R bridge.
//
// Each task maps to one script path relative to the project root. The
// path can be overridden per task under `scripts` in the configuration.
package tasks
