// SPDX-License-Identifier: MPL-2.0

package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/salesdash/rbridge/internal/config"

	"golang.org/x/exp/slices"
)

const (
	// InstallPackages installs the R packages the project needs.
	InstallPackages Name = "install-packages"
	// CreateDataset generates the raw sales dataset.
	CreateDataset Name = "create-dataset"
	// Explore cleans and summarizes the dataset.
	Explore Name = "explore"
	// Report renders the text report.
	Report Name = "report"
	// Visualize renders the static charts.
	Visualize Name = "visualize"
	// Dashboard launches the Shiny app in the background.
	Dashboard Name = "dashboard"
)

// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
var ErrInvalidName = errors.New("invalid task name")

type (
	// Name identifies one of the fixed entry operations.
	Name string

	// Task maps an entry operation to its script.
	Task struct {
		Name Name
		// Script is relative to the project root.
		Script string
		// Done is printed after the script succeeds (or, for the dashboard,
		// after the launch is initiated).
		Done string
		// Short is the one-line CLI description.
		Short string
		// Background tasks start a long-running process instead of running
		// to completion.
		Background bool
	}

	// InvalidNameError is returned for a name that is not a known task.
	// It wraps ErrInvalidName for errors.Is() compatibility.
	InvalidNameError struct {
		Value Name
	}
)

// table is in declaration order, which is also the order tasks are listed.
var table = []Task{
	{
		Name:   InstallPackages,
		Script: "scripts/install_r_packages.R",
		Done:   "R packages installation script executed.",
		Short:  "Install the R packages used by the analytics scripts",
	},
	{
		Name:   CreateDataset,
		Script: "scripts/create_dataset.R",
		Done:   "create_dataset.R executed.",
		Short:  "Generate the sales dataset",
	},
	{
		Name:   Explore,
		Script: "scripts/data_exploration.R",
		Done:   "data_exploration.R executed. Processed file: data/sales_data_processed.rds",
		Short:  "Clean and explore the sales dataset",
	},
	{
		Name:   Report,
		Script: "scripts/generate_report.R",
		Done:   "generate_report.R executed. Report at reports/Sales_Analytics_Report.txt",
		Short:  "Generate the sales analytics report",
	},
	{
		Name:   Visualize,
		Script: "visualizations/generate_visualizations.R",
		Done:   "Visualization script executed. See visualizations/*.png",
		Short:  "Render the static visualizations",
	},
	{
		Name:       Dashboard,
		Script:     "dashboard/app.R",
		Done:       "Shiny app launch initiated. Press Ctrl+C to exit.",
		Short:      "Launch the Shiny dashboard",
		Background: true,
	},
}

// PipelineOrder is the sequence run by the pipeline operation.
var PipelineOrder = []Name{CreateDataset, Explore, Report, Visualize}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	names := make([]string, 0, len(table))
	for _, t := range table {
		names = append(names, string(t.Name))
	}
	return fmt.Sprintf("invalid task name %q (valid: %s)", e.Value, strings.Join(names, ", "))
}

// Unwrap returns ErrInvalidName for errors.Is() compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// IsValid returns whether n names a known task, and the validation errors
// if it does not.
func (n Name) IsValid() (bool, []error) {
	if _, ok := Lookup(n); !ok {
		return false, []error{&InvalidNameError{Value: n}}
	}
	return true, nil
}

// String returns the task name.
func (n Name) String() string { return string(n) }

// All returns every task in declaration order.
func All() []Task {
	return slices.Clone(table)
}

// Lookup returns the task named n.
func Lookup(n Name) (Task, bool) {
	i := slices.IndexFunc(table, func(t Task) bool { return t.Name == n })
	if i < 0 {
		return Task{}, false
	}
	return table[i], true
}

// ResolveScript returns the script path for t: the configured override when
// present, otherwise the built-in path.
func (t Task) ResolveScript(cfg *config.Config) string {
	if cfg != nil {
		if p, ok := cfg.Scripts[string(t.Name)]; ok && strings.TrimSpace(p) != "" {
			return p
		}
	}
	return t.Script
}
