// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RuntimeNotFoundId Id = iota + 1
	ScriptNotFoundId
	ScriptExecutionFailedId
	UnsupportedModeId
	ConfigLoadFailedId
	DashboardFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- " + string(link) + "\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- " + string(link) + "\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	runtimeNotFoundIssue = &Issue{
		id: RuntimeNotFoundId,
		mdMsg: `
# R runtime not found!

The R executable could not be located through R_HOME or your PATH.

## Things you can try:
- Install R from CRAN and make sure ` + "`R`" + ` and ` + "`Rscript`" + ` are on your PATH
- Point R_HOME at your installation root:
~~~
$ export R_HOME=/usr/lib/R
~~~
- Or set the executables explicitly in your config file:
~~~cue
r: {
  executable: "/opt/R/4.4.1/bin/R"
  rscript:    "/opt/R/4.4.1/bin/Rscript"
}
~~~`,
		extLinks: []HttpLink{"https://cran.r-project.org/"},
	}

	scriptNotFoundIssue = &Issue{
		id: ScriptNotFoundId,
		mdMsg: `
# R script not found!

Script paths are resolved against the project root.

## Things you can try:
- Run rbridge from the project directory, or pass ` + "`--project-root`" + `
- Check the ` + "`scripts`" + ` section of your config file for typos
- Show the effective configuration:
~~~
$ rbridge config show
~~~`,
	}

	scriptExecutionFailedIssue = &Issue{
		id: ScriptExecutionFailedId,
		mdMsg: `
# R script failed!

Rscript exited with a non-zero status. Its captured output is shown above.

## Things you can try:
- Install the packages the script needs:
~~~
$ rbridge install-packages
~~~
- Make sure the steps the script depends on ran first:
~~~
$ rbridge pipeline
~~~`,
	}

	unsupportedModeIssue = &Issue{
		id: UnsupportedModeId,
		mdMsg: `
# Operation needs an embedded R session!

Evaluating expressions requires an in-process R bridge. Only subprocess
execution through Rscript is available in this environment.

## Things you can try:
- Put the expression in a script and run it with Rscript instead
- Check the detected mode:
~~~
$ rbridge env
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Validate the CUE syntax of your config file
- Print the default configuration and compare:
~~~
$ rbridge config dump
~~~`,
	}

	dashboardFailedIssue = &Issue{
		id: DashboardFailedId,
		mdMsg: `
# Dashboard did not start!

## Things you can try:
- Make sure the shiny package is installed:
~~~
$ rbridge install-packages
~~~
- Check that the port is free, or choose another one:
~~~
$ rbridge dashboard --port 8080
~~~`,
	}

	issues = map[Id]*Issue{
		runtimeNotFoundIssue.Id():       runtimeNotFoundIssue,
		scriptNotFoundIssue.Id():        scriptNotFoundIssue,
		scriptExecutionFailedIssue.Id(): scriptExecutionFailedIssue,
		unsupportedModeIssue.Id():       unsupportedModeIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		dashboardFailedIssue.Id():       dashboardFailedIssue,
	}
)

// Values returns every catalogued issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, is := range issues {
		out = append(out, is)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
