// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies an entry in the issue catalog.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	PythonNotFoundId
	PythonTooOldId
	AgentNotFoundId
	ModuleNotFoundId
	ExtNamespacesInvalidId
	CacheNotWritableId
	UnknownHashFormId
	ShimOptionsInvalidId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
	extLinks []HttpLink
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

// Render renders the issue page with the named glamour style ("dark",
// "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, links := range [][]HttpLink{i.docLinks, i.extLinks} {
			for _, link := range links {
				md.WriteString("- <" + string(link) + ">\n")
			}
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

thinpack reads ` + "`config.cue`" + ` from its configuration directory, or the
file given with ` + "`--config`" + `.

## Things you can try:
- Print the effective configuration:
~~~
$ thinpack config show
~~~

- Write a fresh default file and edit it:
~~~
$ thinpack config init
~~~

- Environment variables override file values, for example
  ` + "`THINPACK_CACHE_DIR`" + ` or ` + "`THINPACK_COMPRESSION`" + `.`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	pythonNotFoundIssue = &Issue{
		id: PythonNotFoundId,
		mdMsg: `
# Python interpreter not found!

The bundle is assembled from the modules installed for a host Python
interpreter, and thinpack could not run it.

## Things you can try:
- Point thinpack at an interpreter explicitly:
~~~
$ thinpack thin --python /usr/bin/python3
~~~

- Or configure a static interpreter description, which skips probing:
~~~cue
python: {
	version: "3.11"
	path: ["/usr/lib/python3/dist-packages"]
	agent_version: "3006.1"
}
~~~`,
	}

	pythonTooOldIssue = &Issue{
		id: PythonTooOldId,
		mdMsg: `
# Python is too old!

The agent needs at least Python 2.6 on the host that builds the bundle.

## Things you can try:
- Install a newer interpreter and pass it with ` + "`--python`" + `
- Bundle an older agent tree through ` + "`ext_namespaces`" + ` instead`,
	}

	agentNotFoundIssue = &Issue{
		id: AgentNotFoundId,
		mdMsg: `
# Agent package not found!

The interpreter used for the build cannot import the ` + "`salt`" + ` package,
so there is nothing to bundle.

## Things you can try:
- Install the agent for that interpreter:
~~~
$ python3 -m pip install salt
~~~

- Check which interpreter thinpack probes:
~~~
$ thinpack probe python3
~~~`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Extra module not found!

A module listed in ` + "`extra_mods`" + ` or ` + "`so_mods`" + ` is not importable by the
build interpreter.

## Things you can try:
- Check the spelling; entries are dotted import names, not file paths
- Install the module for the build interpreter
- List what the bundle would contain:
~~~
$ thinpack tops
~~~`,
	}

	extNamespacesInvalidIssue = &Issue{
		id: ExtNamespacesInvalidId,
		mdMsg: `
# Invalid external namespace!

Every namespace in ` + "`ext_namespaces`" + ` needs a locked Python version and
an existing location for each required dependency.

## Example:
~~~cue
ext_namespaces: py27: {
	path: "/opt/py27/salt"
	"py-version": [2, 7]
	dependencies: {
		jinja2: "/opt/py27/jinja2"
		yaml: "/opt/py27/yaml"
		tornado: "/opt/py27/tornado"
		msgpack: "/opt/py27/msgpack"
	}
}
~~~

## Things you can try:
- Validate the namespaces without building:
~~~
$ thinpack check-ext
~~~`,
	}

	cacheNotWritableIssue = &Issue{
		id: CacheNotWritableId,
		mdMsg: `
# Cannot write the bundle!

The archive is written next to its final location and renamed into place,
so the cache directory must be writable.

## Things you can try:
- Choose another cache directory:
~~~
$ thinpack thin --cache-dir /tmp/thinpack
~~~

- Check free disk space and directory permissions`,
	}

	unknownHashFormIssue = &Issue{
		id: UnknownHashFormId,
		mdMsg: `
# Unknown hash form!

## Supported forms:
- md5, sha1, sha224, sha256, sha384, sha512

~~~
$ thinpack sum thin --form sha256
~~~`,
	}

	shimOptionsInvalidIssue = &Issue{
		id: ShimOptionsInvalidId,
		mdMsg: `
# Invalid shim options!

The remote shim needs an absolute unpack directory, the agent version the
bundle was built for, and at least one interpreter candidate.

## Things you can try:
- Set them in the configuration:
~~~cue
shim: {
	thin_dir: "/var/tmp/.thinpack"
	pythons: ["python3", "python"]
}
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		pythonNotFoundIssue.Id():       pythonNotFoundIssue,
		pythonTooOldIssue.Id():         pythonTooOldIssue,
		agentNotFoundIssue.Id():        agentNotFoundIssue,
		moduleNotFoundIssue.Id():       moduleNotFoundIssue,
		extNamespacesInvalidIssue.Id(): extNamespacesInvalidIssue,
		cacheNotWritableIssue.Id():     cacheNotWritableIssue,
		unknownHashFormIssue.Id():      unknownHashFormIssue,
		shimOptionsInvalidIssue.Id():   shimOptionsInvalidIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
	return values
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
