// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func allIds() []Id {
	return []Id{
		ConfigLoadFailedId,
		PythonNotFoundId,
		PythonTooOldId,
		AgentNotFoundId,
		ModuleNotFoundId,
		ExtNamespacesInvalidId,
		CacheNotWritableId,
		UnknownHashFormId,
		ShimOptionsInvalidId,
	}
}

func TestIssuesMapCompleteness(t *testing.T) {
	for _, id := range allIds() {
		issue := Get(id)
		if issue == nil {
			t.Errorf("Get(%d) returned nil", id)
			continue
		}
		if issue.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, issue.Id())
		}
		if strings.TrimSpace(string(issue.MarkdownMsg())) == "" {
			t.Errorf("issue %d has an empty message", id)
		}
	}

	if got := len(Values()); got != len(allIds()) {
		t.Errorf("Values() returned %d issues, want %d", got, len(allIds()))
	}
}

func TestGet_Unknown(t *testing.T) {
	if Get(0) != nil || Get(Id(999)) != nil {
		t.Error("unknown ids should return nil")
	}
}

func TestValues_Ordered(t *testing.T) {
	values := Values()
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Fatalf("Values() not ordered at %d: %d >= %d", i, values[i-1].Id(), values[i].Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := Get(ConfigLoadFailedId)
	links := issue.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	links[0] = "https://example.invalid"
	if issue.ExtLinks()[0] == "https://example.invalid" {
		t.Error("ExtLinks() should return a copy")
	}
	if issue.DocLinks() != nil {
		t.Errorf("DocLinks() = %v, want nil", issue.DocLinks())
	}
}

func TestIssue_Render_AppendsLinks(t *testing.T) {
	var rendered string
	orig := render
	render = func(in, _ string) (string, error) {
		rendered = in
		return in, nil
	}
	t.Cleanup(func() { render = orig })

	if _, err := Get(ConfigLoadFailedId).Render("dark"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(rendered, "## See also\n- <https://cuelang.org/docs/>") {
		t.Errorf("links section missing from:\n%s", rendered)
	}

	if _, err := Get(PythonTooOldId).Render("dark"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("issues without links should not get a links section")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	for _, issue := range Values() {
		out, err := issue.Render("notty")
		if err != nil {
			t.Errorf("issue %d: Render() error = %v", issue.Id(), err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("issue %d rendered empty", issue.Id())
		}
	}
}
