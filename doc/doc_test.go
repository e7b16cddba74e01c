package doc

import (
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	src := strings.Join([]string{
		"# Dashboard views.",
		"# Rendered server-side.",
		"",
		"import html",
		"",
		"# Shows one metric with its label.",
		"view Metric(label, value):",
		"    <div>{label}: {value}</div>",
		"",
		"view Undocumented():",
		"    <hr/>",
	}, "\n")

	fd := Extract(src, "dash.plx")
	if fd.Doc != "Dashboard views.\nRendered server-side." {
		t.Errorf("file doc = %q", fd.Doc)
	}
	if len(fd.Views) != 2 {
		t.Fatalf("got %d views, want 2", len(fd.Views))
	}
	if fd.Views[0].Name != "Metric" || fd.Views[0].Params != "label, value" {
		t.Errorf("view 0 = %+v", fd.Views[0])
	}
	if fd.Views[0].Doc != "Shows one metric with its label." {
		t.Errorf("view 0 doc = %q", fd.Views[0].Doc)
	}
	if fd.Views[0].Line != 7 {
		t.Errorf("view 0 line = %d, want 7", fd.Views[0].Line)
	}
	if fd.Views[1].Doc != "" {
		t.Errorf("view 1 doc = %q, want empty", fd.Views[1].Doc)
	}
}

func TestExtractBlankLineDetaches(t *testing.T) {
	src := strings.Join([]string{
		"# stray comment",
		"",
		"view V():",
		"    <p>x</p>",
	}, "\n")
	fd := Extract(src, "v.plx")
	if len(fd.Views) != 1 {
		t.Fatalf("got %d views", len(fd.Views))
	}
	if fd.Views[0].Doc != "" {
		t.Errorf("doc should not attach across blank line, got %q", fd.Views[0].Doc)
	}
	if fd.Doc != "stray comment" {
		t.Errorf("file doc = %q", fd.Doc)
	}
}

func TestFormatFile(t *testing.T) {
	fd := &FileDoc{
		Doc: "Top.",
		Views: []ViewDoc{
			{Name: "A", Params: "x", Doc: "Does a."},
			{Name: "B", Doc: ""},
		},
	}
	out := FormatFile(fd)
	if !strings.Contains(out, "Top.") || !strings.Contains(out, "view A(x)") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "view B") {
		t.Errorf("undocumented view should be omitted:\n%s", out)
	}
}
