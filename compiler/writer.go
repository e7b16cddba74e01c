package compiler

import (
	"fmt"
	"strings"
)

// pyWriter manages indented host-language output for the code emitter.
// It encapsulates the output buffer and indentation level; host code
// indents with four spaces per level.
type pyWriter struct {
	sb     strings.Builder
	indent int
}

// Line writes an indented, formatted line with a trailing newline.
func (w *pyWriter) Line(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if line == "" {
		w.sb.WriteByte('\n')
		return
	}
	w.sb.WriteString(strings.Repeat("    ", w.indent))
	w.sb.WriteString(line)
	w.sb.WriteByte('\n')
}

// Blank writes an empty line.
func (w *pyWriter) Blank() {
	w.sb.WriteByte('\n')
}

// Indent increases the indentation level.
func (w *pyWriter) Indent() { w.indent++ }

// Dedent decreases the indentation level.
func (w *pyWriter) Dedent() { w.indent-- }

// String returns the accumulated output.
func (w *pyWriter) String() string { return w.sb.String() }
