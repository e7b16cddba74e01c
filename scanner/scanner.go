// Package scanner provides string-boundary-aware scanning for the plume
// parser and expression rewriter. It encapsulates the tracking of
// double-quoted and single-quoted literals plus escape sequences, so the
// phases that walk over opaque host-language expression text don't each
// re-implement this logic.
package scanner

import "strings"

// closingKind tracks which type of string delimiter was just closed.
type closingKind byte

const (
	noClosing      closingKind = iota
	closingDouble              // just closed a "..." string
	closingSingle              // just closed a '...' string
)

// CodeScanner iterates byte-by-byte over source text, tracking string
// literal boundaries and escape sequences. Callers check InString()
// instead of maintaining their own inDouble/inSingle/escaped flags.
//
// InString() returns true for the entire string span including both
// opening and closing delimiters.
type CodeScanner struct {
	src     string
	pos     int
	line    int
	inDbl   bool
	inSgl   bool
	escaped bool
	closing closingKind
}

// New creates a CodeScanner for the given source text.
// Call Next() to advance to the first byte.
func New(src string) *CodeScanner {
	return &CodeScanner{src: src, pos: -1, line: 1}
}

// Next advances to the next byte, updating string/escape state.
// Returns the byte and true, or (0, false) at end of input.
func (s *CodeScanner) Next() (byte, bool) {
	s.closing = noClosing
	s.pos++
	if s.pos >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.pos]
	if ch == '\n' {
		s.line++
	}

	if s.escaped {
		s.escaped = false
		return ch, true
	}
	if ch == '\\' && (s.inDbl || s.inSgl) {
		s.escaped = true
		return ch, true
	}
	if ch == '"' && !s.inSgl {
		if s.inDbl {
			s.closing = closingDouble
		}
		s.inDbl = !s.inDbl
	} else if ch == '\'' && !s.inDbl {
		if s.inSgl {
			s.closing = closingSingle
		}
		s.inSgl = !s.inSgl
	}

	return ch, true
}

// InString reports whether the current position is inside a string literal,
// including both opening and closing delimiters.
func (s *CodeScanner) InString() bool {
	return s.inDbl || s.inSgl || s.closing != noClosing
}

// InCode reports whether the current position is outside all string literals.
func (s *CodeScanner) InCode() bool { return !s.InString() }

// Pos returns the current byte offset (the position of the last byte
// returned by Next). Returns -1 before the first call to Next.
func (s *CodeScanner) Pos() int { return s.pos }

// Line returns the current 1-based line number.
func (s *CodeScanner) Line() int { return s.line }

// Peek returns the next byte without advancing, or (0, false) at end.
func (s *CodeScanner) Peek() (byte, bool) {
	if s.pos+1 >= len(s.src) {
		return 0, false
	}
	return s.src[s.pos+1], true
}

// LookingAt checks if src[pos:] starts with the given prefix.
func (s *CodeScanner) LookingAt(prefix string) bool {
	if s.pos < 0 {
		return strings.HasPrefix(s.src, prefix)
	}
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// IsOpenBracket reports whether ch is an opening bracket/paren/brace.
func IsOpenBracket(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloseBracket reports whether ch is a closing bracket/paren/brace.
func IsCloseBracket(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// FindTopLevel scans s for a byte matching pred at bracket depth 0,
// outside all string literals. Returns the byte offset or -1.
func FindTopLevel(s string, pred func(ch byte, pos int, src string) bool) int {
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() {
			continue
		}
		if IsOpenBracket(ch) {
			depth++
		} else if IsCloseBracket(ch) {
			depth--
		}
		if depth == 0 && pred(ch, sc.Pos(), s) {
			return sc.Pos()
		}
	}
	return -1
}

// MatchBrace returns the offset of the '}' matching the '{' at open,
// honoring nested braces and string literals, or -1 if unbalanced.
// s[open] must be '{'.
func MatchBrace(s string, open int) int {
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.Pos() < open {
			continue
		}
		if sc.InString() {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return sc.Pos()
			}
		}
	}
	return -1
}

// IsInsideString reports whether byte offset pos in s falls inside a
// string literal. It checks the string state just before pos, so opening
// delimiters return false and closing delimiters return true.
func IsInsideString(s string, pos int) bool {
	sc := New(s)
	for i := 0; i < pos; i++ {
		if _, ok := sc.Next(); !ok {
			return false
		}
	}
	return sc.inDbl || sc.inSgl
}

// StripComment removes a trailing # comment from a single line, respecting
// string boundaries. The line must not contain a newline.
func StripComment(line string) string {
	sc := New(line)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if ch == '#' && sc.InCode() {
			return line[:sc.Pos()]
		}
	}
	return line
}

// IsIdentByte reports whether ch can appear in a host identifier.
func IsIdentByte(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' ||
		ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// IsIdentStart reports whether ch can start a host identifier.
func IsIdentStart(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}
