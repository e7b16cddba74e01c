package parser

import "fmt"

// SyntaxError reports a structural parse error: malformed or unterminated
// tags, mismatched closes, bad attribute syntax. Parsing never continues
// past one inside a compilation unit.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

func (p *Parser) errorf(lineNum int, format string, args ...interface{}) error {
	return &SyntaxError{File: p.name, Line: lineNum, Msg: fmt.Sprintf(format, args...)}
}
