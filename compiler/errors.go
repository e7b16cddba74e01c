package compiler

import "fmt"

// SlotError reports misuse of slots: projecting into a slot the target
// view never declares, or colliding slot parameter names.
type SlotError struct {
	File string
	Line int
	View string // view being invoked
	Slot string
	Msg  string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s:%d: slot %q of %s: %s", e.File, e.Line, e.Slot, e.View, e.Msg)
}

func (c *Compiler) slotErrf(line int, view, slot, format string, args ...interface{}) error {
	return &SlotError{
		File: c.file,
		Line: line,
		View: view,
		Slot: slot,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// compileError reports a constraint violation found while lowering a
// view, with the source position attached.
func (c *Compiler) errorf(line int, format string, args ...interface{}) error {
	return fmt.Errorf("%s:%d: %s", c.file, line, fmt.Sprintf(format, args...))
}
