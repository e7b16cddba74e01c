package compiler

import (
	"fmt"

	"github.com/plumelang/plume/ast"
)

// Accumulator ids count up from a seed in fixed strides, per render body.
// The stride leaves room for scopes discovered later without renumbering
// siblings, and strict monotonic allocation keeps repeated compilations
// of the same input byte-identical.
const (
	accSeed   = 1000
	accStride = 1000
)

// counter allocates accumulator ids for one render body. It is owned by
// the compilation of that body and never shared across units.
type counter struct {
	next int
	seen map[int]bool
}

func newCounter() *counter {
	return &counter{next: accSeed, seen: make(map[int]bool)}
}

// alloc returns the next accumulator id. A repeated id is an internal
// invariant violation, not a user-facing error.
func (c *counter) alloc() (int, error) {
	id := c.next
	if c.seen[id] {
		return 0, fmt.Errorf("internal: accumulator id %d allocated twice", id)
	}
	c.seen[id] = true
	c.next += accStride
	return id, nil
}

// accName derives the accumulator variable for a scope from its anchor
// tag and id.
func accName(anchor string, id int) string {
	return fmt.Sprintf("_%s_children_%d", anchor, id)
}

// producesMarkup reports whether a statement emits markup when executed:
// markup nodes directly, or control flow with markup anywhere inside.
func producesMarkup(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.Element, *ast.Text, *ast.ComponentCall, *ast.Fragment, *ast.Slot, *ast.Template:
		return true
	case *ast.Raw, *ast.Return:
		return false
	}
	found := false
	ast.Inspect([]ast.Stmt{s}, func(n ast.Stmt) bool {
		switch n.(type) {
		case *ast.Element, *ast.Text, *ast.ComponentCall, *ast.Fragment, *ast.Slot, *ast.Template:
			found = true
			return false
		}
		return !found
	})
	return found
}

// isExprNode reports whether a statement can lower to a single
// expression: plain markup nodes can, host lines, returns, and control
// flow cannot.
func isExprNode(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.Element, *ast.Text, *ast.ComponentCall, *ast.Fragment, *ast.Slot:
		return true
	}
	return false
}

// hasReturn reports an explicit return anywhere in the body.
func hasReturn(stmts []ast.Stmt) bool {
	found := false
	ast.Inspect(stmts, func(s ast.Stmt) bool {
		if _, ok := s.(*ast.Return); ok {
			found = true
		}
		return !found
	})
	return found
}

// classifyBody decides whether a render body is STATIC (emits a direct
// return of one expression) or DYNAMIC (builds a root accumulator). A
// body is static only when exactly one statement produces markup, that
// statement is a plain markup node in the last position, and the body
// never returns early.
func classifyBody(body []ast.Stmt) (static bool) {
	if hasReturn(body) {
		return false
	}
	count := 0
	lastMarkup := -1
	for i, s := range body {
		if producesMarkup(s) {
			count++
			lastMarkup = i
		}
	}
	if count != 1 || lastMarkup != len(body)-1 {
		return false
	}
	return isExprNode(body[lastMarkup])
}
