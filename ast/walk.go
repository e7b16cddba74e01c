package ast

// Inspect walks the statement tree rooted at stmts in source order,
// calling fn for every statement including those nested in markup
// children and control-flow branches. If fn returns false the walk does
// not descend into that statement's children.
func Inspect(stmts []Stmt, fn func(Stmt) bool) {
	for _, s := range stmts {
		inspectStmt(s, fn)
	}
}

func inspectStmt(s Stmt, fn func(Stmt) bool) {
	if s == nil || !fn(s) {
		return
	}
	switch st := s.(type) {
	case *ViewDecl:
		Inspect(st.Body, fn)
	case *Element:
		Inspect(st.Children, fn)
	case *ComponentCall:
		Inspect(st.Children, fn)
	case *Fragment:
		Inspect(st.Children, fn)
	case *Template:
		Inspect(st.Children, fn)
	case *Slot:
		Inspect(st.Fallback, fn)
	case *If:
		Inspect(st.Body, fn)
		for _, e := range st.Elifs {
			Inspect(e.Body, fn)
		}
		Inspect(st.Else, fn)
	case *For:
		Inspect(st.Body, fn)
		Inspect(st.Else, fn)
	case *While:
		Inspect(st.Body, fn)
		Inspect(st.Else, fn)
	case *Try:
		Inspect(st.Body, fn)
		for _, ex := range st.Excepts {
			Inspect(ex.Body, fn)
		}
		Inspect(st.Else, fn)
		Inspect(st.Finally, fn)
	case *Match:
		for _, c := range st.Cases {
			Inspect(c.Body, fn)
		}
	case *With:
		Inspect(st.Body, fn)
	}
}

// HasControlFlow reports whether any statement in stmts (recursively,
// including element children) is a control-flow node.
func HasControlFlow(stmts []Stmt) bool {
	found := false
	Inspect(stmts, func(s Stmt) bool {
		switch s.(type) {
		case *If, *For, *While, *Try, *Match, *With:
			found = true
			return false
		}
		return !found
	})
	return found
}
