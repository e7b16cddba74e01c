package compiler

import (
	"regexp"
	"strings"
)

// optimize rewrites a lowered render body in place until no rule fires.
// Two rules apply, both behavior-preserving: conditionals whose branches
// all append one expression to the same accumulator collapse into a
// single conditional-expression append, and an accumulator that receives
// exactly one unconditional append folds into its consumption site. Both
// rules reach a fixed point, so re-running the pass is a no-op.
func optimize(body []pyNode) []pyNode {
	for {
		changed := collapseBranches(&body)
		if inlineAccumulator(&body) {
			changed = true
		}
		if !changed {
			return body
		}
	}
}

// collapseBranches folds if/elif/else chains where every branch is
// exactly one append to the same accumulator into one append of a nested
// conditional expression. A chain without an else stays: it may append
// nothing.
func collapseBranches(block *[]pyNode) bool {
	changed := false
	for i, n := range *block {
		for _, sub := range childBlocks(n) {
			if collapseBranches(sub) {
				changed = true
			}
		}
		cond, ok := n.(*pyIf)
		if !ok || cond.Else == nil {
			continue
		}
		app, ok := soleAppend(cond.Body)
		if !ok {
			continue
		}
		elseApp, ok := soleAppend(cond.Else)
		if !ok || elseApp.Acc != app.Acc {
			continue
		}
		expr := elseApp.Expr
		matched := true
		for j := len(cond.Elifs) - 1; j >= 0; j-- {
			ea, ok := soleAppend(cond.Elifs[j].Body)
			if !ok || ea.Acc != app.Acc {
				matched = false
				break
			}
			expr = ea.Expr + " if " + cond.Elifs[j].Cond + " else (" + expr + ")"
		}
		if !matched {
			continue
		}
		if len(cond.Elifs) > 0 {
			expr = "(" + expr + ")"
		}
		(*block)[i] = &pyAppend{Acc: app.Acc, Expr: app.Expr + " if " + cond.Cond + " else " + expr}
		changed = true
	}
	return changed
}

func soleAppend(body []pyNode) (*pyAppend, bool) {
	if len(body) != 1 {
		return nil, false
	}
	app, ok := body[0].(*pyAppend)
	return app, ok
}

var accNameRe = regexp.MustCompile(`^_[a-zA-Z][a-zA-Z0-9_-]*_children_[0-9]+$`)

// inlineAccumulator finds an accumulator initialized and appended to
// exactly once, unconditionally, in the same suite, and folds the
// appended expression into the accumulator's single consumption site. A
// root return of a one-element fragment drops the fragment wrapper.
// Inlining moves the expression's evaluation point to the consumption
// site, so it only fires when the consumption follows in the same suite
// with no host statement in between that could rebind a name the
// expression reads.
func inlineAccumulator(root *[]pyNode) bool {
	done := false
	var visit func(block *[]pyNode) bool
	visit = func(block *[]pyNode) bool {
		for i, n := range *block {
			for _, sub := range childBlocks(n) {
				if visit(sub) {
					return true
				}
			}
			assign, ok := n.(*pyAssign)
			if !ok || assign.Expr != "[]" || !accNameRe.MatchString(assign.Target) {
				continue
			}
			acc := assign.Target
			appends, refs := countAccUses(*root, acc)
			if appends != 1 || refs != 1 {
				continue
			}
			appIdx := -1
			for j := i + 1; j < len(*block); j++ {
				if app, ok := (*block)[j].(*pyAppend); ok && app.Acc == acc {
					appIdx = j
					break
				}
			}
			if appIdx < 0 {
				continue // the single append is conditional
			}
			refIdx := -1
			for j := appIdx + 1; j < len(*block); j++ {
				if stmtRefsAcc((*block)[j], acc) {
					refIdx = j
					break
				}
			}
			if refIdx < 0 {
				continue
			}
			interferes := containsRaw((*block)[refIdx])
			for j := appIdx + 1; j < refIdx; j++ {
				if containsRaw((*block)[j]) {
					interferes = true
					break
				}
			}
			if interferes {
				continue
			}
			expr := (*block)[appIdx].(*pyAppend).Expr
			rest := append([]pyNode{}, (*block)[:i]...)
			rest = append(rest, (*block)[i+1:appIdx]...)
			rest = append(rest, (*block)[appIdx+1:]...)
			*block = rest
			substituteAcc(*root, acc, expr)
			return true
		}
		return false
	}
	for visit(root) {
		done = true
	}
	return done
}

// stmtRefsAcc reports whether any value position of the statement's
// subtree reads acc.
func stmtRefsAcc(n pyNode, acc string) bool {
	found := false
	visitExprs([]pyNode{n}, func(s string, isAppendTarget bool) string {
		if !isAppendTarget && countIdent(s, acc) > 0 {
			found = true
		}
		return s
	})
	return found
}

// containsRaw reports whether the statement's subtree holds host code.
func containsRaw(n pyNode) bool {
	if _, ok := n.(*pyRaw); ok {
		return true
	}
	for _, sub := range childBlocks(n) {
		for _, c := range *sub {
			if containsRaw(c) {
				return true
			}
		}
	}
	return false
}

// countAccUses counts appends targeting acc and textual references to
// acc in every other expression position of the body.
func countAccUses(body []pyNode, acc string) (appends, refs int) {
	visitExprs(body, func(s string, isAppendTarget bool) string {
		if isAppendTarget {
			if s == acc {
				appends++
			}
			return s
		}
		refs += countIdent(s, acc)
		return s
	})
	return appends, refs
}

// substituteAcc replaces the single remaining reference to acc with expr.
// A return of fragment(acc) whose accumulator held one child returns the
// child directly, without the fragment wrapper.
func substituteAcc(body []pyNode, acc, expr string) {
	visitExprs(body, func(s string, isAppendTarget bool) string {
		if isAppendTarget || countIdent(s, acc) == 0 {
			return s
		}
		if s == "fragment("+acc+")" {
			return expr
		}
		return replaceIdent(s, acc, expr)
	})
}

// countIdent counts whole-identifier occurrences of name in s.
func countIdent(s, name string) int {
	count := 0
	for idx := strings.Index(s, name); idx >= 0; {
		before := idx == 0 || !isIdentChar(s[idx-1])
		afterPos := idx + len(name)
		after := afterPos >= len(s) || !isIdentChar(s[afterPos])
		if before && after {
			count++
		}
		next := strings.Index(s[idx+1:], name)
		if next < 0 {
			break
		}
		idx = idx + 1 + next
	}
	return count
}

// replaceIdent replaces whole-identifier occurrences of name in s.
func replaceIdent(s, name, repl string) string {
	var sb strings.Builder
	last := 0
	for idx := strings.Index(s, name); idx >= 0; {
		before := idx == 0 || !isIdentChar(s[idx-1])
		afterPos := idx + len(name)
		after := afterPos >= len(s) || !isIdentChar(s[afterPos])
		if before && after {
			sb.WriteString(s[last:idx])
			sb.WriteString(repl)
			last = afterPos
		}
		next := strings.Index(s[idx+1:], name)
		if next < 0 {
			break
		}
		idx = idx + 1 + next
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func isIdentChar(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// childBlocks returns pointers to every nested suite of a node.
func childBlocks(n pyNode) []*[]pyNode {
	switch t := n.(type) {
	case *pyIf:
		blocks := []*[]pyNode{&t.Body}
		for i := range t.Elifs {
			blocks = append(blocks, &t.Elifs[i].Body)
		}
		if t.Else != nil {
			blocks = append(blocks, &t.Else)
		}
		return blocks
	case *pyFor:
		blocks := []*[]pyNode{&t.Body}
		if t.Else != nil {
			blocks = append(blocks, &t.Else)
		}
		return blocks
	case *pyWhile:
		blocks := []*[]pyNode{&t.Body}
		if t.Else != nil {
			blocks = append(blocks, &t.Else)
		}
		return blocks
	case *pyTry:
		blocks := []*[]pyNode{&t.Body}
		for i := range t.Excepts {
			blocks = append(blocks, &t.Excepts[i].Body)
		}
		if t.Else != nil {
			blocks = append(blocks, &t.Else)
		}
		if t.Finally != nil {
			blocks = append(blocks, &t.Finally)
		}
		return blocks
	case *pyMatch:
		var blocks []*[]pyNode
		for i := range t.Cases {
			blocks = append(blocks, &t.Cases[i].Body)
		}
		return blocks
	case *pyWith:
		return []*[]pyNode{&t.Body}
	}
	return nil
}

// visitExprs applies fn to every expression string in the body,
// replacing each with fn's result. Append targets are flagged so callers
// can treat them separately from value expressions.
func visitExprs(body []pyNode, fn func(s string, isAppendTarget bool) string) {
	for _, n := range body {
		switch t := n.(type) {
		case *pyRaw:
			t.Code = fn(t.Code, false)
		case *pyAssign:
			t.Expr = fn(t.Expr, false)
		case *pyAppend:
			t.Acc = fn(t.Acc, true)
			t.Expr = fn(t.Expr, false)
		case *pyReturn:
			t.Expr = fn(t.Expr, false)
		case *pyIf:
			t.Cond = fn(t.Cond, false)
			for i := range t.Elifs {
				t.Elifs[i].Cond = fn(t.Elifs[i].Cond, false)
			}
		case *pyFor:
			t.Iter = fn(t.Iter, false)
		case *pyWhile:
			t.Cond = fn(t.Cond, false)
		case *pyMatch:
			t.Subject = fn(t.Subject, false)
			for i := range t.Cases {
				t.Cases[i].Guard = fn(t.Cases[i].Guard, false)
			}
		case *pyWith:
			for i := range t.Items {
				t.Items[i].Expr = fn(t.Items[i].Expr, false)
			}
		}
		for _, sub := range childBlocks(n) {
			visitExprs(*sub, fn)
		}
	}
}
