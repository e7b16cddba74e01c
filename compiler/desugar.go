package compiler

import (
	"strings"

	"github.com/plumelang/plume/ast"
)

// viewCompiler lowers one render body. It owns the body's accumulator
// counter and the name-rewriting context for the enclosing view.
type viewCompiler struct {
	c       *Compiler
	view    *ast.ViewDecl
	params  map[string]bool
	shadows map[string]bool
	counter *counter
	rootAcc string // set in dynamic mode, used by early returns
}

func (c *Compiler) newViewCompiler(view *ast.ViewDecl) *viewCompiler {
	params := make(map[string]bool, len(view.Params))
	for _, p := range view.Params {
		params[p] = true
	}
	info := c.reg.views[view.Name]
	for _, slot := range info.slotParams() {
		params[slot] = true
	}
	return &viewCompiler{
		c:       c,
		view:    view,
		params:  params,
		shadows: collectShadows(view.Body),
		counter: newCounter(),
	}
}

// rewrite lowers a source expression: slot probes first, then parameter
// references to instance fields.
func (v *viewCompiler) rewrite(expr string) string {
	return rewriteSelf(rewriteHasSlot(expr), v.params, v.shadows)
}

// lowerBody lowers the render body. A static body returns its single
// markup expression directly; a dynamic body accumulates children into a
// root list and returns it wrapped as a fragment.
func (v *viewCompiler) lowerBody() ([]pyNode, error) {
	body := v.view.Body
	if classifyBody(body) {
		var out []pyNode
		for _, s := range body[:len(body)-1] {
			if err := v.lowerStmt(s, "", &out); err != nil {
				return nil, err
			}
		}
		expr, err := v.nodeExpr(body[len(body)-1], &out)
		if err != nil {
			return nil, err
		}
		out = append(out, &pyReturn{Expr: expr})
		return out, nil
	}

	id, err := v.counter.alloc()
	if err != nil {
		return nil, err
	}
	v.rootAcc = accName("root", id)
	out := []pyNode{&pyAssign{Target: v.rootAcc, Expr: "[]"}}
	for _, s := range body {
		if err := v.lowerStmt(s, v.rootAcc, &out); err != nil {
			return nil, err
		}
	}
	out = append(out, &pyReturn{Expr: "fragment(" + v.rootAcc + ")"})
	return out, nil
}

// lowerStmts lowers a statement suite with a shared append target,
// inserting pass when the suite lowers to nothing.
func (v *viewCompiler) lowerStmts(stmts []ast.Stmt, acc string) ([]pyNode, error) {
	var out []pyNode
	for _, s := range stmts {
		if err := v.lowerStmt(s, acc, &out); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		out = append(out, &pyPass{})
	}
	return out, nil
}

// lowerStmt lowers one statement, appending its lowered form (and any
// hoisted accumulator setup) to out. acc is the enclosing append target;
// it is empty only in a static preamble, where markup cannot occur.
func (v *viewCompiler) lowerStmt(s ast.Stmt, acc string, out *[]pyNode) error {
	switch st := s.(type) {
	case *ast.Raw:
		*out = append(*out, &pyRaw{Code: v.rewrite(st.Text), Indent: st.Indent})
		return nil

	case *ast.Return:
		if st.Expr != "" {
			*out = append(*out, &pyReturn{Expr: v.rewrite(st.Expr)})
			return nil
		}
		if v.rootAcc == "" {
			*out = append(*out, &pyReturn{Expr: "None"})
			return nil
		}
		// A bare early return yields what has accumulated so far.
		*out = append(*out, &pyReturn{Expr: "fragment(" + v.rootAcc + ")"})
		return nil

	case *ast.Template:
		return v.c.errorf(st.SourceLine, "template tag is only valid inside a component invocation")

	case *ast.If:
		node := &pyIf{Cond: v.rewrite(st.Cond)}
		var err error
		if node.Body, err = v.lowerStmts(st.Body, acc); err != nil {
			return err
		}
		for _, e := range st.Elifs {
			body, err := v.lowerStmts(e.Body, acc)
			if err != nil {
				return err
			}
			node.Elifs = append(node.Elifs, pyElif{Cond: v.rewrite(e.Cond), Body: body})
		}
		if st.Else != nil {
			if node.Else, err = v.lowerStmts(st.Else, acc); err != nil {
				return err
			}
		}
		*out = append(*out, node)
		return nil

	case *ast.For:
		node := &pyFor{Target: st.Target, Iter: v.rewrite(st.Iter)}
		var err error
		if node.Body, err = v.lowerStmts(st.Body, acc); err != nil {
			return err
		}
		if st.Else != nil {
			if node.Else, err = v.lowerStmts(st.Else, acc); err != nil {
				return err
			}
		}
		*out = append(*out, node)
		return nil

	case *ast.While:
		node := &pyWhile{Cond: v.rewrite(st.Cond)}
		var err error
		if node.Body, err = v.lowerStmts(st.Body, acc); err != nil {
			return err
		}
		if st.Else != nil {
			if node.Else, err = v.lowerStmts(st.Else, acc); err != nil {
				return err
			}
		}
		*out = append(*out, node)
		return nil

	case *ast.Try:
		node := &pyTry{}
		var err error
		if node.Body, err = v.lowerStmts(st.Body, acc); err != nil {
			return err
		}
		for _, ex := range st.Excepts {
			body, err := v.lowerStmts(ex.Body, acc)
			if err != nil {
				return err
			}
			node.Excepts = append(node.Excepts, pyExcept{Type: v.rewrite(ex.Type), Name: ex.Name, Body: body})
		}
		if st.Else != nil {
			if node.Else, err = v.lowerStmts(st.Else, acc); err != nil {
				return err
			}
		}
		if st.Finally != nil {
			if node.Finally, err = v.lowerStmts(st.Finally, acc); err != nil {
				return err
			}
		}
		*out = append(*out, node)
		return nil

	case *ast.Match:
		node := &pyMatch{Subject: v.rewrite(st.Subject)}
		for _, cs := range st.Cases {
			body, err := v.lowerStmts(cs.Body, acc)
			if err != nil {
				return err
			}
			node.Cases = append(node.Cases, pyCase{
				Pattern: cs.Pattern,
				Guard:   v.rewrite(cs.Guard),
				Body:    body,
			})
		}
		*out = append(*out, node)
		return nil

	case *ast.With:
		node := &pyWith{}
		for _, item := range st.Items {
			node.Items = append(node.Items, pyWithItem{Expr: v.rewrite(item.Expr), As: item.As})
		}
		var err error
		if node.Body, err = v.lowerStmts(st.Body, acc); err != nil {
			return err
		}
		*out = append(*out, node)
		return nil

	default:
		// markup node
		expr, err := v.nodeExpr(s, out)
		if err != nil {
			return err
		}
		if acc == "" {
			return v.c.errorf(s.StmtLine(), "internal: markup outside an accumulator scope")
		}
		*out = append(*out, &pyAppend{Acc: acc, Expr: expr})
		return nil
	}
}

// nodeExpr lowers a markup node to an expression, hoisting accumulator
// setup for dynamic children into out.
func (v *viewCompiler) nodeExpr(s ast.Stmt, out *[]pyNode) (string, error) {
	switch st := s.(type) {
	case *ast.Text:
		return compileText(st.Segments, v.rewrite), nil

	case *ast.Element:
		content, _, err := v.childrenExpr(st.Children, st.Tag, out)
		if err != nil {
			return "", err
		}
		attrs := compileAttrs(st.Attrs, true, v.rewrite)
		return elExpr(st.Tag, content, attrs, st.SelfClosing), nil

	case *ast.Fragment:
		content, isAcc, err := v.childrenExpr(st.Children, "fragment", out)
		if err != nil {
			return "", err
		}
		switch {
		case content == "None":
			content = "[]"
		case !isAcc && !strings.HasPrefix(content, "["):
			content = "[" + content + "]"
		}
		return "fragment(" + content + ")", nil

	case *ast.Slot:
		return v.slotExpr(st, out)

	case *ast.ComponentCall:
		return v.componentExpr(st, out)

	default:
		return "", v.c.errorf(s.StmtLine(), "internal: statement cannot lower to an expression")
	}
}

// childrenExpr lowers element content. Expression-only children fuse into
// a literal (single expression or list); content with host statements or
// control flow hoists an accumulator named after the enclosing tag.
func (v *viewCompiler) childrenExpr(children []ast.Stmt, anchor string, out *[]pyNode) (expr string, isAcc bool, err error) {
	if len(children) == 0 {
		return "None", false, nil
	}
	static := true
	for _, ch := range children {
		if !isExprNode(ch) {
			static = false
			break
		}
	}
	if static {
		exprs := make([]string, 0, len(children))
		for _, ch := range children {
			e, err := v.nodeExpr(ch, out)
			if err != nil {
				return "", false, err
			}
			exprs = append(exprs, e)
		}
		if len(exprs) == 1 {
			return exprs[0], false, nil
		}
		return "[" + strings.Join(exprs, ", ") + "]", false, nil
	}

	id, err := v.counter.alloc()
	if err != nil {
		return "", false, err
	}
	acc := accName(anchor, id)
	*out = append(*out, &pyAssign{Target: acc, Expr: "[]"})
	for _, ch := range children {
		if err := v.lowerStmt(ch, acc, out); err != nil {
			return "", false, err
		}
	}
	return acc, true, nil
}

// slotExpr lowers a slot projection site inside the declaring view:
// render the bound content when the invoker provided it, otherwise the
// fallback.
func (v *viewCompiler) slotExpr(slot *ast.Slot, out *[]pyNode) (string, error) {
	if ast.HasControlFlow(slot.Fallback) {
		return "", v.c.errorf(slot.SourceLine, "slot fallback content cannot contain control flow")
	}
	fallback := "None"
	if len(slot.Fallback) > 0 {
		expr, isAcc, err := v.childrenExpr(slot.Fallback, "slot", out)
		if err != nil {
			return "", err
		}
		// A multi-node fallback is a bare list; wrap it so the ternary
		// always yields a renderable child.
		if isAcc || strings.HasPrefix(expr, "[") {
			expr = "fragment(" + expr + ")"
		}
		fallback = expr
	}
	field := "self." + slot.Name
	return "render_child(" + field + ") if " + field + " is not None else " + fallback, nil
}
