package compiler

import (
	"strings"

	"github.com/plumelang/plume/ast"
	"github.com/plumelang/plume/scanner"
)

// runtimeImport is the first line of every emitted module. The runtime
// carries the element constructor, the escaping primitive, and the view
// base class the emitted classes extend.
const runtimeImport = "from plume.runtime import View, Element, el, escape, fragment, render_child"

// emitModule renders a compiled module: the runtime import, module-level
// host lines verbatim, and one class per view.
func (c *Compiler) emitModule(mod *ast.Module, lowered map[string][]pyNode) string {
	w := &pyWriter{}
	w.Line("%s", runtimeImport)

	prev := "import"
	for _, s := range mod.Stmts {
		switch st := s.(type) {
		case *ast.Raw:
			if prev != "raw" {
				w.Blank()
			}
			w.Line("%s%s", strings.Repeat(" ", st.Indent), st.Text)
			prev = "raw"
		case *ast.ViewDecl:
			w.Blank()
			w.Blank()
			c.emitClass(w, st, lowered[st.Name])
			prev = "view"
		}
	}
	return w.String()
}

// emitClass renders one view as a class: a constructor binding
// parameters and slot content to instance fields, and the render method.
func (c *Compiler) emitClass(w *pyWriter, view *ast.ViewDecl, body []pyNode) {
	info := c.reg.views[view.Name]
	slots := info.slotParams()

	w.Line("class %s(View):", view.Name)
	w.Indent()

	head, kwargs := splitKwargs(view.ParamText)
	sig := []string{"self"}
	if head != "" {
		sig = append(sig, head)
	}
	if !hasStarParam(head) {
		sig = append(sig, "*")
	}
	for _, slot := range slots {
		sig = append(sig, slot+"=None")
	}
	if kwargs != "" {
		sig = append(sig, kwargs)
	}
	w.Line("def __init__(%s):", strings.Join(sig, ", "))
	w.Indent()
	for _, p := range view.Params {
		w.Line("self.%s = %s", p, p)
	}
	for _, slot := range slots {
		w.Line("self.%s = %s", slot, slot)
	}
	if len(view.Params) == 0 && len(slots) == 0 {
		w.Line("pass")
	}
	w.Dedent()

	w.Blank()
	w.Line("def _render(self) -> Element:")
	w.Indent()
	if len(body) == 0 {
		w.Line("return None")
	} else {
		emitNodes(w, body)
	}
	w.Dedent()
	w.Dedent()
}

// hasStarParam reports a top-level `*` in a parameter list, in which
// case the slot parameters join the existing keyword-only section.
func hasStarParam(paramText string) bool {
	return scanner.FindTopLevel(paramText, func(ch byte, pos int, src string) bool {
		return ch == '*'
	}) >= 0
}

// splitKwargs separates a trailing **catchall from the parameter list.
// Slot parameters are keyword-only and must precede it in the emitted
// signature.
func splitKwargs(paramText string) (head, kwargs string) {
	idx := scanner.FindTopLevel(paramText, func(ch byte, pos int, src string) bool {
		return ch == '*' && pos+1 < len(src) && src[pos+1] == '*'
	})
	if idx < 0 {
		return paramText, ""
	}
	head = strings.TrimSpace(paramText[:idx])
	head = strings.TrimSpace(strings.TrimSuffix(head, ","))
	return head, strings.TrimSpace(paramText[idx:])
}

// emitNodes writes a lowered statement suite at the writer's current
// indentation.
func emitNodes(w *pyWriter, nodes []pyNode) {
	for _, n := range nodes {
		emitNode(w, n)
	}
}

func emitNode(w *pyWriter, n pyNode) {
	switch t := n.(type) {
	case *pyRaw:
		w.Line("%s%s", strings.Repeat(" ", t.Indent), t.Code)
	case *pyAssign:
		w.Line("%s = %s", t.Target, t.Expr)
	case *pyAppend:
		w.Line("%s.append(%s)", t.Acc, t.Expr)
	case *pyReturn:
		if t.Expr == "" {
			w.Line("return")
		} else {
			w.Line("return %s", t.Expr)
		}
	case *pyPass:
		w.Line("pass")
	case *pyIf:
		w.Line("if %s:", t.Cond)
		emitSuite(w, t.Body)
		for _, e := range t.Elifs {
			w.Line("elif %s:", e.Cond)
			emitSuite(w, e.Body)
		}
		if t.Else != nil {
			w.Line("else:")
			emitSuite(w, t.Else)
		}
	case *pyFor:
		w.Line("for %s in %s:", t.Target, t.Iter)
		emitSuite(w, t.Body)
		if t.Else != nil {
			w.Line("else:")
			emitSuite(w, t.Else)
		}
	case *pyWhile:
		w.Line("while %s:", t.Cond)
		emitSuite(w, t.Body)
		if t.Else != nil {
			w.Line("else:")
			emitSuite(w, t.Else)
		}
	case *pyTry:
		w.Line("try:")
		emitSuite(w, t.Body)
		for _, ex := range t.Excepts {
			switch {
			case ex.Type == "":
				w.Line("except:")
			case ex.Name == "":
				w.Line("except %s:", ex.Type)
			default:
				w.Line("except %s as %s:", ex.Type, ex.Name)
			}
			emitSuite(w, ex.Body)
		}
		if t.Else != nil {
			w.Line("else:")
			emitSuite(w, t.Else)
		}
		if t.Finally != nil {
			w.Line("finally:")
			emitSuite(w, t.Finally)
		}
	case *pyMatch:
		w.Line("match %s:", t.Subject)
		w.Indent()
		for _, cs := range t.Cases {
			if cs.Guard != "" {
				w.Line("case %s if %s:", cs.Pattern, cs.Guard)
			} else {
				w.Line("case %s:", cs.Pattern)
			}
			emitSuite(w, cs.Body)
		}
		w.Dedent()
	case *pyWith:
		items := make([]string, 0, len(t.Items))
		for _, item := range t.Items {
			if item.As != "" {
				items = append(items, item.Expr+" as "+item.As)
			} else {
				items = append(items, item.Expr)
			}
		}
		w.Line("with %s:", strings.Join(items, ", "))
		emitSuite(w, t.Body)
	}
}

func emitSuite(w *pyWriter, nodes []pyNode) {
	w.Indent()
	if len(nodes) == 0 {
		w.Line("pass")
	} else {
		emitNodes(w, nodes)
	}
	w.Dedent()
}
