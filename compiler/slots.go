package compiler

import (
	"strings"

	"github.com/plumelang/plume/ast"
)

// componentExpr lowers a component invocation to a constructor call.
// Attributes become keyword arguments carrying host values untouched;
// projected children are partitioned into the default slot and named
// template slots, each wrapped as a fragment.
func (v *viewCompiler) componentExpr(call *ast.ComponentCall, out *[]pyNode) (string, error) {
	info, ok := v.c.reg.lookup(call.Name)
	if !ok {
		return "", v.c.errorf(call.SourceLine, "unknown component %s (known: %s)",
			call.Name, strings.Join(v.c.reg.names(), ", "))
	}

	var args []string
	for _, a := range call.Attrs {
		if !isKwargName(a.Name) {
			return "", v.c.errorf(a.Line, "component argument %q is not a valid parameter name", a.Name)
		}
		args = append(args, a.Name+"="+attrValueExpr(a.Value, false, v.rewrite))
	}

	defaultChildren, templates, err := v.partitionSlots(call, info)
	if err != nil {
		return "", err
	}

	if len(defaultChildren) > 0 {
		if !info.defaultSlot {
			return "", v.c.slotErrf(call.SourceLine, call.Name, "children",
				"component does not project default children")
		}
		expr, err := v.slotArgExpr(defaultChildren, out)
		if err != nil {
			return "", err
		}
		args = append(args, "children="+expr)
	}
	// Named slots in the target view's declaration order.
	for _, name := range info.slots {
		tmpl, ok := templates[name]
		if !ok {
			continue
		}
		expr, err := v.slotArgExpr(tmpl.Children, out)
		if err != nil {
			return "", err
		}
		args = append(args, name+"="+expr)
	}

	return call.Name + "(" + strings.Join(args, ", ") + ")", nil
}

// partitionSlots splits projected children into default-slot content and
// named templates, validating each template against the target view's
// slot surface.
func (v *viewCompiler) partitionSlots(call *ast.ComponentCall, info *viewInfo) ([]ast.Stmt, map[string]*ast.Template, error) {
	var defaultChildren []ast.Stmt
	templates := make(map[string]*ast.Template)
	for _, ch := range call.Children {
		tmpl, ok := ch.(*ast.Template)
		if !ok {
			defaultChildren = append(defaultChildren, ch)
			continue
		}
		if !info.hasSlot(tmpl.SlotName) || tmpl.SlotName == "children" {
			if tmpl.SlotName == "children" {
				return nil, nil, v.c.slotErrf(tmpl.SourceLine, call.Name, tmpl.SlotName,
					"default children cannot be projected through a template")
			}
			return nil, nil, v.c.slotErrf(tmpl.SourceLine, call.Name, tmpl.SlotName,
				"component does not declare this slot")
		}
		if _, dup := templates[tmpl.SlotName]; dup {
			return nil, nil, v.c.slotErrf(tmpl.SourceLine, call.Name, tmpl.SlotName,
				"slot bound more than once in one invocation")
		}
		templates[tmpl.SlotName] = tmpl
	}
	return defaultChildren, templates, nil
}

// slotArgExpr lowers one slot partition. The partition is always passed
// as a fragment so the receiving view renders it as a unit; content with
// host statements or control flow hoists a slot accumulator first.
func (v *viewCompiler) slotArgExpr(children []ast.Stmt, out *[]pyNode) (string, error) {
	expr, isAcc, err := v.childrenExpr(children, "slot", out)
	if err != nil {
		return "", err
	}
	switch {
	case expr == "None":
		return "fragment([])", nil
	case isAcc || strings.HasPrefix(expr, "["):
		return "fragment(" + expr + ")", nil
	default:
		return "fragment([" + expr + "])", nil
	}
}

func isKwargName(name string) bool {
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
		case ch >= '0' && ch <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return name != ""
}
