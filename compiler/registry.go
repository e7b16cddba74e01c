package compiler

import (
	"sort"

	"github.com/plumelang/plume/ast"
)

// viewInfo is what the compiler knows about one view when another view
// invokes it: its declaration and the slots its body projects.
type viewInfo struct {
	decl *ast.ViewDecl
	// named slots in body order, "children" excluded
	slots []string
	// true when the body contains a default <slot>
	defaultSlot bool
}

// slotParams returns the slot parameter names in constructor order:
// children first, then named slots in declaration order.
func (v *viewInfo) slotParams() []string {
	return append([]string{"children"}, v.slots...)
}

func (v *viewInfo) hasSlot(name string) bool {
	if name == "children" {
		return true
	}
	for _, s := range v.slots {
		if s == name {
			return true
		}
	}
	return false
}

// registry maps view names to their slot surface. It is built once per
// compilation batch and read concurrently afterwards.
type registry struct {
	views map[string]*viewInfo
}

func newRegistry() *registry {
	return &registry{views: make(map[string]*viewInfo)}
}

// addModule registers every view a module declares. A view's named slots
// are collected from its body in first-appearance order; a slot name that
// collides with a view parameter is rejected.
func (r *registry) addModule(mod *ast.Module) error {
	for _, view := range mod.Views() {
		if _, dup := r.views[view.Name]; dup {
			return &SlotError{
				File: mod.SourceFile,
				Line: view.SourceLine,
				View: view.Name,
				Msg:  "view defined more than once",
			}
		}
		info := &viewInfo{decl: view}
		seen := make(map[string]bool)
		var slotErr error
		ast.Inspect(view.Body, func(n ast.Stmt) bool {
			slot, ok := n.(*ast.Slot)
			if !ok || slotErr != nil {
				return slotErr == nil
			}
			if slot.Name == "children" {
				info.defaultSlot = true
				return true
			}
			if seen[slot.Name] {
				return true
			}
			for _, param := range view.Params {
				if param == slot.Name {
					slotErr = &SlotError{
						File: mod.SourceFile,
						Line: slot.SourceLine,
						View: view.Name,
						Slot: slot.Name,
						Msg:  "slot name collides with a view parameter",
					}
					return false
				}
			}
			seen[slot.Name] = true
			info.slots = append(info.slots, slot.Name)
			return true
		})
		if slotErr != nil {
			return slotErr
		}
		r.views[view.Name] = info
	}
	return nil
}

func (r *registry) lookup(name string) (*viewInfo, bool) {
	v, ok := r.views[name]
	return v, ok
}

// names returns registered view names sorted for stable diagnostics.
func (r *registry) names() []string {
	out := make([]string, 0, len(r.views))
	for name := range r.views {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
