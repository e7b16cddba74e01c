// Package ast defines the typed tree produced by the plume parser: view
// declarations, markup nodes, the control-flow nodes that may carry markup
// in their bodies, and opaque pass-through host statements.
package ast

// Node is the interface for all AST nodes.
type Node interface {
	node()
}

// Stmt is the interface for statement nodes appearing in a module or in a
// view body. Markup nodes are statements too: a tag standing on its own
// line is a statement position in the dialect.
type Stmt interface {
	Node
	stmt()
	StmtLine() int
}

// BaseStmt provides common fields for all statements.
type BaseStmt struct {
	SourceLine int // 1-based start line in the original source
}

func (b BaseStmt) StmtLine() int { return b.SourceLine }

// Module is the root node for one compilation unit (one source file).
type Module struct {
	Stmts      []Stmt
	SourceFile string // display path of the source file
}

func (m *Module) node() {}

// Views returns the view declarations in the module, in source order.
func (m *Module) Views() []*ViewDecl {
	var views []*ViewDecl
	for _, s := range m.Stmts {
		if v, ok := s.(*ViewDecl); ok {
			views = append(views, v)
		}
	}
	return views
}

// Raw is an opaque host-language statement preserved verbatim. Indent is
// the number of leading spaces relative to the enclosing block, so suites
// belonging to raw compound statements survive emission unchanged.
type Raw struct {
	BaseStmt
	Text   string
	Indent int
}

func (r *Raw) node() {}
func (r *Raw) stmt() {}

// ViewDecl represents `view Name(params):` and its body.
type ViewDecl struct {
	BaseStmt
	Name      string
	ParamText string   // raw parameter list text, echoed into __init__
	Params    []string // bare parameter names, in declaration order
	Body      []Stmt
}

func (v *ViewDecl) node() {}
func (v *ViewDecl) stmt() {}

// Attr is one attribute on an element or component invocation. Attribute
// order is preserved from source.
type Attr struct {
	Name  string
	Value AttrValue // nil for a bare boolean attribute
	Line  int
}

// AttrValue is either a compile-time constant or an opaque dynamic host
// expression.
type AttrValue interface {
	attrValue()
}

// ConstAttr is a quoted string attribute value, or a braced literal of
// primitive type (number, True, False) detected at parse time.
type ConstAttr struct {
	Text     string // literal text as written, without quotes for strings
	IsString bool   // true when the value was a quoted string
}

func (ConstAttr) attrValue() {}

// DynAttr is a braced host expression attribute value.
type DynAttr struct {
	Expr string
}

func (DynAttr) attrValue() {}

// Element represents one markup tag and its children.
type Element struct {
	BaseStmt
	Tag         string
	Attrs       []Attr
	Children    []Stmt
	SelfClosing bool
}

func (e *Element) node() {}
func (e *Element) stmt() {}

// TextSegment is one piece of an interpolated text run: a literal or a
// braced host expression.
type TextSegment struct {
	Literal string // set when Expr is empty
	Expr    string // set for {expr} interpolation
}

// Text represents a run of literal text and inline interpolations.
type Text struct {
	BaseStmt
	Segments []TextSegment
}

func (t *Text) node() {}
func (t *Text) stmt() {}

// ComponentCall is a PascalCase tag resolved against the component
// registry at parse time. Children are partitioned into slots by the slot
// resolver; args pass through as host keyword arguments.
type ComponentCall struct {
	BaseStmt
	Name     string
	Attrs    []Attr
	Children []Stmt
}

func (c *ComponentCall) node() {}
func (c *ComponentCall) stmt() {}

// Fragment groups sibling nodes rendered without a wrapping tag.
type Fragment struct {
	BaseStmt
	Children []Stmt
}

func (f *Fragment) node() {}
func (f *Fragment) stmt() {}

// Slot is a slot consumption point inside a component body:
// <slot>fallback</slot> or <slot name="x">fallback</slot>.
// An empty Name denotes the default slot.
type Slot struct {
	BaseStmt
	Name     string
	Fallback []Stmt
}

func (s *Slot) node() {}
func (s *Slot) stmt() {}

// Template is the pseudo-tag used at a component invocation site to route
// its children into a named slot: <template slot="x">...</template>.
type Template struct {
	BaseStmt
	SlotName string
	Children []Stmt
}

func (t *Template) node() {}
func (t *Template) stmt() {}

// Return represents an early return inside a view body. Expr is empty for
// a bare return.
type Return struct {
	BaseStmt
	Expr string
}

func (r *Return) node() {}
func (r *Return) stmt() {}

// ElifClause is one elif branch of an If.
type ElifClause struct {
	Cond string
	Body []Stmt
}

// If represents if/elif/else with markup-bearing branches.
type If struct {
	BaseStmt
	Cond  string
	Body  []Stmt
	Elifs []ElifClause
	Else  []Stmt
}

func (i *If) node() {}
func (i *If) stmt() {}

// For represents `for target in iterable:`.
type For struct {
	BaseStmt
	Target string
	Iter   string
	Body   []Stmt
	Else   []Stmt
}

func (f *For) node() {}
func (f *For) stmt() {}

// While represents `while cond:`.
type While struct {
	BaseStmt
	Cond string
	Body []Stmt
	Else []Stmt
}

func (w *While) node() {}
func (w *While) stmt() {}

// ExceptClause is one except handler of a Try.
type ExceptClause struct {
	Type string // exception type expression, empty for a bare except
	Name string // `as` binding, empty when absent
	Body []Stmt
}

// Try represents try/except/else/finally.
type Try struct {
	BaseStmt
	Body    []Stmt
	Excepts []ExceptClause
	Else    []Stmt
	Finally []Stmt
}

func (t *Try) node() {}
func (t *Try) stmt() {}

// CaseClause is one case of a Match. Pattern "_" is the wildcard.
type CaseClause struct {
	Pattern string
	Guard   string // optional `if` guard, empty when absent
	Body    []Stmt
}

// Match represents `match subject:` with ordered case clauses.
type Match struct {
	BaseStmt
	Subject string
	Cases   []CaseClause
}

func (m *Match) node() {}
func (m *Match) stmt() {}

// WithItem is one context manager of a With.
type WithItem struct {
	Expr string
	As   string // empty when absent
}

// With represents `with expr [as name], ...:`.
type With struct {
	BaseStmt
	Items []WithItem
	Body  []Stmt
}

func (w *With) node() {}
func (w *With) stmt() {}
