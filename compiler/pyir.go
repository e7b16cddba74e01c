package compiler

// Lowered nodes represent the structure of generated host code. They
// separate "what to generate" from "how to format it": the desugarer and
// slot resolver build this tree, the optimizer rewrites it, and the
// emitter formats it with proper indentation.

// pyNode is a piece of host code that can be emitted with proper
// indentation.
type pyNode interface {
	pyNode()
}

// pyRaw is a literal line of host code, preserved verbatim.
type pyRaw struct {
	Code string
	// Extra relative indentation for suite bodies carried through
	// unparsed, in source columns.
	Indent int
}

func (*pyRaw) pyNode() {}

// pyAssign is `Target = Expr`.
type pyAssign struct {
	Target string
	Expr   string
}

func (*pyAssign) pyNode() {}

// pyAppend is `Acc.append(Expr)`.
type pyAppend struct {
	Acc  string
	Expr string
}

func (*pyAppend) pyNode() {}

// pyReturn is `return Expr` (or a bare return when Expr is empty).
type pyReturn struct {
	Expr string
}

func (*pyReturn) pyNode() {}

// pyPass emits `pass` and is used to keep emptied suites valid.
type pyPass struct{}

func (*pyPass) pyNode() {}

type pyElif struct {
	Cond string
	Body []pyNode
}

// pyIf is an if statement with optional elif and else clauses.
type pyIf struct {
	Cond  string
	Body  []pyNode
	Elifs []pyElif
	Else  []pyNode
}

func (*pyIf) pyNode() {}

// pyFor is a for loop with an optional else clause.
type pyFor struct {
	Target string
	Iter   string
	Body   []pyNode
	Else   []pyNode
}

func (*pyFor) pyNode() {}

// pyWhile is a while loop with an optional else clause.
type pyWhile struct {
	Cond string
	Body []pyNode
	Else []pyNode
}

func (*pyWhile) pyNode() {}

type pyExcept struct {
	Type string
	Name string
	Body []pyNode
}

// pyTry is a try statement with except, else, and finally clauses.
type pyTry struct {
	Body    []pyNode
	Excepts []pyExcept
	Else    []pyNode
	Finally []pyNode
}

func (*pyTry) pyNode() {}

type pyCase struct {
	Pattern string
	Guard   string
	Body    []pyNode
}

// pyMatch is a match statement.
type pyMatch struct {
	Subject string
	Cases   []pyCase
}

func (*pyMatch) pyNode() {}

type pyWithItem struct {
	Expr string
	As   string
}

// pyWith is a with statement.
type pyWith struct {
	Items []pyWithItem
	Body  []pyNode
}

func (*pyWith) pyNode() {}
