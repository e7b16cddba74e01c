package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plumelang/plume/ast"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	var p Parser
	mod, err := p.Parse("test.plx", []byte(src))
	require.NoError(t, err)
	return mod
}

func parseErr(t *testing.T, src string) *SyntaxError {
	t.Helper()
	var p Parser
	_, err := p.Parse("test.plx", []byte(src))
	require.Error(t, err)
	var syn *SyntaxError
	require.True(t, errors.As(err, &syn), "want SyntaxError, got %T: %v", err, err)
	return syn
}

func onlyView(t *testing.T, mod *ast.Module) *ast.ViewDecl {
	t.Helper()
	views := mod.Views()
	require.Len(t, views, 1)
	return views[0]
}

func TestParseViewHeader(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view Greeting(name, count=1):",
		"    <p>hi</p>",
	}, "\n"))
	view := onlyView(t, mod)
	require.Equal(t, "Greeting", view.Name)
	require.Equal(t, "name, count=1", view.ParamText)
	require.Equal(t, []string{"name", "count"}, view.Params)
	require.Len(t, view.Body, 1)
}

func TestParseInlineElement(t *testing.T) {
	mod := parse(t, "view V():\n    <h1>Hello {name}!</h1>\n")
	el, ok := onlyView(t, mod).Body[0].(*ast.Element)
	require.True(t, ok)
	require.Equal(t, "h1", el.Tag)
	require.Len(t, el.Children, 1)
	txt := el.Children[0].(*ast.Text)
	require.Equal(t, []ast.TextSegment{
		{Literal: "Hello "},
		{Expr: "name"},
		{Literal: "!"},
	}, txt.Segments)
}

func TestParseAttributes(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V():",
		`    <div class="card" id={ident} count={3} hidden={True} disabled>`,
		"        x",
		"    </div>",
	}, "\n"))
	el := onlyView(t, mod).Body[0].(*ast.Element)
	require.Len(t, el.Attrs, 5)

	require.Equal(t, &ast.ConstAttr{Text: "card", IsString: true}, el.Attrs[0].Value)
	require.Equal(t, &ast.DynAttr{Expr: "ident"}, el.Attrs[1].Value)
	require.Equal(t, &ast.ConstAttr{Text: "3"}, el.Attrs[2].Value)
	require.Equal(t, &ast.ConstAttr{Text: "True"}, el.Attrs[3].Value)
	require.Equal(t, "disabled", el.Attrs[4].Name)
	require.Nil(t, el.Attrs[4].Value)
}

func TestParseSelfClosing(t *testing.T) {
	mod := parse(t, "view V():\n    <br/>\n")
	el := onlyView(t, mod).Body[0].(*ast.Element)
	require.Equal(t, "br", el.Tag)
	require.True(t, el.SelfClosing)
	require.Empty(t, el.Children)
}

func TestParseMultilineOpenTag(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V():",
		`    <input type="text"`,
		`           name={field}`,
		"           required/>",
	}, "\n"))
	el := onlyView(t, mod).Body[0].(*ast.Element)
	require.Equal(t, "input", el.Tag)
	require.True(t, el.SelfClosing)
	require.Len(t, el.Attrs, 3)
}

func TestParseControlFlowInContent(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V(items):",
		"    <ul>",
		"        for item in items:",
		"            <li>{item}</li>",
		"        else:",
		"            <li>empty</li>",
		"    </ul>",
	}, "\n"))
	el := onlyView(t, mod).Body[0].(*ast.Element)
	require.Len(t, el.Children, 1)
	loop := el.Children[0].(*ast.For)
	require.Equal(t, "item", loop.Target)
	require.Equal(t, "items", loop.Iter)
	require.Len(t, loop.Body, 1)
	require.Len(t, loop.Else, 1)
}

func TestParseIfElifElse(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V(n):",
		"    if n > 1:",
		"        <p>many</p>",
		"    elif n == 1:",
		"        <p>one</p>",
		"    else:",
		"        <p>none</p>",
	}, "\n"))
	cond := onlyView(t, mod).Body[0].(*ast.If)
	require.Equal(t, "n > 1", cond.Cond)
	require.Len(t, cond.Elifs, 1)
	require.Equal(t, "n == 1", cond.Elifs[0].Cond)
	require.Len(t, cond.Else, 1)
}

func TestParseInlineSuite(t *testing.T) {
	mod := parse(t, "view V(cond):\n    if cond: <b>yes</b>\n")
	cond := onlyView(t, mod).Body[0].(*ast.If)
	require.Len(t, cond.Body, 1)
	el := cond.Body[0].(*ast.Element)
	require.Equal(t, "b", el.Tag)
}

func TestParseTryExcept(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V():",
		"    try:",
		"        <p>body</p>",
		"    except ValueError as e:",
		"        <p>bad</p>",
		"    finally:",
		"        cleanup()",
	}, "\n"))
	try := onlyView(t, mod).Body[0].(*ast.Try)
	require.Len(t, try.Excepts, 1)
	require.Equal(t, "ValueError", try.Excepts[0].Type)
	require.Equal(t, "e", try.Excepts[0].Name)
	require.Len(t, try.Finally, 1)
	raw := try.Finally[0].(*ast.Raw)
	require.Equal(t, "cleanup()", raw.Text)
}

func TestParseMatchCase(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V(kind):",
		"    match kind:",
		`        case "a":`,
		"            <p>A</p>",
		"        case n if n > 0:",
		"            <p>num</p>",
		"        case _:",
		"            <p>other</p>",
	}, "\n"))
	m := onlyView(t, mod).Body[0].(*ast.Match)
	require.Equal(t, "kind", m.Subject)
	require.Len(t, m.Cases, 3)
	require.Equal(t, `"a"`, m.Cases[0].Pattern)
	require.Equal(t, "n", m.Cases[1].Pattern)
	require.Equal(t, "n > 0", m.Cases[1].Guard)
	require.Equal(t, "_", m.Cases[2].Pattern)
}

func TestParseSlotAndTemplate(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view Card():",
		"    <div>",
		"        <slot></slot>",
		`        <slot name="footer"><i>none</i></slot>`,
		"    </div>",
		"",
		"view Page():",
		"    <Card>",
		"        <p>body</p>",
		`        <template slot="footer">`,
		"            <b>F</b>",
		"        </template>",
		"    </Card>",
	}, "\n"))
	views := mod.Views()
	require.Len(t, views, 2)

	div := views[0].Body[0].(*ast.Element)
	def := div.Children[0].(*ast.Slot)
	require.Equal(t, "children", def.Name)
	require.Empty(t, def.Fallback)
	footer := div.Children[1].(*ast.Slot)
	require.Equal(t, "footer", footer.Name)
	require.Len(t, footer.Fallback, 1)

	call := views[1].Body[0].(*ast.ComponentCall)
	require.Equal(t, "Card", call.Name)
	require.Len(t, call.Children, 2)
	tmpl := call.Children[1].(*ast.Template)
	require.Equal(t, "footer", tmpl.SlotName)
}

func TestTextLinesMergeWithSpace(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V(name):",
		"    <p>",
		"        first line",
		"        second {name}",
		"    </p>",
	}, "\n"))
	el := onlyView(t, mod).Body[0].(*ast.Element)
	require.Len(t, el.Children, 1)
	txt := el.Children[0].(*ast.Text)
	require.Equal(t, []ast.TextSegment{
		{Literal: "first line"},
		{Literal: " "},
		{Literal: "second "},
		{Expr: "name"},
	}, txt.Segments)
}

func TestContentHostStatements(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"view V(items):",
		"    <div>",
		"        total = len(items)",
		"        {total} items",
		"    </div>",
	}, "\n"))
	el := onlyView(t, mod).Body[0].(*ast.Element)
	require.Len(t, el.Children, 2)
	raw := el.Children[0].(*ast.Raw)
	require.Equal(t, "total = len(items)", raw.Text)
	_, isText := el.Children[1].(*ast.Text)
	require.True(t, isText)
}

func TestModuleLevelRawSuite(t *testing.T) {
	mod := parse(t, strings.Join([]string{
		"import html",
		"",
		"def helper(x):",
		"    return x * 2",
		"",
		"view V():",
		"    <p>hi</p>",
	}, "\n"))
	require.Len(t, mod.Stmts, 4)
	require.Equal(t, "import html", mod.Stmts[0].(*ast.Raw).Text)
	require.Equal(t, "def helper(x):", mod.Stmts[1].(*ast.Raw).Text)
	inner := mod.Stmts[2].(*ast.Raw)
	require.Equal(t, "return x * 2", inner.Text)
	require.Equal(t, 4, inner.Indent)
}

func TestBraceEscapes(t *testing.T) {
	mod := parse(t, "view V():\n    <code>{{literal}}</code>\n")
	el := onlyView(t, mod).Body[0].(*ast.Element)
	txt := el.Children[0].(*ast.Text)
	require.Equal(t, []ast.TextSegment{{Literal: "{literal}"}}, txt.Segments)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		want string
	}{
		{
			name: "mismatched close",
			src:  "view V():\n    <div>\n        x\n    </span>",
			line: 4,
			want: "does not match",
		},
		{
			name: "missing close",
			src:  "view V():\n    <div>\n        x",
			line: 2,
			want: "missing closing tag",
		},
		{
			name: "bad attribute value",
			src:  "view V():\n    <div class=card></div>",
			line: 2,
			want: "quoted string or {expression}",
		},
		{
			name: "unterminated interpolation",
			src:  "view V():\n    <p>{broken</p>",
			line: 2,
			want: "unterminated interpolation",
		},
		{
			name: "missing view colon",
			src:  "view V()\n    <p>x</p>",
			line: 1,
			want: "expected ':'",
		},
		{
			name: "dangling else",
			src:  "view V():\n    else:\n        <p>x</p>",
			line: 2,
			want: "without a matching statement",
		},
		{
			name: "stray close at top level",
			src:  "</div>",
			line: 1,
			want: "unmatched closing tag",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syn := parseErr(t, tt.src)
			require.Equal(t, tt.line, syn.Line, "error: %v", syn)
			require.Contains(t, syn.Msg, tt.want)
			require.Equal(t, "test.plx", syn.File)
		})
	}
}
