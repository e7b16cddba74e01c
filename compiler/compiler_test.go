package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	code, err := Compile("test.plx", []byte(src))
	require.NoError(t, err)
	return code
}

func renderBody(t *testing.T, code string) string {
	t.Helper()
	idx := strings.Index(code, "def _render(self) -> Element:\n")
	require.GreaterOrEqual(t, idx, 0, "no render method in:\n%s", code)
	body := code[idx+len("def _render(self) -> Element:\n"):]
	if end := strings.Index(body, "\n\n"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimRight(body, "\n")
}

func TestStaticSingleRoot(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Hello(name):",
		"    <h1>Hello {name}!</h1>",
	}, "\n"))

	want := strings.Join([]string{
		"from plume.runtime import View, Element, el, escape, fragment, render_child",
		"",
		"",
		"class Hello(View):",
		"    def __init__(self, name, *, children=None):",
		"        self.name = name",
		"        self.children = children",
		"",
		"    def _render(self) -> Element:",
		`        return el("h1", f"Hello {escape(self.name)}!")`,
		"",
	}, "\n")
	require.Equal(t, want, code)
}

func TestIdempotentReemission(t *testing.T) {
	src := strings.Join([]string{
		"view Mixed(items, cond):",
		"    <ul>",
		"        for item in items:",
		"            if cond:",
		"                <li>{item}</li>",
		"            else:",
		"                <li>skipped</li>",
		"    </ul>",
	}, "\n")
	first := compile(t, src)
	second := compile(t, src)
	require.Equal(t, first, second)
}

func TestTwoRootsBuildFragment(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Pair():",
		"    <h1>A</h1>",
		"    <p>B</p>",
	}, "\n"))

	want := strings.Join([]string{
		"        _root_children_1000 = []",
		`        _root_children_1000.append(el("h1", "A"))`,
		`        _root_children_1000.append(el("p", "B"))`,
		"        return fragment(_root_children_1000)",
	}, "\n")
	require.Equal(t, want, renderBody(t, code))
}

func TestIfElseCollapsesToConditionalExpression(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Toggle(cond):",
		"    if cond:",
		"        <div>X</div>",
		"    else:",
		"        <div>Y</div>",
	}, "\n"))

	body := renderBody(t, code)
	require.Equal(t, `        return el("div", "X") if self.cond else el("div", "Y")`, body)
	require.NotContains(t, code, "_root_children")
	require.NotContains(t, code, "fragment(")
}

func TestLoopKeepsAccumulator(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view List(items):",
		"    <ul>",
		"        for item in items:",
		"            <li>{item}</li>",
		"    </ul>",
	}, "\n"))

	want := strings.Join([]string{
		"        _ul_children_1000 = []",
		"        for item in self.items:",
		`            _ul_children_1000.append(el("li", f"{escape(item)}"))`,
		`        return el("ul", _ul_children_1000)`,
	}, "\n")
	require.Equal(t, want, renderBody(t, code))
}

func TestInterpolationEscapes(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Unsafe(payload):",
		"    <p>{payload}</p>",
	}, "\n"))
	require.Contains(t, code, "escape(self.payload)")

	code = compile(t, strings.Join([]string{
		"view Safe():",
		"    <p>plain text</p>",
	}, "\n"))
	require.NotContains(t, code, "escape(")
	require.Contains(t, code, `el("p", "plain text")`)
}

func TestAttributeCompilation(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Box(ident, active):",
		`    <div class="card" id={ident} count={3} hidden={True} disabled data-state={active}>`,
		"        x",
		"    </div>",
	}, "\n"))

	require.Contains(t, code, `"class": "card"`)
	require.Contains(t, code, `"id": escape(self.ident)`)
	require.Contains(t, code, `"count": 3`)
	require.Contains(t, code, `"hidden": True`)
	require.Contains(t, code, `"disabled": True`)
	require.Contains(t, code, `"data-state": escape(self.active)`)
}

func TestSlotFallback(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Card(title):",
		`    <div class="card">`,
		"        <h2>{title}</h2>",
		`        <slot name="footer"><i>no footer</i></slot>`,
		"    </div>",
	}, "\n"))

	require.Contains(t, code,
		`render_child(self.footer) if self.footer is not None else el("i", "no footer")`)
	require.Contains(t, code, "def __init__(self, title, *, children=None, footer=None):")
	require.Contains(t, code, "self.footer = footer")
}

func TestComponentInvocation(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Card(title):",
		"    <div>",
		"        <h2>{title}</h2>",
		"        <slot></slot>",
		`        <slot name="footer"></slot>`,
		"    </div>",
		"",
		"view Page(user):",
		"    <Card title={user.name}>",
		"        <p>Body</p>",
		`        <template slot="footer">`,
		"            <b>F</b>",
		"        </template>",
		"    </Card>",
	}, "\n"))

	require.Contains(t, code,
		`return Card(title=self.user.name, children=fragment([el("p", "Body")]), footer=fragment([el("b", "F")]))`)
}

func TestComponentArgumentsNotEscaped(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Badge(count):",
		"    <span>{count}</span>",
		"",
		"view Header(n):",
		"    <Badge count={n}/>",
	}, "\n"))
	require.Contains(t, code, "return Badge(count=self.n)")
	require.NotContains(t, code, "count=escape")
}

func TestEarlyReturnWrapsAccumulated(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Maybe(flag):",
		"    <p>intro</p>",
		"    if flag:",
		"        return",
		"    <p>more</p>",
	}, "\n"))

	want := strings.Join([]string{
		"        _root_children_1000 = []",
		`        _root_children_1000.append(el("p", "intro"))`,
		"        if self.flag:",
		"            return fragment(_root_children_1000)",
		`        _root_children_1000.append(el("p", "more"))`,
		"        return fragment(_root_children_1000)",
	}, "\n")
	require.Equal(t, want, renderBody(t, code))
}

func TestHasSlotRewrite(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Card():",
		"    <div>",
		`        if has_slot("footer"):`,
		"            <footer><slot name=\"footer\"></slot></footer>",
		"    </div>",
	}, "\n"))
	require.Contains(t, code, "if (self.footer is not None):")
}

func TestParamShadowing(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view V(item, items):",
		"    <ul>",
		"        for item in items:",
		"            <li>{item}</li>",
		"    </ul>",
	}, "\n"))
	require.Contains(t, code, "for item in self.items:")
	require.Contains(t, code, "escape(item)")
	require.NotContains(t, code, "escape(self.item)")
}

func TestHostStatementsPreserved(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"import html",
		"",
		"def helper(x):",
		"    return x * 2",
		"",
		"view V(n):",
		"    <div>",
		"        total = helper(n)",
		"        {total} items",
		"    </div>",
	}, "\n"))

	require.Contains(t, code, "import html\n")
	require.Contains(t, code, "def helper(x):\n    return x * 2\n")
	require.Contains(t, code, "total = helper(self.n)")
	require.Contains(t, code, "escape(total)")
	require.NotContains(t, code, "escape(self.total)")
}

func TestTryExceptFinallyPreserved(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Robust(path):",
		"    <div>",
		"        try:",
		"            <p>{path}</p>",
		"        except ValueError as e:",
		"            <p>bad</p>",
		"        finally:",
		"            cleanup()",
		"    </div>",
	}, "\n"))

	want := strings.Join([]string{
		"        _div_children_1000 = []",
		"        try:",
		`            _div_children_1000.append(el("p", f"{escape(self.path)}"))`,
		"        except ValueError as e:",
		`            _div_children_1000.append(el("p", "bad"))`,
		"        finally:",
		"            cleanup()",
		`        return el("div", _div_children_1000)`,
	}, "\n")
	require.Equal(t, want, renderBody(t, code))
}

func TestMatchCasesPreserved(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Badge(kind):",
		"    <span>",
		"        match kind:",
		`            case "ok":`,
		"                <b>OK</b>",
		"            case n if n > 0:",
		"                <b>{n}</b>",
		"            case _:",
		"                <b>?</b>",
		"    </span>",
	}, "\n"))

	require.Contains(t, code, "match self.kind:")
	require.Contains(t, code, `case "ok":`)
	require.Contains(t, code, "case n if n > 0:")
	require.Contains(t, code, "case _:")
}

func TestUnknownComponent(t *testing.T) {
	_, err := Compile("test.plx", []byte(strings.Join([]string{
		"view Page():",
		"    <Missing/>",
	}, "\n")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown component Missing")
}

func TestUndeclaredSlot(t *testing.T) {
	_, err := Compile("test.plx", []byte(strings.Join([]string{
		"view Card():",
		"    <div><slot></slot></div>",
		"",
		"view Page():",
		"    <Card>",
		`        <template slot="side">`,
		"            <b>S</b>",
		"        </template>",
		"    </Card>",
	}, "\n")))
	require.Error(t, err)
	var slotErr *SlotError
	require.True(t, errors.As(err, &slotErr))
	require.Equal(t, "side", slotErr.Slot)
	require.Equal(t, "Card", slotErr.View)
}

func TestChildrenIntoSlotlessComponent(t *testing.T) {
	_, err := Compile("test.plx", []byte(strings.Join([]string{
		"view Leaf():",
		"    <hr/>",
		"",
		"view Page():",
		"    <Leaf>",
		"        <p>lost</p>",
		"    </Leaf>",
	}, "\n")))
	require.Error(t, err)
	var slotErr *SlotError
	require.True(t, errors.As(err, &slotErr))
	require.Equal(t, "children", slotErr.Slot)
}

func TestSlotParamCollision(t *testing.T) {
	b := NewBatch()
	err := b.Add("test.plx", []byte(strings.Join([]string{
		"view Card(footer):",
		`    <div><slot name="footer"></slot></div>`,
	}, "\n")))
	require.Error(t, err)
	var slotErr *SlotError
	require.True(t, errors.As(err, &slotErr))
	require.Contains(t, slotErr.Msg, "collides")
}

func TestSlotFallbackControlFlowRejected(t *testing.T) {
	_, err := Compile("test.plx", []byte(strings.Join([]string{
		"view Card(items):",
		"    <div>",
		`        <slot name="footer">`,
		"            for item in items:",
		"                <i>{item}</i>",
		"        </slot>",
		"    </div>",
	}, "\n")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "slot fallback content cannot contain control flow")
}

func TestBatchIsolatesUnitFailures(t *testing.T) {
	b := NewBatch()
	b.Add("bad.plx", []byte("view Broken():\n    <div>\n        x"))
	require.NoError(t, b.Add("good.plx", []byte("view Fine():\n    <p>ok</p>")))

	results := b.Compile(context.Background())
	require.Len(t, results, 2)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Source] = r
	}
	require.Error(t, byName["bad.plx"].Err)
	require.NoError(t, byName["good.plx"].Err)
	require.Contains(t, byName["good.plx"].Code, "class Fine(View):")
}

func TestCrossFileComponents(t *testing.T) {
	b := NewBatch()
	require.NoError(t, b.Add("card.plx", []byte(strings.Join([]string{
		"view Card(title):",
		"    <div>",
		"        <h2>{title}</h2>",
		"        <slot></slot>",
		"    </div>",
	}, "\n"))))
	require.NoError(t, b.Add("page.plx", []byte(strings.Join([]string{
		"view Page():",
		`    <Card title="Home">`,
		"        <p>welcome</p>",
		"    </Card>",
	}, "\n"))))

	results := b.Compile(context.Background())
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err, "unit %s", r.Source)
	}
	require.Contains(t, results[1].Code, `Card(title="Home", children=fragment([el("p", "welcome")]))`)
}

func TestDuplicateViewRejected(t *testing.T) {
	b := NewBatch()
	require.NoError(t, b.Add("a.plx", []byte("view V():\n    <p>a</p>")))
	err := b.Add("b.plx", []byte("view V():\n    <p>b</p>"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "defined more than once")
}

func TestCompileDirWritesToOutputDir(t *testing.T) {
	dir := t.TempDir()
	src := "view Hello(name):\n    <p>Hi {name}</p>\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.plx"), []byte(src), 0o644))
	out := filepath.Join(dir, "build")

	results, err := CompileDir(context.Background(), dir, out, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	data, err := os.ReadFile(filepath.Join(out, "hello.py"))
	require.NoError(t, err)
	require.Contains(t, string(data), "class Hello(View):")
}

func TestHostStatementBlocksInlining(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Ticker():",
		"    <a>",
		"        x = 1",
		"        <b>{x}</b>",
		"        x = 2",
		"    </a>",
	}, "\n"))

	want := strings.Join([]string{
		"        _a_children_1000 = []",
		"        x = 1",
		`        _a_children_1000.append(el("b", f"{escape(x)}"))`,
		"        x = 2",
		`        return el("a", _a_children_1000)`,
	}, "\n")
	require.Equal(t, want, renderBody(t, code))
}

func TestSlotFallbackMultipleNodes(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view Card():",
		"    <div>",
		"        <p>x</p>",
		`        <slot name="footer"><i>a</i><b>c</b></slot>`,
		"    </div>",
	}, "\n"))

	require.Contains(t, code,
		`render_child(self.footer) if self.footer is not None else fragment([el("i", "a"), el("b", "c")])`)
}

func TestLiteralTextEscapedAtEmission(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view V(name):",
		"    <p>Tom & Jerry: {name}</p>",
	}, "\n"))
	require.Contains(t, code, `f"Tom &amp; Jerry: {escape(self.name)}"`)

	code = compile(t, strings.Join([]string{
		"view W():",
		"    <p>a & b</p>",
	}, "\n"))
	require.Contains(t, code, `el("p", "a &amp; b")`)
}

func TestSnakeCaseTagCollapses(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view V(cond):",
		"    <my_div>",
		"        if cond:",
		"            <p>a</p>",
		"        else:",
		"            <p>b</p>",
		"    </my_div>",
	}, "\n"))

	body := renderBody(t, code)
	require.Equal(t, `        return el("my_div", el("p", "a") if self.cond else el("p", "b"))`, body)
	require.NotContains(t, code, "_my_div_children")
}

func TestKwargsParamKeepsSlotsKeywordOnly(t *testing.T) {
	code := compile(t, strings.Join([]string{
		"view V(title, **extra):",
		"    <div>",
		"        <slot></slot>",
		"    </div>",
	}, "\n"))

	require.Contains(t, code, "def __init__(self, title, *, children=None, **extra):")
	require.Contains(t, code, "self.extra = extra")
}
