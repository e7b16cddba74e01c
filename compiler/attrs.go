package compiler

import (
	"strings"

	"github.com/plumelang/plume/ast"
)

// pyString formats s as a host string literal.
func pyString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(s[i])
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// htmlEscape entity-escapes literal markup text the same way the
// runtime's escape does. Text children reach the element tree already
// safe: literals are escaped here at emission time and interpolations
// are wrapped in escape(), so the runtime inserts strings verbatim and
// escaping happens exactly once.
func htmlEscape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '"':
			sb.WriteString("&quot;")
		case '\'':
			sb.WriteString("&#x27;")
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// fstringLiteral escapes a literal chunk for embedding inside an f-string
// body: braces double, quotes and backslashes escape.
func fstringLiteral(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			sb.WriteString("{{")
		case '}':
			sb.WriteString("}}")
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// compileText compiles a text run into a single expression. A run with no
// interpolation becomes a plain string; any interpolation turns the whole
// run into one f-string with each expression escaped at render time.
// Literal text is entity-escaped here so the result is safe as emitted.
// rewrite maps the source expression into its lowered form.
func compileText(segs []ast.TextSegment, rewrite func(string) string) string {
	dynamic := false
	for _, seg := range segs {
		if seg.Expr != "" {
			dynamic = true
			break
		}
	}
	if !dynamic {
		var sb strings.Builder
		for _, seg := range segs {
			sb.WriteString(htmlEscape(seg.Literal))
		}
		return pyString(sb.String())
	}
	var sb strings.Builder
	sb.WriteString(`f"`)
	for _, seg := range segs {
		if seg.Expr == "" {
			sb.WriteString(fstringLiteral(htmlEscape(seg.Literal)))
			continue
		}
		sb.WriteString("{escape(")
		sb.WriteString(rewrite(seg.Expr))
		sb.WriteString(")}")
	}
	sb.WriteString(`"`)
	return sb.String()
}

// compileAttrs compiles an attribute list into a dict literal expression,
// or "None" when the list is empty. escapeDyn wraps dynamic values in
// escape(); element attributes escape, component arguments pass host
// values through untouched.
func compileAttrs(attrs []ast.Attr, escapeDyn bool, rewrite func(string) string) string {
	if len(attrs) == 0 {
		return "None"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, a := range attrs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pyString(a.Name))
		sb.WriteString(": ")
		sb.WriteString(attrValueExpr(a.Value, escapeDyn, rewrite))
	}
	sb.WriteByte('}')
	return sb.String()
}

// attrValueExpr lowers one attribute value. Bare attributes and literal
// constants pass through unwrapped; dynamic expressions are rewritten and
// optionally escaped.
func attrValueExpr(v ast.AttrValue, escapeDyn bool, rewrite func(string) string) string {
	switch val := v.(type) {
	case nil:
		return "True"
	case *ast.ConstAttr:
		if val.IsString {
			return pyString(val.Text)
		}
		return val.Text
	case *ast.DynAttr:
		expr := rewrite(val.Expr)
		if escapeDyn {
			return "escape(" + expr + ")"
		}
		return expr
	default:
		return "None"
	}
}

// elExpr builds the element-constructor call, omitting trailing default
// arguments.
func elExpr(tag, content, attrs string, selfClose bool) string {
	args := []string{pyString(tag), content}
	if attrs != "None" || selfClose {
		args = append(args, attrs)
	}
	if selfClose {
		args = append(args, "True")
	}
	return "el(" + strings.Join(args, ", ") + ")"
}
