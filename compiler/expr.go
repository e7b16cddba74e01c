package compiler

import (
	"strings"

	"github.com/plumelang/plume/ast"
	"github.com/plumelang/plume/scanner"
)

// collectShadows gathers every name the view body binds locally: loop
// targets, exception and context-manager bindings, and assignment targets
// in opaque host lines. The host language scopes functions flatly, so a
// name bound anywhere in the body shadows a parameter of the same name
// throughout.
func collectShadows(body []ast.Stmt) map[string]bool {
	shadows := make(map[string]bool)
	bind := func(target string) {
		for _, part := range splitTargets(target) {
			if part != "" {
				shadows[part] = true
			}
		}
	}
	ast.Inspect(body, func(s ast.Stmt) bool {
		switch st := s.(type) {
		case *ast.For:
			bind(st.Target)
		case *ast.Try:
			for _, ex := range st.Excepts {
				if ex.Name != "" {
					shadows[ex.Name] = true
				}
			}
		case *ast.With:
			for _, item := range st.Items {
				if item.As != "" {
					bind(item.As)
				}
			}
		case *ast.Raw:
			if name := assignTarget(st.Text); name != "" {
				shadows[name] = true
			}
		case *ast.Match:
			for _, c := range st.Cases {
				for _, name := range patternBindings(c.Pattern) {
					shadows[name] = true
				}
			}
		}
		return true
	})
	return shadows
}

// splitTargets breaks a loop or with target like `k, (a, b)` into bare
// names.
func splitTargets(target string) []string {
	var names []string
	cur := strings.Builder{}
	for i := 0; i < len(target); i++ {
		ch := target[i]
		if scanner.IsIdentByte(ch) {
			cur.WriteByte(ch)
			continue
		}
		if cur.Len() > 0 {
			names = append(names, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		names = append(names, cur.String())
	}
	return names
}

// assignTarget returns the bound name of a simple or augmented assignment
// line, or "" when the line is not one.
func assignTarget(text string) string {
	if text == "" || !scanner.IsIdentStart(text[0]) {
		return ""
	}
	end := 0
	for end < len(text) && scanner.IsIdentByte(text[end]) {
		end++
	}
	rest := strings.TrimLeft(text[end:], " ")
	if rest == "" {
		return ""
	}
	if rest[0] == '=' && !strings.HasPrefix(rest, "==") {
		return text[:end]
	}
	for _, op := range []string{"+=", "-=", "*=", "/=", "//=", "%=", "**=", "|=", "&=", "^=", ">>=", "<<="} {
		if strings.HasPrefix(rest, op) {
			return text[:end]
		}
	}
	if rest[0] == ':' && !strings.HasPrefix(rest, "::") {
		// annotated assignment `x: int = ...`
		if strings.Contains(rest, "=") {
			return text[:end]
		}
	}
	return ""
}

// patternBindings extracts capture names from a case pattern. Literals,
// dotted values, and the wildcard bind nothing; bare names and `as`
// bindings do.
func patternBindings(pattern string) []string {
	var names []string
	for _, tok := range identsOf(pattern) {
		switch tok.text {
		case "_", "None", "True", "False", "as", "if", "or", "and", "not":
			continue
		}
		if tok.dotted || tok.called {
			continue
		}
		names = append(names, tok.text)
	}
	return names
}

type identTok struct {
	text   string
	start  int
	dotted bool // preceded by '.'
	called bool // followed by '('
	kwarg  bool // followed by '=' in call position
}

// identsOf scans the identifier tokens of an expression, outside string
// literals, with enough neighbor context to classify each occurrence.
func identsOf(expr string) []identTok {
	var toks []identTok
	i := 0
	for i < len(expr) {
		if expr[i] == '"' || expr[i] == '\'' {
			quote := expr[i]
			i++
			for i < len(expr) {
				if expr[i] == '\\' {
					i += 2
					continue
				}
				if expr[i] == quote {
					i++
					break
				}
				i++
			}
			continue
		}
		if !scanner.IsIdentStart(expr[i]) {
			i++
			continue
		}
		start := i
		for i < len(expr) && scanner.IsIdentByte(expr[i]) {
			i++
		}
		tok := identTok{text: expr[start:i], start: start}
		if start > 0 && expr[start-1] == '.' {
			tok.dotted = true
		}
		j := i
		for j < len(expr) && expr[j] == ' ' {
			j++
		}
		if j < len(expr) {
			switch {
			case expr[j] == '(':
				tok.called = true
			case expr[j] == '=' && (j+1 >= len(expr) || expr[j+1] != '='):
				tok.kwarg = true
			}
		}
		toks = append(toks, tok)
	}
	return toks
}

// rewriteSelf rewrites bare references to view parameters into instance
// field access. Dotted attributes, keyword-argument names, and names
// shadowed by local bindings are left alone.
func rewriteSelf(expr string, params, shadows map[string]bool) string {
	toks := identsOf(expr)
	if len(toks) == 0 {
		return expr
	}
	var sb strings.Builder
	last := 0
	for _, tok := range toks {
		if !params[tok.text] || shadows[tok.text] || tok.dotted || tok.kwarg {
			continue
		}
		sb.WriteString(expr[last:tok.start])
		sb.WriteString("self.")
		sb.WriteString(tok.text)
		last = tok.start + len(tok.text)
	}
	sb.WriteString(expr[last:])
	return sb.String()
}

// rewriteHasSlot replaces has_slot("name") probes with a slot-presence
// test against the instance field.
func rewriteHasSlot(expr string) string {
	for {
		idx := findCall(expr, "has_slot")
		if idx < 0 {
			return expr
		}
		open := idx + len("has_slot")
		closeIdx := matchParen(expr, open)
		if closeIdx < 0 {
			return expr
		}
		arg := strings.TrimSpace(expr[open+1 : closeIdx])
		name := unquote(arg)
		if name == "" {
			return expr
		}
		expr = expr[:idx] + "(self." + name + " is not None)" + expr[closeIdx+1:]
	}
}

// findCall locates a bare call of fn outside string literals.
func findCall(expr, fn string) int {
	for _, tok := range identsOf(expr) {
		if tok.text == fn && tok.called && !tok.dotted {
			return tok.start
		}
	}
	return -1
}

func matchParen(s string, open int) int {
	depth := 0
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.Pos() < open || sc.InString() {
			continue
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return sc.Pos()
			}
		}
	}
	return -1
}

// unquote strips matching single or double quotes from a simple string
// literal, returning "" when arg is not one.
func unquote(arg string) string {
	if len(arg) < 2 {
		return ""
	}
	q := arg[0]
	if (q != '"' && q != '\'') || arg[len(arg)-1] != q {
		return ""
	}
	inner := arg[1 : len(arg)-1]
	if strings.ContainsAny(inner, "\"'\\") {
		return ""
	}
	return inner
}
