// Package parser turns plume source text into the typed tree in package
// ast. Statements are recognized line by line using indentation, the way
// the host language scopes its suites; tag markup inside a line is scanned
// character by character. Host-language statements the compiler has no
// business understanding are preserved verbatim as ast.Raw nodes.
package parser

import (
	"strings"

	"github.com/plumelang/plume/ast"
	"github.com/plumelang/plume/scanner"
)

// line is one source line with its indentation resolved.
type line struct {
	num    int    // 1-based source line number
	indent int    // leading whitespace width (tab = 4)
	text   string // comment-stripped text without leading indent
}

// Parser parses one compilation unit. The zero value is ready to use.
type Parser struct {
	name  string
	lines []line
	pos   int
}

// Parse parses source text into a Module. name is used in error messages
// and recorded on the module.
func (p *Parser) Parse(name string, src []byte) (*ast.Module, error) {
	p.name = name
	p.lines = splitLines(string(src))
	p.pos = 0

	mod := &ast.Module{SourceFile: name}
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent != 0 {
			return nil, p.errorf(ln.num, "unexpected indent at top level")
		}
		if strings.HasPrefix(ln.text, "</") {
			return nil, p.errorf(ln.num, "unmatched closing tag")
		}
		if isViewHeader(ln.text) {
			view, err := p.parseView()
			if err != nil {
				return nil, err
			}
			mod.Stmts = append(mod.Stmts, view)
			continue
		}
		mod.Stmts = append(mod.Stmts, p.rawWithSuite(0)...)
	}
	return mod, nil
}

// splitLines strips comments and trailing whitespace, computes indents,
// and drops blank lines. Tabs count as four columns.
func splitLines(src string) []line {
	var out []line
	for i, raw := range strings.Split(src, "\n") {
		text := scanner.StripComment(raw)
		text = strings.TrimRight(text, " \t\r")
		indent := 0
		j := 0
		for ; j < len(text); j++ {
			switch text[j] {
			case ' ':
				indent++
			case '\t':
				indent += 4
			default:
				goto done
			}
		}
	done:
		text = text[j:]
		if text == "" {
			continue
		}
		out = append(out, line{num: i + 1, indent: indent, text: text})
	}
	return out
}

func isViewHeader(text string) bool {
	return strings.HasPrefix(text, "view ") || strings.HasPrefix(text, "view\t")
}

// rawWithSuite consumes the current line as an opaque host statement. If
// the line opens a suite (ends with a colon), all deeper-indented lines
// are consumed verbatim with their relative indentation preserved.
func (p *Parser) rawWithSuite(base int) []ast.Stmt {
	ln := p.lines[p.pos]
	p.pos++
	stmts := []ast.Stmt{&ast.Raw{
		BaseStmt: ast.BaseStmt{SourceLine: ln.num},
		Text:     ln.text,
		Indent:   ln.indent - base,
	}}
	if !endsWithColon(ln.text) {
		return stmts
	}
	for p.pos < len(p.lines) && p.lines[p.pos].indent > ln.indent {
		sub := p.lines[p.pos]
		p.pos++
		stmts = append(stmts, &ast.Raw{
			BaseStmt: ast.BaseStmt{SourceLine: sub.num},
			Text:     sub.text,
			Indent:   sub.indent - base,
		})
	}
	return stmts
}

// endsWithColon reports whether text ends with a suite-opening colon
// outside string literals and brackets.
func endsWithColon(text string) bool {
	if !strings.HasSuffix(text, ":") {
		return false
	}
	return scanner.FindTopLevel(text, func(ch byte, pos int, src string) bool {
		return ch == ':' && pos == len(src)-1
	}) == len(text)-1
}

// parseView parses `view Name(params):` and its body.
func (p *Parser) parseView() (*ast.ViewDecl, error) {
	ln := p.lines[p.pos]
	text := strings.TrimSpace(strings.TrimPrefix(ln.text, "view"))

	open := strings.IndexByte(text, '(')
	if open < 0 {
		return nil, p.errorf(ln.num, "expected '(' after view name")
	}
	name := strings.TrimSpace(text[:open])
	if !isIdent(name) {
		return nil, p.errorf(ln.num, "invalid view name %q", name)
	}
	closeIdx := matchParen(text, open)
	if closeIdx < 0 {
		return nil, p.errorf(ln.num, "unterminated parameter list in view %s", name)
	}
	paramText := strings.TrimSpace(text[open+1 : closeIdx])

	rest := strings.TrimSpace(text[closeIdx+1:])
	if rest != ":" {
		return nil, p.errorf(ln.num, "expected ':' after view definition")
	}

	view := &ast.ViewDecl{
		BaseStmt:  ast.BaseStmt{SourceLine: ln.num},
		Name:      name,
		ParamText: paramText,
		Params:    paramNames(paramText),
	}
	p.pos++

	if p.pos >= len(p.lines) || p.lines[p.pos].indent <= ln.indent {
		return nil, p.errorf(ln.num, "expected indented body after view %s", name)
	}
	body, err := p.parseBlock(p.lines[p.pos].indent, false)
	if err != nil {
		return nil, err
	}
	view.Body = body
	return view, nil
}

// matchParen returns the offset of the ')' matching the '(' at open,
// honoring nesting and string literals, or -1.
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

// paramNames extracts bare parameter names from a parameter list, skipping
// the keyword-only marker and stripping annotations, defaults, and
// star prefixes.
func paramNames(paramText string) []string {
	if strings.TrimSpace(paramText) == "" {
		return nil
	}
	var names []string
	for _, part := range splitTopLevel(paramText, ',') {
		part = strings.TrimSpace(part)
		part = strings.TrimLeft(part, "*")
		part = strings.TrimSpace(part)
		if part == "" {
			continue // bare * keyword-only marker
		}
		end := 0
		for end < len(part) && scanner.IsIdentByte(part[end]) {
			end++
		}
		if end > 0 {
			names = append(names, part[:end])
		}
	}
	return names
}

// splitTopLevel splits s on sep occurrences at bracket depth 0 outside
// string literals.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	depth := 0
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() {
			continue
		}
		if scanner.IsOpenBracket(ch) {
			depth++
		} else if scanner.IsCloseBracket(ch) {
			depth--
		} else if ch == sep && depth == 0 {
			parts = append(parts, s[start:sc.Pos()])
			start = sc.Pos() + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func isIdent(s string) bool {
	if s == "" || !scanner.IsIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !scanner.IsIdentByte(s[i]) {
			return false
		}
	}
	return true
}

// parseBlock parses statements at exactly the given indent until a dedent.
// In content mode a closing-tag line ends the block and is left for the
// enclosing element parser to consume; outside content a closing tag is
// an error. Adjacent text lines merge into one run joined by single
// spaces.
func (p *Parser) parseBlock(indent int, content bool) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if strings.HasPrefix(ln.text, "</") {
			if !content {
				return nil, p.errorf(ln.num, "unmatched closing tag")
			}
			break
		}
		if ln.indent < indent {
			break
		}
		if ln.indent > indent {
			return nil, p.errorf(ln.num, "unexpected indent")
		}
		parsed, err := p.parseStmt(indent, content)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, parsed...)
	}
	return mergeTexts(stmts), nil
}

// parseStmt parses one statement position starting at the current line.
// content selects element-content mode, where non-statement lines are
// interpolated text rather than opaque host code.
func (p *Parser) parseStmt(indent int, content bool) ([]ast.Stmt, error) {
	ln := p.lines[p.pos]
	word := firstWord(ln.text)

	switch {
	case strings.HasPrefix(ln.text, "<"):
		s, err := p.parseMarkupLine(indent)
		return wrapOne(s, err)
	case word == "if":
		s, err := p.parseIf(indent, content)
		return wrapOne(s, err)
	case word == "for":
		s, err := p.parseFor(indent, content)
		return wrapOne(s, err)
	case word == "while":
		s, err := p.parseWhile(indent, content)
		return wrapOne(s, err)
	case word == "try":
		s, err := p.parseTry(indent, content)
		return wrapOne(s, err)
	case word == "match":
		s, err := p.parseMatch(indent, content)
		return wrapOne(s, err)
	case word == "with":
		s, err := p.parseWith(indent, content)
		return wrapOne(s, err)
	case word == "elif", word == "else", word == "except", word == "finally", word == "case":
		return nil, p.errorf(ln.num, "%q without a matching statement", word)
	case word == "return":
		p.pos++
		expr := strings.TrimSpace(strings.TrimPrefix(ln.text, "return"))
		return []ast.Stmt{&ast.Return{BaseStmt: ast.BaseStmt{SourceLine: ln.num}, Expr: expr}}, nil
	case content && isTextLine(ln.text):
		p.pos++
		segs, err := p.textSegments(ln.text, ln.num)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.Text{BaseStmt: ast.BaseStmt{SourceLine: ln.num}, Segments: segs}}, nil
	default:
		return p.rawWithSuite(indent), nil
	}
}

func wrapOne(s ast.Stmt, err error) ([]ast.Stmt, error) {
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{s}, nil
}

func firstWord(text string) string {
	end := 0
	for end < len(text) && scanner.IsIdentByte(text[end]) {
		end++
	}
	return text[:end]
}

// isTextLine decides whether a content-mode line is interpolated text or
// an opaque host statement. A line is host code when it starts with a
// simple-statement keyword, contains a top-level assignment, or is a bare
// call; anything else inside element content reads as text.
func isTextLine(text string) bool {
	switch firstWord(text) {
	case "pass", "raise", "break", "continue", "import", "from",
		"global", "nonlocal", "del", "assert", "await", "yield":
		return false
	}
	if hasTopLevelAssign(text) {
		return false
	}
	if isBareCall(text) {
		return false
	}
	return true
}

// hasTopLevelAssign reports a top-level `=` (or augmented assignment)
// that is not part of a comparison, with an identifier-led target.
func hasTopLevelAssign(text string) bool {
	if !scanner.IsIdentStart(text[0]) {
		return false
	}
	idx := scanner.FindTopLevel(text, func(ch byte, pos int, src string) bool {
		if ch != '=' {
			return false
		}
		if pos+1 < len(src) && src[pos+1] == '=' {
			return false
		}
		if pos > 0 {
			switch src[pos-1] {
			case '=', '!', '<', '>':
				return false
			}
		}
		return true
	})
	return idx > 0
}

// isBareCall reports a line of the shape ident(.ident)*((...)) with the
// final paren closing at end of line.
func isBareCall(text string) bool {
	i := 0
	if !scanner.IsIdentStart(text[0]) {
		return false
	}
	for i < len(text) && (scanner.IsIdentByte(text[i]) || text[i] == '.') {
		i++
	}
	if i >= len(text) || text[i] != '(' {
		return false
	}
	return matchParen(text, i) == len(text)-1
}

// mergeTexts fuses adjacent Text statements produced by consecutive text
// lines into a single run, joining at line boundaries with one space.
func mergeTexts(stmts []ast.Stmt) []ast.Stmt {
	var out []ast.Stmt
	for _, s := range stmts {
		txt, ok := s.(*ast.Text)
		if !ok {
			out = append(out, s)
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(*ast.Text); ok {
				prev.Segments = append(prev.Segments, ast.TextSegment{Literal: " "})
				prev.Segments = append(prev.Segments, txt.Segments...)
				continue
			}
		}
		out = append(out, txt)
	}
	return out
}

// suite parses a statement suite: either inline after the colon on the
// header line, or an indented block on the following lines.
func (p *Parser) suite(headerIndent int, inline string, headerLine int, content bool) ([]ast.Stmt, error) {
	inline = strings.TrimSpace(inline)
	if inline != "" {
		return p.parseInlineSuite(inline, headerLine, content)
	}
	if p.pos >= len(p.lines) || p.lines[p.pos].indent <= headerIndent {
		return nil, p.errorf(headerLine, "expected indented block")
	}
	return p.parseBlock(p.lines[p.pos].indent, content)
}

// parseInlineSuite parses a single-line suite body such as
// `if cond: <div>X</div>`.
func (p *Parser) parseInlineSuite(text string, lineNum int, content bool) ([]ast.Stmt, error) {
	switch {
	case strings.HasPrefix(text, "<"):
		node, rest, err := p.parseInlineElement(text, 0, lineNum)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text[rest:]) != "" {
			return nil, p.errorf(lineNum, "unexpected trailing content after inline markup")
		}
		return []ast.Stmt{node}, nil
	case firstWord(text) == "return":
		expr := strings.TrimSpace(strings.TrimPrefix(text, "return"))
		return []ast.Stmt{&ast.Return{BaseStmt: ast.BaseStmt{SourceLine: lineNum}, Expr: expr}}, nil
	case content && isTextLine(text):
		segs, err := p.textSegments(text, lineNum)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.Text{BaseStmt: ast.BaseStmt{SourceLine: lineNum}, Segments: segs}}, nil
	default:
		return []ast.Stmt{&ast.Raw{BaseStmt: ast.BaseStmt{SourceLine: lineNum}, Text: text}}, nil
	}
}

// header splits a control-flow header line into the text between the
// keyword and the suite colon, plus any inline suite after the colon.
func (p *Parser) header(text, keyword string, lineNum int) (head, inline string, err error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, keyword))
	colon := scanner.FindTopLevel(rest, func(ch byte, pos int, src string) bool {
		return ch == ':'
	})
	if colon < 0 {
		return "", "", p.errorf(lineNum, "expected ':' after %s statement", keyword)
	}
	return strings.TrimSpace(rest[:colon]), rest[colon+1:], nil
}

func (p *Parser) parseIf(indent int, content bool) (ast.Stmt, error) {
	ln := p.lines[p.pos]
	cond, inline, err := p.header(ln.text, "if", ln.num)
	if err != nil {
		return nil, err
	}
	if cond == "" {
		return nil, p.errorf(ln.num, "expected condition after 'if'")
	}
	p.pos++
	body, err := p.suite(indent, inline, ln.num, content)
	if err != nil {
		return nil, err
	}
	node := &ast.If{BaseStmt: ast.BaseStmt{SourceLine: ln.num}, Cond: cond, Body: body}

	for p.pos < len(p.lines) && p.lines[p.pos].indent == indent {
		next := p.lines[p.pos]
		switch firstWord(next.text) {
		case "elif":
			econd, einline, err := p.header(next.text, "elif", next.num)
			if err != nil {
				return nil, err
			}
			p.pos++
			ebody, err := p.suite(indent, einline, next.num, content)
			if err != nil {
				return nil, err
			}
			node.Elifs = append(node.Elifs, ast.ElifClause{Cond: econd, Body: ebody})
		case "else":
			_, einline, err := p.header(next.text, "else", next.num)
			if err != nil {
				return nil, err
			}
			p.pos++
			node.Else, err = p.suite(indent, einline, next.num, content)
			if err != nil {
				return nil, err
			}
			return node, nil
		default:
			return node, nil
		}
	}
	return node, nil
}

func (p *Parser) parseFor(indent int, content bool) (ast.Stmt, error) {
	ln := p.lines[p.pos]
	head, inline, err := p.header(ln.text, "for", ln.num)
	if err != nil {
		return nil, err
	}
	inIdx := findKeyword(head, "in")
	if inIdx < 0 {
		return nil, p.errorf(ln.num, "expected 'in' in for statement")
	}
	target := strings.TrimSpace(head[:inIdx])
	iter := strings.TrimSpace(head[inIdx+2:])
	if target == "" || iter == "" {
		return nil, p.errorf(ln.num, "malformed for statement")
	}
	p.pos++
	body, err := p.suite(indent, inline, ln.num, content)
	if err != nil {
		return nil, err
	}
	node := &ast.For{BaseStmt: ast.BaseStmt{SourceLine: ln.num}, Target: target, Iter: iter, Body: body}
	node.Else, err = p.optionalElse(indent, content)
	return node, err
}

func (p *Parser) parseWhile(indent int, content bool) (ast.Stmt, error) {
	ln := p.lines[p.pos]
	cond, inline, err := p.header(ln.text, "while", ln.num)
	if err != nil {
		return nil, err
	}
	if cond == "" {
		return nil, p.errorf(ln.num, "expected condition after 'while'")
	}
	p.pos++
	body, err := p.suite(indent, inline, ln.num, content)
	if err != nil {
		return nil, err
	}
	node := &ast.While{BaseStmt: ast.BaseStmt{SourceLine: ln.num}, Cond: cond, Body: body}
	node.Else, err = p.optionalElse(indent, content)
	return node, err
}

// optionalElse consumes a loop else clause at the given indent.
func (p *Parser) optionalElse(indent int, content bool) ([]ast.Stmt, error) {
	if p.pos >= len(p.lines) || p.lines[p.pos].indent != indent {
		return nil, nil
	}
	ln := p.lines[p.pos]
	if firstWord(ln.text) != "else" {
		return nil, nil
	}
	_, inline, err := p.header(ln.text, "else", ln.num)
	if err != nil {
		return nil, err
	}
	p.pos++
	return p.suite(indent, inline, ln.num, content)
}

func (p *Parser) parseTry(indent int, content bool) (ast.Stmt, error) {
	ln := p.lines[p.pos]
	head, inline, err := p.header(ln.text, "try", ln.num)
	if err != nil {
		return nil, err
	}
	if head != "" {
		return nil, p.errorf(ln.num, "unexpected text after 'try'")
	}
	p.pos++
	body, err := p.suite(indent, inline, ln.num, content)
	if err != nil {
		return nil, err
	}
	node := &ast.Try{BaseStmt: ast.BaseStmt{SourceLine: ln.num}, Body: body}

	for p.pos < len(p.lines) && p.lines[p.pos].indent == indent {
		next := p.lines[p.pos]
		switch firstWord(next.text) {
		case "except":
			head, einline, err := p.header(next.text, "except", next.num)
			if err != nil {
				return nil, err
			}
			clause := ast.ExceptClause{}
			if asIdx := findKeyword(head, "as"); asIdx >= 0 {
				clause.Type = strings.TrimSpace(head[:asIdx])
				clause.Name = strings.TrimSpace(head[asIdx+2:])
				if !isIdent(clause.Name) {
					return nil, p.errorf(next.num, "invalid exception binding %q", clause.Name)
				}
			} else {
				clause.Type = head
			}
			p.pos++
			clause.Body, err = p.suite(indent, einline, next.num, content)
			if err != nil {
				return nil, err
			}
			node.Excepts = append(node.Excepts, clause)
		case "else":
			if len(node.Excepts) == 0 {
				return nil, p.errorf(next.num, "try else clause without except")
			}
			_, einline, err := p.header(next.text, "else", next.num)
			if err != nil {
				return nil, err
			}
			p.pos++
			node.Else, err = p.suite(indent, einline, next.num, content)
			if err != nil {
				return nil, err
			}
		case "finally":
			_, finline, err := p.header(next.text, "finally", next.num)
			if err != nil {
				return nil, err
			}
			p.pos++
			node.Finally, err = p.suite(indent, finline, next.num, content)
			if err != nil {
				return nil, err
			}
			return p.finishTry(node, ln.num)
		default:
			return p.finishTry(node, ln.num)
		}
	}
	return p.finishTry(node, ln.num)
}

func (p *Parser) finishTry(node *ast.Try, lineNum int) (ast.Stmt, error) {
	if len(node.Excepts) == 0 && node.Finally == nil {
		return nil, p.errorf(lineNum, "try statement needs an except or finally clause")
	}
	return node, nil
}

func (p *Parser) parseMatch(indent int, content bool) (ast.Stmt, error) {
	ln := p.lines[p.pos]
	subject, inline, err := p.header(ln.text, "match", ln.num)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		return nil, p.errorf(ln.num, "expected subject expression after 'match'")
	}
	if strings.TrimSpace(inline) != "" {
		return nil, p.errorf(ln.num, "match statement requires an indented case block")
	}
	p.pos++
	if p.pos >= len(p.lines) || p.lines[p.pos].indent <= indent {
		return nil, p.errorf(ln.num, "expected indented case block")
	}

	node := &ast.Match{BaseStmt: ast.BaseStmt{SourceLine: ln.num}, Subject: subject}
	caseIndent := p.lines[p.pos].indent
	for p.pos < len(p.lines) && p.lines[p.pos].indent == caseIndent {
		cln := p.lines[p.pos]
		if firstWord(cln.text) != "case" {
			return nil, p.errorf(cln.num, "expected 'case' inside match statement")
		}
		head, cinline, err := p.header(cln.text, "case", cln.num)
		if err != nil {
			return nil, err
		}
		clause := ast.CaseClause{Pattern: head}
		if guardIdx := findKeyword(head, "if"); guardIdx >= 0 {
			clause.Pattern = strings.TrimSpace(head[:guardIdx])
			clause.Guard = strings.TrimSpace(head[guardIdx+2:])
		}
		if clause.Pattern == "" {
			return nil, p.errorf(cln.num, "expected pattern after 'case'")
		}
		p.pos++
		clause.Body, err = p.suite(caseIndent, cinline, cln.num, content)
		if err != nil {
			return nil, err
		}
		node.Cases = append(node.Cases, clause)
	}
	if len(node.Cases) == 0 {
		return nil, p.errorf(ln.num, "match statement has no cases")
	}
	return node, nil
}

func (p *Parser) parseWith(indent int, content bool) (ast.Stmt, error) {
	ln := p.lines[p.pos]
	head, inline, err := p.header(ln.text, "with", ln.num)
	if err != nil {
		return nil, err
	}
	node := &ast.With{BaseStmt: ast.BaseStmt{SourceLine: ln.num}}
	for _, part := range splitTopLevel(head, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, p.errorf(ln.num, "malformed with statement")
		}
		item := ast.WithItem{Expr: part}
		if asIdx := findKeyword(part, "as"); asIdx >= 0 {
			item.Expr = strings.TrimSpace(part[:asIdx])
			item.As = strings.TrimSpace(part[asIdx+2:])
		}
		node.Items = append(node.Items, item)
	}
	if len(node.Items) == 0 {
		return nil, p.errorf(ln.num, "with statement has no context managers")
	}
	p.pos++
	node.Body, err = p.suite(indent, inline, ln.num, content)
	return node, err
}

// findKeyword locates a bare keyword (surrounded by non-identifier bytes)
// at bracket depth 0 outside strings. Returns the byte offset or -1.
func findKeyword(s, kw string) int {
	return scanner.FindTopLevel(s, func(ch byte, pos int, src string) bool {
		if ch != kw[0] {
			return false
		}
		if pos+len(kw) > len(src) || src[pos:pos+len(kw)] != kw {
			return false
		}
		if pos > 0 && scanner.IsIdentByte(src[pos-1]) {
			return false
		}
		if pos+len(kw) < len(src) && scanner.IsIdentByte(src[pos+len(kw)]) {
			return false
		}
		return true
	})
}
