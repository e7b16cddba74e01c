package parser

import (
	"errors"
	"strings"

	"github.com/plumelang/plume/ast"
	"github.com/plumelang/plume/scanner"
)

// errOpenTagContinues signals that an open tag runs past the end of the
// line and the next source line should be joined before rescanning.
var errOpenTagContinues = errors.New("open tag continues on next line")

// openTag is a scanned open (or self-closing) tag.
type openTag struct {
	name        string // "" for a fragment <>
	attrs       []ast.Attr
	selfClosing bool
	end         int // offset just past the closing '>'
}

// parseMarkupLine parses an element whose open tag starts the current
// line. An open tag may span several lines; everything else about the
// element is either inline on the open-tag line or an indented block
// closed by a matching tag at the element's own indent.
func (p *Parser) parseMarkupLine(indent int) (ast.Stmt, error) {
	ln := p.lines[p.pos]
	text := ln.text
	p.pos++

	tag, err := p.scanOpenTag(text, 0, ln.num)
	for errors.Is(err, errOpenTagContinues) {
		if p.pos >= len(p.lines) {
			return nil, p.errorf(ln.num, "unterminated open tag")
		}
		text = text + " " + p.lines[p.pos].text
		p.pos++
		tag, err = p.scanOpenTag(text, 0, ln.num)
	}
	if err != nil {
		return nil, err
	}

	if tag.selfClosing {
		if strings.TrimSpace(text[tag.end:]) != "" {
			return nil, p.errorf(ln.num, "unexpected content after self-closing tag")
		}
		return p.makeNode(tag, nil, ln.num)
	}

	// Inline form: close tag on the same line.
	if strings.TrimSpace(text[tag.end:]) != "" {
		children, pos, err := p.parseInlineContent(text, tag.end, ln.num)
		if err != nil {
			return nil, err
		}
		name, end, ok := scanCloseTag(text, pos)
		if !ok {
			return nil, p.errorf(ln.num, "expected closing tag %s", closeTagText(tag.name))
		}
		if name != tag.name {
			return nil, p.errorf(ln.num, "closing tag %s does not match %s", closeTagText(name), openTagText(tag.name))
		}
		if strings.TrimSpace(text[end:]) != "" {
			return nil, p.errorf(ln.num, "unexpected content after closing tag")
		}
		return p.makeNode(tag, children, ln.num)
	}

	// Block form: indented content, then a closing tag back at the
	// element's indent.
	var children []ast.Stmt
	if p.pos < len(p.lines) && p.lines[p.pos].indent > indent && !strings.HasPrefix(p.lines[p.pos].text, "</") {
		children, err = p.parseBlock(p.lines[p.pos].indent, true)
		if err != nil {
			return nil, err
		}
	}
	if p.pos >= len(p.lines) {
		return nil, p.errorf(ln.num, "missing closing tag %s", closeTagText(tag.name))
	}
	cl := p.lines[p.pos]
	name, end, ok := scanCloseTag(cl.text, 0)
	if !ok || strings.TrimSpace(cl.text[end:]) != "" {
		return nil, p.errorf(cl.num, "expected closing tag %s", closeTagText(tag.name))
	}
	if name != tag.name {
		return nil, p.errorf(cl.num, "closing tag %s does not match %s opened on line %d", closeTagText(name), openTagText(tag.name), ln.num)
	}
	if cl.indent > indent {
		return nil, p.errorf(cl.num, "closing tag %s is indented past its open tag", closeTagText(tag.name))
	}
	p.pos++
	return p.makeNode(tag, children, ln.num)
}

// parseInlineElement parses a complete element starting at text[pos],
// entirely contained in the line. Nested elements must close on the same
// line. Returns the node and the offset just past it.
func (p *Parser) parseInlineElement(text string, pos, lineNum int) (ast.Stmt, int, error) {
	tag, err := p.scanOpenTag(text, pos, lineNum)
	if err != nil {
		if errors.Is(err, errOpenTagContinues) {
			return nil, 0, p.errorf(lineNum, "unterminated open tag")
		}
		return nil, 0, err
	}
	if tag.selfClosing {
		node, err := p.makeNode(tag, nil, lineNum)
		return node, tag.end, err
	}
	children, cur, err := p.parseInlineContent(text, tag.end, lineNum)
	if err != nil {
		return nil, 0, err
	}
	name, end, ok := scanCloseTag(text, cur)
	if !ok {
		return nil, 0, p.errorf(lineNum, "expected closing tag %s", closeTagText(tag.name))
	}
	if name != tag.name {
		return nil, 0, p.errorf(lineNum, "closing tag %s does not match %s", closeTagText(name), openTagText(tag.name))
	}
	node, err := p.makeNode(tag, children, lineNum)
	return node, end, err
}

// parseInlineContent parses element content on a single line up to (not
// including) the next closing tag at this nesting level. Content is a mix
// of literal text, {expr} interpolations, and nested inline elements.
func (p *Parser) parseInlineContent(text string, pos, lineNum int) ([]ast.Stmt, int, error) {
	var stmts []ast.Stmt
	var segs []ast.TextSegment
	var lit strings.Builder

	flushLit := func() {
		if lit.Len() > 0 {
			segs = append(segs, ast.TextSegment{Literal: lit.String()})
			lit.Reset()
		}
	}
	// Whitespace-only runs between tags are dropped; anything else keeps
	// its spacing verbatim.
	flushText := func() {
		flushLit()
		blank := true
		for _, seg := range segs {
			if seg.Expr != "" || strings.TrimSpace(seg.Literal) != "" {
				blank = false
				break
			}
		}
		if !blank {
			stmts = append(stmts, &ast.Text{BaseStmt: ast.BaseStmt{SourceLine: lineNum}, Segments: segs})
		}
		segs = nil
	}

	for pos < len(text) {
		ch := text[pos]
		switch {
		case ch == '<' && pos+1 < len(text) && text[pos+1] == '/':
			flushText()
			return mergeTexts(stmts), pos, nil
		case ch == '<' && startsTag(text, pos):
			flushText()
			node, end, err := p.parseInlineElement(text, pos, lineNum)
			if err != nil {
				return nil, 0, err
			}
			stmts = append(stmts, node)
			pos = end
		case ch == '{' && pos+1 < len(text) && text[pos+1] == '{':
			lit.WriteByte('{')
			pos += 2
		case ch == '}' && pos+1 < len(text) && text[pos+1] == '}':
			lit.WriteByte('}')
			pos += 2
		case ch == '{':
			end := scanner.MatchBrace(text, pos)
			if end < 0 {
				return nil, 0, p.errorf(lineNum, "unterminated interpolation")
			}
			expr := strings.TrimSpace(text[pos+1 : end])
			if expr == "" {
				return nil, 0, p.errorf(lineNum, "empty interpolation")
			}
			flushLit()
			segs = append(segs, ast.TextSegment{Expr: expr})
			pos = end + 1
		default:
			lit.WriteByte(ch)
			pos++
		}
	}
	flushText()
	return mergeTexts(stmts), pos, nil
}

// textSegments parses a content-mode text line into literal and
// interpolation segments.
func (p *Parser) textSegments(text string, lineNum int) ([]ast.TextSegment, error) {
	var segs []ast.TextSegment
	var lit strings.Builder
	pos := 0
	for pos < len(text) {
		ch := text[pos]
		switch {
		case ch == '{' && pos+1 < len(text) && text[pos+1] == '{':
			lit.WriteByte('{')
			pos += 2
		case ch == '}' && pos+1 < len(text) && text[pos+1] == '}':
			lit.WriteByte('}')
			pos += 2
		case ch == '{':
			end := scanner.MatchBrace(text, pos)
			if end < 0 {
				return nil, p.errorf(lineNum, "unterminated interpolation")
			}
			expr := strings.TrimSpace(text[pos+1 : end])
			if expr == "" {
				return nil, p.errorf(lineNum, "empty interpolation")
			}
			if lit.Len() > 0 {
				segs = append(segs, ast.TextSegment{Literal: lit.String()})
				lit.Reset()
			}
			segs = append(segs, ast.TextSegment{Expr: expr})
			pos = end + 1
		default:
			lit.WriteByte(ch)
			pos++
		}
	}
	if lit.Len() > 0 {
		segs = append(segs, ast.TextSegment{Literal: lit.String()})
	}
	return segs, nil
}

// startsTag reports whether text[pos] begins an open tag rather than a
// literal '<' in text: '<' followed by a tag name start or a fragment.
func startsTag(text string, pos int) bool {
	if pos+1 >= len(text) {
		return false
	}
	next := text[pos+1]
	return scanner.IsIdentStart(next) || next == '>'
}

// scanOpenTag scans an open or self-closing tag at text[pos]. Returns
// errOpenTagContinues when the tag is not terminated on this line.
func (p *Parser) scanOpenTag(text string, pos, lineNum int) (openTag, error) {
	pos++ // past '<'
	if pos < len(text) && text[pos] == '>' {
		return openTag{name: "", end: pos + 1}, nil
	}
	nameStart := pos
	for pos < len(text) && isTagNameByte(text[pos]) {
		pos++
	}
	if pos == nameStart {
		return openTag{}, p.errorf(lineNum, "expected tag name after '<'")
	}
	tag := openTag{name: text[nameStart:pos]}

	for {
		for pos < len(text) && text[pos] == ' ' {
			pos++
		}
		if pos >= len(text) {
			return openTag{}, errOpenTagContinues
		}
		switch text[pos] {
		case '>':
			tag.end = pos + 1
			return tag, nil
		case '/':
			if pos+1 >= len(text) || text[pos+1] != '>' {
				return openTag{}, p.errorf(lineNum, "expected '>' after '/' in tag %s", openTagText(tag.name))
			}
			tag.selfClosing = true
			tag.end = pos + 2
			return tag, nil
		}
		attr, next, err := p.scanAttr(text, pos, lineNum, tag.name)
		if err != nil {
			return openTag{}, err
		}
		tag.attrs = append(tag.attrs, attr)
		pos = next
	}
}

// scanAttr scans one attribute: a bare name, name="text", name='text',
// or name={expr}.
func (p *Parser) scanAttr(text string, pos, lineNum int, tagName string) (ast.Attr, int, error) {
	if !scanner.IsIdentStart(text[pos]) {
		return ast.Attr{}, 0, p.errorf(lineNum, "unexpected %q in tag %s", string(text[pos]), openTagText(tagName))
	}
	nameStart := pos
	for pos < len(text) && isAttrNameByte(text[pos]) {
		pos++
	}
	attr := ast.Attr{Name: text[nameStart:pos], Line: lineNum}

	if pos >= len(text) || text[pos] != '=' {
		return attr, pos, nil // bare boolean attribute
	}
	pos++
	if pos >= len(text) {
		return ast.Attr{}, 0, errOpenTagContinues
	}
	switch text[pos] {
	case '"', '\'':
		quote := text[pos]
		end := pos + 1
		for end < len(text) && text[end] != quote {
			end++
		}
		if end >= len(text) {
			return ast.Attr{}, 0, errOpenTagContinues
		}
		attr.Value = &ast.ConstAttr{Text: text[pos+1 : end], IsString: true}
		return attr, end + 1, nil
	case '{':
		end := scanner.MatchBrace(text, pos)
		if end < 0 {
			return ast.Attr{}, 0, errOpenTagContinues
		}
		expr := strings.TrimSpace(text[pos+1 : end])
		if expr == "" {
			return ast.Attr{}, 0, p.errorf(lineNum, "empty attribute expression for %q", attr.Name)
		}
		attr.Value = attrExprValue(expr)
		return attr, end + 1, nil
	default:
		return ast.Attr{}, 0, p.errorf(lineNum, "attribute %q needs a quoted string or {expression} value", attr.Name)
	}
}

// attrExprValue classifies a braced attribute expression: bare literals
// stay constant, everything else is dynamic.
func attrExprValue(expr string) ast.AttrValue {
	if expr == "True" || expr == "False" || expr == "None" || isNumber(expr) {
		return &ast.ConstAttr{Text: expr}
	}
	if len(expr) >= 2 {
		if q := expr[0]; (q == '"' || q == '\'') && expr[len(expr)-1] == q &&
			!scanner.IsInsideString(expr, len(expr)-1) &&
			strings.IndexByte(expr[1:len(expr)-1], q) < 0 {
			return &ast.ConstAttr{Text: expr[1 : len(expr)-1], IsString: true}
		}
	}
	return &ast.DynAttr{Expr: expr}
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' {
		i = 1
		if len(s) == 1 {
			return false
		}
	}
	dot := false
	for ; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
		case s[i] == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// scanCloseTag scans `</name>` or `</>` at text[pos]. Reports ok=false
// when no closing tag starts there.
func scanCloseTag(text string, pos int) (name string, end int, ok bool) {
	if pos+1 >= len(text) || text[pos] != '<' || text[pos+1] != '/' {
		return "", 0, false
	}
	pos += 2
	nameStart := pos
	for pos < len(text) && isTagNameByte(text[pos]) {
		pos++
	}
	if pos >= len(text) || text[pos] != '>' {
		return "", 0, false
	}
	return text[nameStart:pos], pos + 1, true
}

func isTagNameByte(ch byte) bool {
	return scanner.IsIdentByte(ch) || ch == '-'
}

func isAttrNameByte(ch byte) bool {
	return scanner.IsIdentByte(ch) || ch == '-' || ch == ':'
}

func openTagText(name string) string {
	if name == "" {
		return "<>"
	}
	return "<" + name + ">"
}

func closeTagText(name string) string {
	if name == "" {
		return "</>"
	}
	return "</" + name + ">"
}

// makeNode builds the AST node for a scanned tag: slots and templates are
// recognized by name, components by a leading capital letter.
func (p *Parser) makeNode(tag openTag, children []ast.Stmt, lineNum int) (ast.Stmt, error) {
	base := ast.BaseStmt{SourceLine: lineNum}
	switch {
	case tag.name == "":
		return &ast.Fragment{BaseStmt: base, Children: children}, nil
	case tag.name == "slot":
		slot := &ast.Slot{BaseStmt: base, Name: "children", Fallback: children}
		for _, a := range tag.attrs {
			if a.Name != "name" {
				return nil, p.errorf(lineNum, "slot tag does not take attribute %q", a.Name)
			}
			c, ok := a.Value.(*ast.ConstAttr)
			if !ok || !c.IsString || !isIdent(c.Text) {
				return nil, p.errorf(lineNum, "slot name must be a quoted identifier")
			}
			slot.Name = c.Text
		}
		return slot, nil
	case tag.name == "template":
		tmpl := &ast.Template{BaseStmt: base, Children: children}
		for _, a := range tag.attrs {
			if a.Name != "slot" {
				return nil, p.errorf(lineNum, "template tag does not take attribute %q", a.Name)
			}
			c, ok := a.Value.(*ast.ConstAttr)
			if !ok || !c.IsString || !isIdent(c.Text) {
				return nil, p.errorf(lineNum, "template slot must be a quoted identifier")
			}
			tmpl.SlotName = c.Text
		}
		if tmpl.SlotName == "" {
			return nil, p.errorf(lineNum, "template tag requires a slot attribute")
		}
		return tmpl, nil
	case tag.name[0] >= 'A' && tag.name[0] <= 'Z':
		return &ast.ComponentCall{BaseStmt: base, Name: tag.name, Attrs: tag.attrs, Children: children}, nil
	default:
		return &ast.Element{BaseStmt: base, Tag: tag.name, Attrs: tag.attrs, Children: children, SelfClosing: tag.selfClosing}, nil
	}
}
