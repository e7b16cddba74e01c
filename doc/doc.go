// Package doc extracts documentation from plume source files.
//
// It works on raw .plx source: the compiler strips comments during line
// splitting, so documentation has to be read before parsing. The
// extraction rule is simple: consecutive # lines immediately before a
// view declaration (no blank line gap) are attached as that view's doc
// comment, and the first # block before any code documents the file.
package doc

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDoc holds all extracted documentation for one plume file.
type FileDoc struct {
	Path  string
	Doc   string // file-level doc (first # block before any code)
	Views []ViewDoc
}

// ViewDoc describes a documented view.
type ViewDoc struct {
	Name   string
	Params string // raw parameter list text
	Doc    string
	Line   int // 1-based line number of the view keyword
}

// ExtractFile reads a plume file and extracts all documentation.
func ExtractFile(path string) (*FileDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Extract(string(data), path), nil
}

// ExtractDir aggregates documentation from every plume file directly in
// dir. The first file's doc becomes the top-level doc.
func ExtractDir(dir string) (*FileDoc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	result := &FileDoc{Path: dir}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".plx" {
			continue
		}
		fd, err := ExtractFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if result.Doc == "" {
			result.Doc = fd.Doc
		}
		result.Views = append(result.Views, fd.Views...)
	}
	return result, nil
}

// Extract parses raw plume source and returns structured documentation.
func Extract(src, path string) *FileDoc {
	fd := &FileDoc{Path: path}
	lines := strings.Split(src, "\n")

	var commentBlock []string
	seenCode := false

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "#"):
			text := strings.TrimPrefix(trimmed, "#")
			text = strings.TrimPrefix(text, " ")
			commentBlock = append(commentBlock, text)

		case trimmed == "":
			// A blank line detaches the pending block. The first block
			// of the file becomes the file doc.
			if len(commentBlock) > 0 && !seenCode && fd.Doc == "" {
				fd.Doc = strings.Join(commentBlock, "\n")
			}
			commentBlock = nil

		case strings.HasPrefix(trimmed, "view ") || strings.HasPrefix(trimmed, "view\t"):
			name, params := splitViewHeader(trimmed)
			fd.Views = append(fd.Views, ViewDoc{
				Name:   name,
				Params: params,
				Doc:    strings.Join(commentBlock, "\n"),
				Line:   lineNum,
			})
			commentBlock = nil
			seenCode = true

		default:
			commentBlock = nil
			seenCode = true
		}
	}
	return fd
}

// splitViewHeader pulls the view name and parameter text out of a
// `view Name(params):` line.
func splitViewHeader(line string) (name, params string) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "view"), "\t"))
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return strings.TrimSuffix(rest, ":"), ""
	}
	name = strings.TrimSpace(rest[:open])
	closeIdx := strings.LastIndexByte(rest, ')')
	if closeIdx > open {
		params = strings.TrimSpace(rest[open+1 : closeIdx])
	}
	return name, params
}
