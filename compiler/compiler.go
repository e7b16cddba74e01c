// Package compiler lowers parsed plume modules into host source text.
// Markup nested in control flow desugars into accumulator-based
// procedural code; a post pass folds accumulators that provably hold one
// child back into direct expressions.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/plumelang/plume/ast"
	"github.com/plumelang/plume/parser"
)

// SourceExt is the extension of plume source files.
const SourceExt = ".plx"

// OutputExt is the extension of emitted host files.
const OutputExt = ".py"

// Compiler lowers the views of one compilation unit against a shared,
// read-only component registry.
type Compiler struct {
	file string
	reg  *registry
}

// compileModule lowers every view of a parsed module and emits the unit.
// Each render body owns a private accumulator counter, so units can be
// compiled concurrently as long as the registry is no longer mutated.
func (c *Compiler) compileModule(mod *ast.Module) (string, error) {
	lowered := make(map[string][]pyNode)
	for _, view := range mod.Views() {
		vc := c.newViewCompiler(view)
		body, err := vc.lowerBody()
		if err != nil {
			return "", err
		}
		lowered[view.Name] = optimize(body)
	}
	return c.emitModule(mod, lowered), nil
}

// Compile compiles a single self-contained unit: components it invokes
// must be declared in the same source text.
func Compile(file string, src []byte) (string, error) {
	b := NewBatch()
	if err := b.Add(file, src); err != nil {
		return "", err
	}
	results := b.Compile(context.Background())
	if results[0].Err != nil {
		return "", results[0].Err
	}
	return results[0].Code, nil
}

// Result is the outcome of compiling one unit in a batch.
type Result struct {
	Source string
	Code   string
	Err    error
}

// Batch compiles several units against one registry, so views in one
// file can invoke components declared in another. Add every unit before
// calling Compile; the registry is read-only from then on.
type Batch struct {
	reg  *registry
	mods []*ast.Module
	errs []Result // units that failed to parse or register
}

func NewBatch() *Batch {
	return &Batch{reg: newRegistry()}
}

// Add parses a unit and registers its views. A unit that fails to parse
// is recorded and excluded from compilation; other units still compile.
func (b *Batch) Add(file string, src []byte) error {
	var p parser.Parser
	mod, err := p.Parse(file, src)
	if err == nil {
		err = b.reg.addModule(mod)
	}
	if err != nil {
		b.errs = append(b.errs, Result{Source: file, Err: err})
		return err
	}
	b.mods = append(b.mods, mod)
	return nil
}

// Compile lowers every successfully added unit, in parallel. Failures
// are isolated per unit: one result per added source, in Add order, with
// parse failures first carrying their errors.
func (b *Batch) Compile(ctx context.Context) []Result {
	results := make([]Result, len(b.mods))
	g, ctx := errgroup.WithContext(ctx)
	for i, mod := range b.mods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Source: mod.SourceFile, Err: err}
				return nil
			}
			c := &Compiler{file: mod.SourceFile, reg: b.reg}
			code, err := c.compileModule(mod)
			results[i] = Result{Source: mod.SourceFile, Code: code, Err: err}
			return nil
		})
	}
	g.Wait()
	return append(append([]Result{}, b.errs...), results...)
}

// CompileFile compiles one source file from disk.
func CompileFile(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return Compile(path, src)
}

// OutputPath maps a source path to its emitted path.
func OutputPath(path string) string {
	return strings.TrimSuffix(path, SourceExt) + OutputExt
}

// CompileDir compiles every source file under dir and writes the emitted
// units next to their sources, or under outDir mirroring the source
// layout when outDir is non-empty. Units failing to compile are logged
// and skipped; the returned error joins the per-unit failures.
func CompileDir(ctx context.Context, dir, outDir string, log *slog.Logger) ([]Result, error) {
	if log == nil {
		log = slog.Default()
	}
	batch := NewBatch()
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != SourceExt {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := batch.Add(path, src); err != nil {
			log.Error("parse failed", "source", path, "err", err)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, walkErr)
	}

	results := batch.Compile(ctx)
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		out := OutputPath(res.Source)
		if outDir != "" {
			rel, err := filepath.Rel(dir, res.Source)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = filepath.Join(outDir, OutputPath(rel))
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		if err := os.WriteFile(out, []byte(res.Code), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", out, err))
			continue
		}
		log.Debug("compiled", "source", res.Source, "output", out)
	}
	return results, errors.Join(errs...)
}
