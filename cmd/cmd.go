// Package cmd implements the plume command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/plumelang/plume/compiler"
	"github.com/plumelang/plume/doc"
	"github.com/plumelang/plume/runtime"
)

// Execute runs the plume CLI with the given version string.
func Execute(version string) {
	cmd := &cli.Command{
		Name:                   "plume",
		Usage:                  "Compile plume markup views to host source",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to plume.yaml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Aliases: []string{"C"},
				Usage:   "Disable ANSI color output",
			},
		},
		// Allow `plume views/` as shorthand for `plume compile views/`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				return compileAction(ctx, cmd)
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "compile",
				Usage:     "Compile .plx sources and write .py output next to them",
				ArgsUsage: "[file.plx | directory]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory to write compiled output into",
					},
				},
				Action: compileAction,
			},
			{
				Name:      "emit",
				Usage:     "Print the generated source for one file to stdout",
				ArgsUsage: "<file.plx>",
				Action:    emitAction,
			},
			{
				Name:      "check",
				Usage:     "Parse and compile without writing output",
				ArgsUsage: "[file.plx | directory]",
				Action:    checkAction,
			},
			{
				Name:      "watch",
				Usage:     "Recompile sources whenever they change",
				ArgsUsage: "[directory]",
				Action:    watchAction,
			},
			{
				Name:      "doc",
				Usage:     "Show documentation extracted from view sources",
				ArgsUsage: "[file.plx | directory]",
				Action:    docAction,
			},
			{
				Name:      "runtime",
				Usage:     "Install the host runtime package into a directory",
				ArgsUsage: "[directory]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "print",
						Aliases: []string{"p"},
						Usage:   "Print the runtime source to stdout instead",
					},
				},
				Action: runtimeAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", colorRed(), colorReset(), err)
		os.Exit(1)
	}
}

var colorDisabled bool

func setupOutput(cmd *cli.Command, cfg *Config) {
	colorDisabled = cmd.Bool("no-color") || cfg.NoColor ||
		(!term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("PLUME_FORCE_COLOR") == "")

	level := slog.LevelInfo
	if cmd.Bool("verbose") || cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func colorRed() string {
	if colorDisabled {
		return ""
	}
	return "\x1b[31m"
}

func colorGreen() string {
	if colorDisabled {
		return ""
	}
	return "\x1b[32m"
}

func colorReset() string {
	if colorDisabled {
		return ""
	}
	return "\x1b[0m"
}

// resolveTarget picks the compile target from the command line, falling
// back to the configured source directory.
func resolveTarget(cmd *cli.Command, cfg *Config) string {
	if cmd.NArg() > 0 {
		return cmd.Args().First()
	}
	return cfg.SrcDir
}

func compileAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	setupOutput(cmd, cfg)
	outDir := cmd.String("output")
	if outDir == "" {
		outDir = cfg.OutDir
	}
	return compileTarget(ctx, resolveTarget(cmd, cfg), outDir, true)
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	setupOutput(cmd, cfg)
	return compileTarget(ctx, resolveTarget(cmd, cfg), "", false)
}

func emitAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	setupOutput(cmd, cfg)
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: plume emit <file%s>", compiler.SourceExt)
	}
	code, err := compiler.CompileFile(cmd.Args().First())
	if err != nil {
		return err
	}
	fmt.Print(code)
	return nil
}

// compileTarget compiles a file or directory. write=false checks only.
func compileTarget(ctx context.Context, target, outDir string, write bool) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if write {
			_, err := compiler.CompileDir(ctx, target, outDir, slog.Default())
			return err
		}
		return checkDir(ctx, target)
	}
	if filepath.Ext(target) != compiler.SourceExt {
		return fmt.Errorf("%s is not a %s file", target, compiler.SourceExt)
	}
	code, err := compiler.CompileFile(target)
	if err != nil {
		return err
	}
	if !write {
		return nil
	}
	out := compiler.OutputPath(target)
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		out = filepath.Join(outDir, filepath.Base(out))
	}
	if err := os.WriteFile(out, []byte(code), 0o644); err != nil {
		return err
	}
	slog.Debug("compiled", "source", target, "output", out)
	return nil
}

func docAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	setupOutput(cmd, cfg)

	target := resolveTarget(cmd, cfg)
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	var fd *doc.FileDoc
	if info.IsDir() {
		fd, err = doc.ExtractDir(target)
	} else {
		fd, err = doc.ExtractFile(target)
	}
	if err != nil {
		return err
	}
	fmt.Print(doc.FormatFile(fd))
	return nil
}

func runtimeAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("print") {
		fmt.Print(string(runtime.Source()))
		return nil
	}
	dir := "."
	if cmd.NArg() > 0 {
		dir = cmd.Args().First()
	}
	return runtime.Install(dir)
}

// checkDir compiles every unit under dir without writing, reporting all
// failures instead of stopping at the first.
func checkDir(ctx context.Context, dir string) error {
	batch := compiler.NewBatch()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != compiler.SourceExt {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		batch.Add(path, src)
		return nil
	})
	if err != nil {
		return err
	}
	var failed []string
	for _, res := range batch.Compile(ctx) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", res.Err)
			failed = append(failed, res.Source)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d unit(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	fmt.Fprintf(os.Stderr, "%sok%s\n", colorGreen(), colorReset())
	return nil
}
