package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/plumelang/plume/compiler"
)

func watchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	setupOutput(cmd, cfg)

	dir := resolveTarget(cmd, cfg)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target %s is not a directory", dir)
	}
	return watch(ctx, dir, cfg.OutDir, time.Duration(cfg.DebounceMs)*time.Millisecond)
}

// watch recompiles the directory whenever a source file changes. Bursts
// of events settle for the debounce interval before a rebuild, and new
// subdirectories are added to the watch as they appear.
func watch(ctx context.Context, dir, outDir string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, dir); err != nil {
		return err
	}
	slog.Info("watching", "dir", dir)

	rebuild := func() {
		if _, err := compiler.CompileDir(ctx, dir, outDir, slog.Default()); err != nil {
			fmt.Fprintf(os.Stderr, "%s%v%s\n", colorRed(), err, colorReset())
			return
		}
		fmt.Fprintf(os.Stderr, "%sok%s\n", colorGreen(), colorReset())
	}
	rebuild()

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					addDirs(watcher, event.Name)
				}
			}
			if filepath.Ext(event.Name) != compiler.SourceExt {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
				!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			slog.Debug("changed", "file", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch error", "err", err)
		case <-pending:
			rebuild()
		}
	}
}

// addDirs registers dir and every subdirectory with the watcher.
func addDirs(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
