// Package runtime embeds the host-side support library that emitted
// modules import as plume.runtime.
package runtime

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed runtime.py
var source []byte

// Source returns the runtime library text.
func Source() []byte {
	return source
}

// Install writes the runtime as an importable plume package under dir:
// dir/plume/__init__.py and dir/plume/runtime.py.
func Install(dir string) error {
	pkg := filepath.Join(dir, "plume")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", pkg, err)
	}
	if err := os.WriteFile(filepath.Join(pkg, "__init__.py"), nil, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(pkg, "runtime.py"), source, 0o644); err != nil {
		return err
	}
	return nil
}
