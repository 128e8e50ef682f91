package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aleics/gql-dyn/internal/ir"
)

// Provider supplies the kind catalog a schema is generated from.
// Implementations may return a different Configuration on every call;
// each schema build takes its own snapshot.
type Provider interface {
	Provide(ctx context.Context) (ir.Configuration, error)
}

// StaticProvider always returns the same catalog.
type StaticProvider struct {
	Config ir.Configuration
}

// Provide returns a deep copy of the fixed catalog.
func (p StaticProvider) Provide(_ context.Context) (ir.Configuration, error) {
	return p.Config.Clone(), nil
}

// FileProvider re-reads and compiles a catalog file on every call, so
// callers observe edits without a restart.
type FileProvider struct {
	Path string
}

// Provide compiles the catalog at p.Path.
func (p FileProvider) Provide(ctx context.Context) (ir.Configuration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := LoadFile(p.Path)
	if err != nil {
		return nil, err
	}
	slog.Debug("catalog loaded", "path", p.Path, "kinds", len(cfg))
	return cfg, nil
}

// LoadFile compiles a catalog, picking the format from the extension:
// .cue, .yaml/.yml, .toml or .json. A directory is loaded as a CUE package.
func LoadFile(path string) (ir.Configuration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &CompileError{Field: "path", Message: fmt.Sprintf("catalog not found: %s", path)}
	}
	if info.IsDir() {
		return CompileCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		return CompileCUEBytes(path, data)
	case ".yaml", ".yml":
		return CompileYAML(data)
	case ".toml":
		return CompileTOML(data)
	case ".json":
		return CompileJSON(data)
	default:
		return nil, &CompileError{
			Field:   "path",
			Message: fmt.Sprintf("unsupported catalog format %q (want .cue, .yaml, .toml or .json)", ext),
		}
	}
}
