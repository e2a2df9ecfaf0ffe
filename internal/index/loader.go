package index

import (
	"context"
	"fmt"
	"go/token"
	"log/slog"
	"path/filepath"

	"golang.org/x/tools/go/packages"

	"github.com/abramin/compatlens/internal/config"
	"github.com/abramin/compatlens/internal/logging"
)

// LoadMode defines the packages.Load mode required for checking.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedModule

// Loader handles loading Go packages for analysis.
type Loader struct {
	cfg        *config.Config
	projectDir string
	fset       *token.FileSet
	logger     *slog.Logger
	pkgs       []*packages.Package
	errs       []string
}

// NewLoader creates a new package loader.
func NewLoader(cfg *config.Config, projectDir string, logger *slog.Logger) *Loader {
	return &Loader{
		cfg:        cfg,
		projectDir: projectDir,
		fset:       token.NewFileSet(),
		logger:     logging.OrDiscard(logger),
	}
}

// Load loads all Go packages below the project directory.
func (l *Loader) Load(ctx context.Context) error {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    LoadMode,
		Dir:     l.projectDir,
		Fset:    l.fset,
		Tests:   l.cfg.Analysis.Tests,
	}

	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("loading packages: %w", err)
	}

	var filtered []*packages.Package
	for _, pkg := range pkgs {
		if l.shouldExcludePackage(pkg) {
			l.logger.Debug("excluding package", "pkg", pkg.PkgPath)
			continue
		}
		filtered = append(filtered, pkg)
	}
	l.pkgs = filtered

	// Loading errors are reported but do not stop the check; type
	// information is still available for the parts that did load.
	l.errs = nil
	packages.Visit(l.pkgs, nil, func(pkg *packages.Package) {
		for _, err := range pkg.Errors {
			l.errs = append(l.errs, fmt.Sprintf("%s: %s", pkg.PkgPath, err.Msg))
		}
	})
	if len(l.errs) > 0 {
		l.logger.Warn("package loading errors", "count", len(l.errs))
		for _, msg := range l.errs[:min(5, len(l.errs))] {
			l.logger.Warn("load error", "error", msg)
		}
	}

	return nil
}

// shouldExcludePackage reports packages living in an excluded directory.
func (l *Loader) shouldExcludePackage(pkg *packages.Package) bool {
	dir := packageDir(pkg)
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(l.projectDir, dir)
	if err != nil {
		return false
	}
	return l.cfg.IsExcludedDir(rel)
}

// Packages returns the loaded packages.
func (l *Loader) Packages() []*packages.Package {
	return l.pkgs
}

// FileSet returns the file set used for parsing.
func (l *Loader) FileSet() *token.FileSet {
	return l.fset
}

// Errors returns the package errors seen by the last Load.
func (l *Loader) Errors() []string {
	return l.errs
}

// ShouldExcludeFile checks if a file should be left out of the check.
func (l *Loader) ShouldExcludeFile(file string) bool {
	return l.cfg.IsExcludedFile(l.projectDir, file)
}

// FileCount returns the number of checked files.
func (l *Loader) FileCount() int {
	n := 0
	for _, pkg := range l.pkgs {
		for _, file := range pkg.Syntax {
			if !l.ShouldExcludeFile(l.fset.Position(file.Pos()).Filename) {
				n++
			}
		}
	}
	return n
}

// packageDir returns the directory of a package.
func packageDir(pkg *packages.Package) string {
	if len(pkg.GoFiles) > 0 {
		return filepath.Dir(pkg.GoFiles[0])
	}
	if len(pkg.OtherFiles) > 0 {
		return filepath.Dir(pkg.OtherFiles[0])
	}
	return ""
}
