package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/config"
	"github.com/abramin/compatlens/internal/logging"
	"github.com/abramin/compatlens/internal/resolve"
)

// Indexer coordinates the checking pipeline: load packages, build the list
// index, resolve every reference.
type Indexer struct {
	cfg        *config.Config
	projectDir string
	lists      *catalog.Lazy
	logger     *slog.Logger
	observer   resolve.Observer
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger used by the pipeline.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) { ix.logger = l }
}

// WithObserver reports resolution events to o. When o also has an
// ObserveFindings(int) method it receives the number of diagnostics per run.
func WithObserver(o resolve.Observer) Option {
	return func(ix *Indexer) { ix.observer = o }
}

// NewIndexer creates a new indexer for the given project directory.
func NewIndexer(cfg *config.Config, projectDir string, lists *catalog.Lazy, opts ...Option) *Indexer {
	absPath, err := filepath.Abs(projectDir)
	if err != nil {
		absPath = projectDir
	}
	ix := &Indexer{
		cfg:        cfg,
		projectDir: absPath,
		lists:      lists,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger = logging.OrDiscard(ix.logger)
	return ix
}

// Result holds the results of a checking run.
type Result struct {
	ProjectDir   string        `json:"project_dir"`
	ListSource   string        `json:"list_source"`
	PackageCount int           `json:"package_count"`
	FileCount    int           `json:"file_count"`
	EntryCount   int           `json:"entry_count"`
	Diagnostics  []Diagnostic  `json:"diagnostics"`
	LoadErrors   []string      `json:"load_errors,omitempty"`
	CacheHits    uint64        `json:"cache_hits"`
	CacheMisses  uint64        `json:"cache_misses"`
	Duration     time.Duration `json:"duration"`
}

type findingsObserver interface {
	ObserveFindings(n int)
}

// Run executes the checking pipeline.
func (ix *Indexer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	// Build the index first; a broken list should fail before the slow load.
	idx, err := ix.lists.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	ix.logger.Info("list index ready", "source", ix.lists.Source(), "entries", idx.Len())

	ix.logger.Info("loading packages", "dir", ix.projectDir)
	loader := NewLoader(ix.cfg, ix.projectDir, ix.logger)
	if err := loader.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	pkgs := loader.Packages()
	ix.logger.Info("loaded packages", "count", len(pkgs))

	checker := NewChecker(loader.FileSet(), idx, CheckOptions{
		Workers:            ix.cfg.Analysis.Workers,
		MaxConstraintDepth: ix.cfg.Analysis.MaxConstraintDepth,
		NoCache:            ix.cfg.Analysis.NoCache,
		IgnoreDeprecated:   ix.cfg.Analysis.IgnoreDeprecated,
		Exclude:            loader.ShouldExcludeFile,
		IgnorePackage:      ix.cfg.IsIgnoredPackage,
		Observer:           ix.observer,
		Logger:             ix.logger,
	})
	diags, err := checker.Check(ctx, pkgs)
	if err != nil {
		return nil, err
	}

	if fo, ok := ix.observer.(findingsObserver); ok {
		fo.ObserveFindings(len(diags))
	}
	hits, misses := checker.CacheStats()
	ix.logger.Debug("resolver cache", "hits", hits, "misses", misses, "symbols", checker.Symbols().Len())

	return &Result{
		ProjectDir:   ix.projectDir,
		ListSource:   ix.lists.Source(),
		PackageCount: len(pkgs),
		FileCount:    loader.FileCount(),
		EntryCount:   idx.Len(),
		Diagnostics:  diags,
		LoadErrors:   loader.Errors(),
		CacheHits:    hits,
		CacheMisses:  misses,
		Duration:     time.Since(start),
	}, nil
}
