package catalog

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/abramin/compatlens/internal/logging"
)

//go:embed data/default.txt
var defaultLists embed.FS

// DefaultListName is the path of the built-in list inside the embedded FS.
const DefaultListName = "data/default.txt"

// DefaultProvider serves the list compiled into the binary.
func DefaultProvider() Provider {
	return Embedded{FS: defaultLists, Name: DefaultListName}
}

// Lazy builds an Index from a provider on first use and then serves the same
// index to every caller. A failed build is not remembered; the next caller
// tries again.
type Lazy struct {
	provider Provider
	logger   *slog.Logger
	onBuild  func(idx *Index, took time.Duration)

	// sem is a lock that can be abandoned when ctx is done.
	sem   *semaphore.Weighted
	index atomic.Pointer[Index]
}

// LazyOption configures a Lazy.
type LazyOption func(*Lazy)

// WithLogger sets the logger used to report builds.
func WithLogger(l *slog.Logger) LazyOption {
	return func(z *Lazy) { z.logger = l }
}

// OnBuild registers a hook that runs once after a successful build.
func OnBuild(fn func(idx *Index, took time.Duration)) LazyOption {
	return func(z *Lazy) { z.onBuild = fn }
}

// NewLazy returns a Lazy over p.
func NewLazy(p Provider, opts ...LazyOption) *Lazy {
	z := &Lazy{
		provider: p,
		sem:      semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(z)
	}
	z.logger = logging.OrDiscard(z.logger)
	return z
}

// Get returns the index, building it if needed. It blocks until the build
// completes.
func (z *Lazy) Get() (*Index, error) {
	return z.GetContext(context.Background())
}

// GetContext is Get with cancellation. A caller that gives up while another
// goroutine is building leaves that build running.
func (z *Lazy) GetContext(ctx context.Context) (*Index, error) {
	if idx := z.index.Load(); idx != nil {
		return idx, nil
	}
	if err := z.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer z.sem.Release(1)

	if idx := z.index.Load(); idx != nil {
		return idx, nil
	}

	start := time.Now()
	entries, err := z.provider.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading list from %s: %w", z.provider.Source(), err)
	}
	idx, err := BuildContext(ctx, entries)
	if err != nil {
		return nil, err
	}
	took := time.Since(start)
	z.index.Store(idx)

	z.logger.Info("incompatibility index built",
		"source", z.provider.Source(),
		"entries", idx.Len(),
		"duration", took)
	if z.onBuild != nil {
		z.onBuild(idx, took)
	}
	return idx, nil
}

// Loaded reports whether the index has been built.
func (z *Lazy) Loaded() bool {
	return z.index.Load() != nil
}

// Source names the underlying provider.
func (z *Lazy) Source() string {
	return z.provider.Source()
}

var defaultLazy = sync.OnceValue(func() *Lazy {
	return NewLazy(DefaultProvider())
})

// Default returns the process-wide Lazy over the built-in list.
func Default() *Lazy {
	return defaultLazy()
}
