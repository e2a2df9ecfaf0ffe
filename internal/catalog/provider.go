package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/abramin/compatlens/internal/entity"
)

// ErrUnavailable is returned by Entries when a provider has no data to offer.
var ErrUnavailable = errors.New("catalog: provider unavailable")

// Provider supplies list entries from one source.
type Provider interface {
	// Available reports whether Entries can be expected to succeed.
	Available() bool
	// Source names the provider in errors and logs.
	Source() string
	Entries(ctx context.Context) ([]entity.Identifier, error)
}

// File reads a list file from disk. Files ending in .gz or .zst are
// decompressed transparently.
type File struct {
	Path string
}

func (f File) Available() bool {
	info, err := os.Stat(f.Path)
	return err == nil && !info.IsDir()
}

func (f File) Source() string { return f.Path }

func (f File) Entries(ctx context.Context) ([]entity.Identifier, error) {
	if !f.Available() {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrUnavailable)
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening list: %w", err)
	}
	defer file.Close()

	r, err := decompress(file, f.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadList(ctx, r, f.Path)
}

func decompress(r io.Reader, name string) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip list %s: %w", name, err)
		}
		return zr, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening zstd list %s: %w", name, err)
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}

// Embedded reads a list from a file system, typically one built with go:embed.
type Embedded struct {
	FS   fs.FS
	Name string
}

func (e Embedded) Available() bool {
	if e.FS == nil {
		return false
	}
	_, err := fs.Stat(e.FS, e.Name)
	return err == nil
}

func (e Embedded) Source() string { return "embedded:" + e.Name }

func (e Embedded) Entries(ctx context.Context) ([]entity.Identifier, error) {
	if !e.Available() {
		return nil, fmt.Errorf("%s: %w", e.Source(), ErrUnavailable)
	}
	f, err := e.FS.Open(e.Name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", e.Source(), err)
	}
	defer f.Close()

	r, err := decompress(f, e.Name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadList(ctx, r, e.Source())
}

// Static serves a fixed, already parsed list.
type Static struct {
	Name string
	List []entity.Identifier
}

func (s Static) Available() bool { return s.List != nil }

func (s Static) Source() string {
	if s.Name == "" {
		return "static"
	}
	return s.Name
}

func (s Static) Entries(ctx context.Context) ([]entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, fmt.Errorf("%s: %w", s.Source(), ErrUnavailable)
	}
	return s.List, nil
}

// Coalesce returns a provider that serves the entries of the first available
// provider, in argument order.
func Coalesce(providers ...Provider) Provider {
	return coalesce(providers)
}

type coalesce []Provider

func (c coalesce) first() Provider {
	for _, p := range c {
		if p != nil && p.Available() {
			return p
		}
	}
	return nil
}

func (c coalesce) Available() bool { return c.first() != nil }

func (c coalesce) Source() string {
	if p := c.first(); p != nil {
		return p.Source()
	}
	return "coalesce(none)"
}

func (c coalesce) Entries(ctx context.Context) ([]entity.Identifier, error) {
	p := c.first()
	if p == nil {
		return nil, fmt.Errorf("no list source: %w", ErrUnavailable)
	}
	return p.Entries(ctx)
}

// Union returns a provider that concatenates the entries of every available
// provider. Build resolves the resulting duplicates.
func Union(providers ...Provider) Provider {
	return union(providers)
}

type union []Provider

func (u union) Available() bool {
	for _, p := range u {
		if p != nil && p.Available() {
			return true
		}
	}
	return false
}

func (u union) Source() string {
	var names []string
	for _, p := range u {
		if p != nil && p.Available() {
			names = append(names, p.Source())
		}
	}
	return strings.Join(names, ",")
}

func (u union) Entries(ctx context.Context) ([]entity.Identifier, error) {
	var all []entity.Identifier
	found := false
	for _, p := range u {
		if p == nil || !p.Available() {
			continue
		}
		entries, err := p.Entries(ctx)
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = true
		all = append(all, entries...)
	}
	if !found {
		return nil, fmt.Errorf("no list source: %w", ErrUnavailable)
	}
	return all, nil
}
