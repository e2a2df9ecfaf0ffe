// Package catalog holds the read-only index of incompatible entities and the
// providers that feed it from list files, embedded data and the list store.
package catalog

import (
	"context"
	"slices"

	"github.com/abramin/compatlens/internal/entity"
)

// buildCheckInterval is how often BuildContext polls for cancellation.
const buildCheckInterval = 1024

// Index maps (kind, canonical ID) to the listed identifier. It is immutable
// once built and safe for concurrent readers.
type Index struct {
	byKind map[entity.Kind]map[string]*entity.Identifier
	total  int
}

// Build indexes entries. When the same (kind, ID) appears more than once, an
// unsupported entry supersedes a deprecated one; otherwise the first one wins.
func Build(entries []entity.Identifier) *Index {
	idx, _ := BuildContext(context.Background(), entries)
	return idx
}

// BuildContext is Build with cancellation. On cancellation it returns
// ctx.Err() and no index.
func BuildContext(ctx context.Context, entries []entity.Identifier) (*Index, error) {
	idx := &Index{byKind: make(map[entity.Kind]map[string]*entity.Identifier, len(entity.Kinds))}

	for i := range entries {
		if i%buildCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e := entries[i]
		if e.IsZero() || e.Kind() == entity.Undefined {
			continue
		}

		m := idx.byKind[e.Kind()]
		if m == nil {
			m = make(map[string]*entity.Identifier)
			idx.byKind[e.Kind()] = m
		}
		existing, ok := m[e.ID()]
		if !ok {
			m[e.ID()] = &e
			idx.total++
			continue
		}
		if existing.IsDeprecated() && !e.IsDeprecated() {
			m[e.ID()] = &e
		}
	}
	return idx, nil
}

// Lookup returns the entry listed under (kind, id).
func (x *Index) Lookup(kind entity.Kind, id string) (*entity.Identifier, bool) {
	if x == nil || id == "" {
		return nil, false
	}
	e, ok := x.byKind[kind][id]
	return e, ok
}

// Contains reports whether (kind, id) is listed.
func (x *Index) Contains(kind entity.Kind, id string) bool {
	_, ok := x.Lookup(kind, id)
	return ok
}

// Count returns the number of entries of one kind.
func (x *Index) Count(kind entity.Kind) int {
	if x == nil {
		return 0
	}
	return len(x.byKind[kind])
}

// Len returns the total number of entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.total
}

// Counts returns the entry count of every defined kind, zeros included.
func (x *Index) Counts() map[entity.Kind]int {
	counts := make(map[entity.Kind]int, len(entity.Kinds))
	for _, k := range entity.Kinds {
		counts[k] = x.Count(k)
	}
	return counts
}

// Entries returns the entries of one kind sorted by Compare.
func (x *Index) Entries(kind entity.Kind) []*entity.Identifier {
	if x == nil {
		return nil
	}
	m := x.byKind[kind]
	out := make([]*entity.Identifier, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entity.Identifier) int { return a.Compare(*b) })
	return out
}
