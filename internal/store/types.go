package store

import "time"

// Entity is one stored list row.
type Entity struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	Raw        string `json:"raw"`
	Deprecated bool   `json:"deprecated"`
	Source     string `json:"source"`
}

// Source describes one imported list.
type Source struct {
	Name       string    `json:"name"`
	EntryCount int       `json:"entry_count"`
	ImportedAt time.Time `json:"imported_at"`
}

// ImportResult summarizes one Import call.
type ImportResult struct {
	Source string `json:"source"`
	// Written counts new rows and deprecated rows replaced by unsupported ones.
	Written int `json:"written"`
	// Kept counts entries that lost against an existing row.
	Kept int `json:"kept"`
}

// Stats holds statistics about the stored lists.
type Stats struct {
	EntityCount     int            `json:"entity_count"`
	DeprecatedCount int            `json:"deprecated_count"`
	SourceCount     int            `json:"source_count"`
	ByKind          map[string]int `json:"by_kind"`
	ImportedAt      time.Time      `json:"imported_at"`
}
