package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/entity"
)

func parseAll(t *testing.T, raws ...string) []entity.Identifier {
	t.Helper()
	var out []entity.Identifier
	for _, raw := range raws {
		id, err := entity.Parse(raw)
		if err != nil {
			t.Fatalf("parsing %q: %v", raw, err)
		}
		out = append(out, id)
	}
	return out
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenAndClose(t *testing.T) {
	tmpDir := t.TempDir()

	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	// Verify .compatlens directory was created
	storeDir := filepath.Join(tmpDir, ".compatlens")
	if _, err := os.Stat(storeDir); os.IsNotExist(err) {
		t.Error(".compatlens directory was not created")
	}

	dbPath := filepath.Join(storeDir, "lists.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("lists.db was not created")
	}
	if st.DBPath() != dbPath {
		t.Errorf("expected DBPath %s, got %s", dbPath, st.DBPath())
	}

	if err := st.Close(); err != nil {
		t.Errorf("failed to close store: %v", err)
	}
}

func TestImportAndEntries(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	res, err := st.Import(ctx, parseAll(t, "N:plugin", "T:os/exec-Cmd", "M:os/exec-Command", "M:strings-Title O"), "wasm.txt")
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	if res.Written != 4 || res.Kept != 0 {
		t.Errorf("expected 4 written, 0 kept, got %+v", res)
	}

	entries, err := st.Entries(ctx)
	if err != nil {
		t.Fatalf("failed to read entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	idx := catalog.Build(entries)
	if !idx.Contains(entity.Method, "M:os/exec.Command") {
		t.Error("expected os/exec.Command to round-trip through the store")
	}
	title, ok := idx.Lookup(entity.Method, "M:strings.Title")
	if !ok || !title.IsDeprecated() {
		t.Error("expected strings.Title to stay deprecated")
	}
}

func TestImportSupersedeRule(t *testing.T) {
	tests := []struct {
		name  string
		first string
		then  string
		kept  int
	}{
		{"unsupported replaces deprecated", "T:ns-A O", "T:ns-A", 0},
		{"deprecated does not replace unsupported", "T:ns-A", "T:ns-A O", 1},
		{"first unsupported wins", "T:ns-A", "T:ns-A", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := openTemp(t)
			ctx := context.Background()

			if _, err := st.Import(ctx, parseAll(t, tt.first), "first.txt"); err != nil {
				t.Fatalf("first import: %v", err)
			}
			res, err := st.Import(ctx, parseAll(t, tt.then), "second.txt")
			if err != nil {
				t.Fatalf("second import: %v", err)
			}
			if res.Kept != tt.kept {
				t.Errorf("expected %d kept, got %d", tt.kept, res.Kept)
			}

			row, err := st.Lookup(ctx, entity.Type, "T:ns.A")
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if row.Deprecated {
				t.Error("expected the stored entry to be unsupported")
			}
			wantSource := "first.txt"
			if tt.kept == 0 {
				wantSource = "second.txt"
			}
			if row.Source != wantSource {
				t.Errorf("expected source %s, got %s", wantSource, row.Source)
			}
		})
	}
}

func TestImportCancelled(t *testing.T) {
	st := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := st.Import(ctx, parseAll(t, "N:plugin"), "x.txt"); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.EntityCount != 0 {
		t.Errorf("expected nothing committed, got %d entities", stats.EntityCount)
	}
}

func TestLookupMissing(t *testing.T) {
	st := openTemp(t)
	_, err := st.Lookup(context.Background(), entity.Type, "T:ns.Missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestEntriesReportsCorruptRows(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	if _, err := st.Import(ctx, parseAll(t, "N:plugin"), "a.txt"); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := st.DB().Exec("UPDATE entities SET raw = 'garbage'"); err != nil {
		t.Fatalf("corrupting row: %v", err)
	}

	_, err := st.Entries(ctx)
	var parseErr *catalog.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *catalog.ParseError, got %v", err)
	}
	if want := "sqlite:" + st.DBPath() + "#N:plugin"; parseErr.Source != want {
		t.Errorf("expected source %s, got %s", want, parseErr.Source)
	}
	if parseErr.Line != 0 {
		t.Errorf("expected no line number, got %d", parseErr.Line)
	}
	if !strings.HasPrefix(err.Error(), parseErr.Source+": ") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStatsAndSources(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	if _, err := st.Import(ctx, parseAll(t, "N:plugin", "T:os/exec-Cmd", "T:reflect-SliceHeader O"), "a.txt"); err != nil {
		t.Fatalf("import a: %v", err)
	}
	if _, err := st.Import(ctx, parseAll(t, "M:os/exec-Command"), "b.txt"); err != nil {
		t.Fatalf("import b: %v", err)
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.EntityCount != 4 {
		t.Errorf("expected 4 entities, got %d", stats.EntityCount)
	}
	if stats.DeprecatedCount != 1 {
		t.Errorf("expected 1 deprecated entity, got %d", stats.DeprecatedCount)
	}
	if stats.SourceCount != 2 {
		t.Errorf("expected 2 sources, got %d", stats.SourceCount)
	}
	if stats.ByKind["Type"] != 2 {
		t.Errorf("expected 2 types, got %d", stats.ByKind["Type"])
	}
	if stats.ImportedAt.IsZero() {
		t.Error("expected an import timestamp")
	}

	sources, err := st.Sources()
	if err != nil {
		t.Fatalf("failed to list sources: %v", err)
	}
	if len(sources) != 2 || sources[0].Name != "a.txt" || sources[0].EntryCount != 3 {
		t.Errorf("unexpected sources: %+v", sources)
	}
}

func TestMetadata(t *testing.T) {
	st := openTemp(t)

	if err := st.SetMetadata("key", "value1"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}
	if err := st.SetMetadata("key", "value2"); err != nil {
		t.Fatalf("failed to update metadata: %v", err)
	}
	value, err := st.GetMetadata("key")
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if value != "value2" {
		t.Errorf("expected value2, got %s", value)
	}
}

func TestClear(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	if _, err := st.Import(ctx, parseAll(t, "N:plugin"), "a.txt"); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.EntityCount != 0 || stats.SourceCount != 0 {
		t.Errorf("expected empty store, got %+v", stats)
	}
}

func TestProvider(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	p := st.Provider()

	if p.Available() {
		t.Error("empty store should not be available")
	}
	if _, err := p.Entries(ctx); !errors.Is(err, catalog.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	if _, err := st.Import(ctx, parseAll(t, "N:plugin"), "a.txt"); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !p.Available() {
		t.Fatal("store with entries should be available")
	}

	idx, err := catalog.NewLazy(catalog.Coalesce(p, catalog.DefaultProvider())).Get()
	if err != nil {
		t.Fatalf("building index: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("expected the store to take priority with 1 entry, got %d", idx.Len())
	}
}
