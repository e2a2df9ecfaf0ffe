package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/config"
	"github.com/abramin/compatlens/internal/store"
)

// ListProvider assembles the list sources configured for a project. List
// files and the imported store are merged; the built-in list is the fallback
// when neither is available, unless it is disabled. The returned close
// function releases the store and is never nil.
func ListProvider(cfg *config.Config, projectDir string) (catalog.Provider, func() error, error) {
	var user []catalog.Provider
	for _, f := range cfg.Lists.Files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(projectDir, f)
		}
		if _, err := os.Stat(f); err != nil {
			return nil, nil, fmt.Errorf("list file: %w", err)
		}
		user = append(user, catalog.File{Path: f})
	}

	closeFn := func() error { return nil }
	dbPath := cfg.StorePath(projectDir)
	if _, err := os.Stat(dbPath); err == nil {
		st, err := store.OpenFile(dbPath)
		if err != nil {
			return nil, nil, err
		}
		user = append(user, st.Provider())
		closeFn = st.Close
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("list store: %w", err)
	}

	p := catalog.Union(user...)
	if !cfg.Lists.DisableEmbedded {
		p = catalog.Coalesce(p, catalog.DefaultProvider())
	}
	return p, closeFn, nil
}
