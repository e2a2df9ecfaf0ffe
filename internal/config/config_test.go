package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("expected default excluded dirs")
	}
	if cfg.Lists.Store == "" {
		t.Error("expected a default list store")
	}
	if cfg.Analysis.MaxConstraintDepth != 40 {
		t.Errorf("expected constraint depth 40, got %d", cfg.Analysis.MaxConstraintDepth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for nonexistent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config")
	}
	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("expected default excluded dirs")
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
lists:
  files:
    - lists/wasm.txt
    - lists/extra.txt.gz
  disable_embedded: true

exclude:
  dirs:
    - vendor
    - custom_exclude
  files_glob:
    - "**/*.generated.go"

analysis:
  workers: 4
  ignore_deprecated: true
  ignore_packages:
    - "example.com/legacy/*"

logging:
  level: debug

server:
  port: 9090
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "compatlens.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Lists.Files) != 2 {
		t.Errorf("expected 2 list files, got %d", len(cfg.Lists.Files))
	}
	if !cfg.Lists.DisableEmbedded {
		t.Error("expected embedded list to be disabled")
	}
	if len(cfg.Exclude.Dirs) != 2 {
		t.Errorf("expected 2 excluded dirs, got %d", len(cfg.Exclude.Dirs))
	}
	if cfg.Exclude.Dirs[1] != "custom_exclude" {
		t.Errorf("expected custom_exclude, got %s", cfg.Exclude.Dirs[1])
	}
	if cfg.Analysis.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Analysis.Workers)
	}
	if cfg.Analysis.MaxConstraintDepth != 40 {
		t.Errorf("expected default constraint depth to survive, got %d", cfg.Analysis.MaxConstraintDepth)
	}
	if !cfg.Analysis.IgnoreDeprecated {
		t.Error("expected ignore_deprecated")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default text format, got %s", cfg.Logging.Format)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Lists.Store != filepath.Join(".compatlens", "lists.db") {
		t.Errorf("expected default store, got %s", cfg.Lists.Store)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":    "lists: [",
		"bad workers": "analysis:\n  workers: -1\n",
		"bad port":    "server:\n  port: 70000\n",
		"bad format":  "logging:\n  format: xml\n",
		"bad glob":    "exclude:\n  files_glob:\n    - \"[\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "compatlens.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %q", content)
			}
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("server:\n  port: 7000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
}

func TestIsExcludedDir(t *testing.T) {
	cfg := Default()

	tests := []struct {
		dir      string
		excluded bool
	}{
		{"vendor", true},
		{"/path/to/vendor", true},
		{"vendor/github.com/x/y", true},
		{"third_party", true},
		{"src", false},
		{"internal", false},
		{"internal/vendored", false},
	}

	for _, tt := range tests {
		got := cfg.IsExcludedDir(tt.dir)
		if got != tt.excluded {
			t.Errorf("IsExcludedDir(%q) = %v, want %v", tt.dir, got, tt.excluded)
		}
	}
}

func TestIsExcludedFile(t *testing.T) {
	cfg := Default()
	root := filepath.FromSlash("/src/app")

	tests := []struct {
		file     string
		excluded bool
	}{
		{"/src/app/foo.pb.go", true},
		{"/src/app/internal/api/foo.pb.go", true},
		{"/src/app/internal/gen/foo_gen.go", true},
		{"/src/app/store_mock.go", true},
		{"/src/app/internal/foo.go", false},
		{"/src/app/pb.go", false},
	}

	for _, tt := range tests {
		got := cfg.IsExcludedFile(root, filepath.FromSlash(tt.file))
		if got != tt.excluded {
			t.Errorf("IsExcludedFile(%q) = %v, want %v", tt.file, got, tt.excluded)
		}
	}
}

func TestIsIgnoredPackage(t *testing.T) {
	cfg := Default()
	cfg.Analysis.IgnorePackages = []string{"example.com/legacy/*", "example.com/tools"}

	tests := []struct {
		pkg     string
		ignored bool
	}{
		{"example.com/legacy/db", true},
		{"example.com/tools", true},
		{"example.com/tools/sub", false},
		{"example.com/app", false},
	}

	for _, tt := range tests {
		got := cfg.IsIgnoredPackage(tt.pkg)
		if got != tt.ignored {
			t.Errorf("IsIgnoredPackage(%q) = %v, want %v", tt.pkg, got, tt.ignored)
		}
	}
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	got := cfg.StorePath("/proj")
	want := filepath.Join("/proj", ".compatlens", "lists.db")
	if got != want {
		t.Errorf("StorePath = %q, want %q", got, want)
	}

	abs := filepath.Join(t.TempDir(), "lists.db")
	cfg.Lists.Store = abs
	if got := cfg.StorePath("/proj"); got != abs {
		t.Errorf("StorePath = %q, want %q", got, abs)
	}
}

func TestMergeNil(t *testing.T) {
	cfg := Default()
	cfg.Merge(nil)
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}
