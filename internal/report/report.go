// Package report renders check results for terminals and tools.
package report

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/abramin/compatlens/internal/index"
)

// Format selects the output representation.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or json)", s)
	}
}

// EntitySummary counts the findings for one listed entity.
type EntitySummary struct {
	Entity     string `json:"entity"`
	Deprecated bool   `json:"deprecated"`
	Count      int    `json:"count"`
}

// Finding is a diagnostic with a project-relative file name.
type Finding struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Package    string `json:"package"`
	Name       string `json:"name"`
	Reference  string `json:"reference"`
	Entity     string `json:"entity"`
	Deprecated bool   `json:"deprecated"`
}

// Report is the JSON document written by FormatJSON.
type Report struct {
	ProjectDir string          `json:"project_dir"`
	ListSource string          `json:"list_source"`
	Packages   int             `json:"packages"`
	Files      int             `json:"files"`
	Entries    int             `json:"entries"`
	DurationMS int64           `json:"duration_ms"`
	Findings   []Finding       `json:"findings"`
	Summary    []EntitySummary `json:"summary"`
	LoadErrors []string        `json:"load_errors,omitempty"`
}

// Build converts a check result into a Report.
func Build(res *index.Result) *Report {
	r := &Report{
		ProjectDir: res.ProjectDir,
		ListSource: res.ListSource,
		Packages:   res.PackageCount,
		Files:      res.FileCount,
		Entries:    res.EntryCount,
		DurationMS: res.Duration.Milliseconds(),
		Findings:   make([]Finding, 0, len(res.Diagnostics)),
		LoadErrors: res.LoadErrors,
	}

	counts := make(map[string]*EntitySummary)
	for _, d := range res.Diagnostics {
		file := d.Position.Filename
		if rel, err := filepath.Rel(res.ProjectDir, file); err == nil {
			file = filepath.ToSlash(rel)
		}
		id := d.Entity.ID()
		r.Findings = append(r.Findings, Finding{
			File:       file,
			Line:       d.Position.Line,
			Column:     d.Position.Column,
			Package:    d.Package,
			Name:       d.Name,
			Reference:  d.Reference,
			Entity:     id,
			Deprecated: d.Entity.IsDeprecated(),
		})

		s, ok := counts[id]
		if !ok {
			s = &EntitySummary{Entity: id, Deprecated: d.Entity.IsDeprecated()}
			counts[id] = s
		}
		s.Count++
	}

	r.Summary = make([]EntitySummary, 0, len(counts))
	for _, s := range counts {
		r.Summary = append(r.Summary, *s)
	}
	slices.SortFunc(r.Summary, func(a, b EntitySummary) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Entity, b.Entity))
	})
	return r
}

// Write renders res to w in the given format.
func Write(w io.Writer, res *index.Result, format Format) error {
	r := Build(res)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}

	for _, f := range r.Findings {
		label := "incompatible"
		if f.Deprecated {
			label = "deprecated"
		}
		ew.printf("%s:%d:%d: %s is %s (%s)\n", f.File, f.Line, f.Column, f.Name, label, f.Entity)
	}

	if len(r.Findings) > 0 {
		ew.printf("\nBy entity:\n")
		for _, s := range r.Summary {
			ew.printf("  %4d  %s\n", s.Count, s.Entity)
		}
		ew.printf("\n")
	}

	ew.printf("Checked %d packages (%d files) against %d entries from %s in %s: %d findings\n",
		r.Packages, r.Files, r.Entries, r.ListSource,
		(time.Duration(r.DurationMS) * time.Millisecond).String(), len(r.Findings))
	if n := len(r.LoadErrors); n > 0 {
		ew.printf("%d package loading errors; results may be incomplete\n", n)
	}
	return ew.err
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
