package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/entity"
	"github.com/abramin/compatlens/internal/index"
	"github.com/abramin/compatlens/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage and query incompatibility lists",
}

var listImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import list files into the project list store",
	Long: `Parse list files (plain, .gz or .zst) and store their entries in
the list store under --dir (.compatlens/lists.db by default). An unsupported entry replaces a deprecated one; otherwise
the entry already stored is kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.OpenFile(GetConfig().StorePath(ProjectDir()))
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		out := cmd.OutOrStdout()
		for _, path := range args {
			entries, err := catalog.File{Path: path}.Entries(cmd.Context())
			if err != nil {
				return err
			}
			res, err := st.Import(cmd.Context(), entries, path)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}
			logger.Debug("imported list", "source", path, "entries", len(entries))
			fmt.Fprintf(out, "Imported %s: %d written, %d kept\n", res.Source, res.Written, res.Kept)
		}
		return nil
	},
}

var listStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print list store statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := GetConfig().StorePath(ProjectDir())
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(cmd.OutOrStdout(), "No list store at %s\n", dbPath)
			return nil
		}
		st, err := store.OpenFile(dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		sources, err := st.Sources()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Store: %s\n", st.DBPath())
		fmt.Fprintf(out, "  Entries:    %d (%d deprecated)\n", stats.EntityCount, stats.DeprecatedCount)
		kinds := make([]string, 0, len(stats.ByKind))
		for k := range stats.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(out, "    %-10s %d\n", k+":", stats.ByKind[k])
		}
		fmt.Fprintf(out, "  Sources:    %d\n", stats.SourceCount)
		for _, src := range sources {
			fmt.Fprintf(out, "    %s (%d entries, %s)\n", src.Name, src.EntryCount, src.ImportedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var listClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every imported list from the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.OpenFile(GetConfig().StorePath(ProjectDir()))
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()
		return st.Clear()
	},
}

var listParseCmd = &cobra.Command{
	Use:   "parse <raw>",
	Short: "Parse a raw list line and print its parts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := entity.Parse(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(id)
	},
}

var listLookupCmd = &cobra.Command{
	Use:   "lookup <id>",
	Short: "Look up a canonical ID in the active lists",
	Long: `Look up a canonical ID such as M:os/exec.Command in the active lists and
print the listed entry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, closeLists, err := index.ListProvider(GetConfig(), ProjectDir())
		if err != nil {
			return err
		}
		defer closeLists()

		idx, err := catalog.NewLazy(provider, catalog.WithLogger(logger)).GetContext(cmd.Context())
		if err != nil {
			return err
		}

		id := args[0]
		hit, ok := idx.Lookup(entity.KindOfID(id), id)
		if !ok {
			return fmt.Errorf("%s is not listed in %s", id, provider.Source())
		}
		status := "unsupported"
		if hit.IsDeprecated() {
			status = "deprecated"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", hit.ID(), status, entity.Encode(*hit))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.AddCommand(listImportCmd, listStatsCmd, listClearCmd, listParseCmd, listLookupCmd)
}
