package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/philipparndt/partquote/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent estimates",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "count", "n", 20, "Number of entries to display")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.History.Enabled {
		return errors.New("history is disabled in the config")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		return writeIndentedJSON(os.Stdout, entries)
	}

	writeHistory(os.Stdout, entries)
	return nil
}

func writeHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No estimates recorded yet.")
		return
	}

	fmt.Fprintf(w, "%-20s %-30s %-22s %12s %-8s %-18s\n", "Date", "File", "Material", "Total", "Level", "Method")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------------------------------------------")
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s %-30s %-22s %12.2f %-8s %-18s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.FileName,
			e.Material,
			e.TotalCost,
			e.Complexity,
			e.Provenance)
	}
}
