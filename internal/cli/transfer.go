package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/state"
)

var importCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Replace the tracker state with a JSON export",
	Long:  "Reads a JSON state file (current or legacy format) and saves it as the newest snapshot. Earlier snapshots stay in the history.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export [file.json]",
	Short: "Write the tracker state as JSON",
	Long:  "Writes the newest snapshot as JSON to the file, or to stdout when the file is \"-\" or omitted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import: %w", err)
	}
	defer f.Close()

	snap, err := state.DecodeJSON(f, time.Local)
	if err != nil {
		return err
	}
	st, err := state.Restore(snap)
	if err != nil {
		return err
	}

	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := saveState(s, st); err != nil {
		return err
	}
	fmt.Printf("Imported %d slices, %d tasks\n", st.Timeline.Len(), st.Registry.Len()-1)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := loadState(s)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		defer f.Close()
		w = f
	}
	return state.EncodeJSON(w, st.Snapshot())
}
