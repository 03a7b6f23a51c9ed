package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved snapshots",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Thin out old snapshots",
	Long:  "Keeps every snapshot of the last hour, one per hour of the last day and one per day before that.",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	history, err := s.History()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("No snapshots.")
		return nil
	}

	for _, info := range history {
		current := info.Current
		if current == "" {
			current = "-"
		}
		fmt.Printf("  %s%s%s  %s  %-16s %5d slices  %s\n",
			colorDim, info.ID[:8], colorReset,
			info.SavedAt.Format("2006-01-02 15:04:05"),
			humanize.Time(info.SavedAt), info.Slices, current)
	}
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.Prune(time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %s snapshot(s)\n", humanize.Comma(int64(deleted)))
	return nil
}
