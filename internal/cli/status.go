package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick status overview",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := loadState(s)
	if err != nil {
		return err
	}

	current := st.CurrentTask()
	if st.Registry.IsUndefined(current.ID) {
		fmt.Printf("No current task. Run: %szedd start \"task\"%s\n", colorCyan, colorReset)
	} else {
		timing := colorRed + "off" + colorReset
		if st.Engine.Timing() {
			timing = colorGreen + "on" + colorReset
		}
		fmt.Printf("%sTask:%s %s (timing %s)\n", colorBold, colorReset, current.Name, timing)
	}

	if last := st.Engine.LastUserAction(); !last.IsZero() {
		fmt.Printf("  %-14s %s\n", "last input:", humanize.Time(last))
	}
	if cur := st.Engine.Cursor(); cur != nil {
		fmt.Printf("  %-14s %s\n", "last slice:", st.FormatSlice(cur))
	}

	today := time.Now()
	worked := report.DayWorkedHours(st.Timeline, today)
	target := cfg.Calendar().DayTarget(today)
	fmt.Printf("  %-14s %s / %s (%d%%)\n", "today:",
		report.FormatHours(worked, cfg.TimeFormat),
		report.FormatHours(target, cfg.TimeFormat),
		int(report.DayProgress(st.Timeline, cfg.Calendar(), today)*100))

	history, err := s.History()
	if err != nil {
		return err
	}
	if len(history) > 0 {
		fmt.Printf("  %-14s %s%s (%s snapshots)%s\n", "saved:", colorDim,
			humanize.Time(history[0].SavedAt), humanize.Comma(int64(len(history))), colorReset)
	}

	return nil
}
