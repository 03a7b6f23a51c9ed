package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/report"
	"github.com/imkarma/zedd/internal/timeutil"
)

var (
	reportFrom string
	reportTo   string
	reportWeek bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show worked hours per day and per task",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	shortStyle  = cellStyle.Foreground(lipgloss.Color("#e0af68"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "First day (YYYY-MM-DD), default today")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Last day (YYYY-MM-DD), default --from")
	reportCmd.Flags().BoolVarP(&reportWeek, "week", "w", false, "Report the current week")
}

// reportRange resolves --week or --from/--to.
func reportRange(week bool, from, to string) (time.Time, time.Time, error) {
	if week {
		monday, sunday := timeutil.ISOWeek(time.Now())
		return monday, sunday, nil
	}
	return parseRange(from, to)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func runReport(cmd *cobra.Command, args []string) error {
	from, to, err := reportRange(reportWeek, reportFrom, reportTo)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := loadState(s)
	if err != nil {
		return err
	}

	cal := cfg.Calendar()
	var short []bool
	days := newTable("Day", "Worked", "Target")
	var worked float64
	for _, day := range timeutil.EachDay(from, to) {
		h := report.DayWorkedHours(st.Timeline, day)
		target := cal.DayTarget(day)
		worked += h
		short = append(short, h < target)
		days.Row(day.Format("Mon 2006-01-02"), report.FormatHours(h, cfg.TimeFormat), report.FormatHours(target, cfg.TimeFormat))
	}
	days.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 1 && row >= 0 && row < len(short) && short[row] {
			return shortStyle
		}
		return cellStyle
	})
	fmt.Println(days)
	fmt.Printf("Total %s of %s\n\n",
		report.FormatHours(worked, cfg.TimeFormat),
		report.FormatHours(cal.TargetHours(from, to), cfg.TimeFormat))

	totals := report.TaskTotals(st.Timeline, from, to)
	if len(totals) == 0 {
		fmt.Println("No tasks booked.")
		return nil
	}
	tasks := newTable("Task", "Hours").StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	for _, tt := range totals {
		tasks.Row(st.TaskName(tt.Task), report.FormatHours(tt.Hours, cfg.TimeFormat))
	}
	fmt.Println(tasks)
	return nil
}
