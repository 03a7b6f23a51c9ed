package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/report"
	"github.com/imkarma/zedd/internal/state"
)

var (
	ersatzFrom string
	ersatzTo   string
	ersatzWeek bool
)

var ersatzCmd = &cobra.Command{
	Use:   "ersatz",
	Short: "Book or clear placeholder days",
	Long:  "Placeholder days book a full working day on the configured ersatz task, for holidays and sick leave.",
}

var ersatzFillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Book the ersatz task on every empty working day in the range",
	Args:  cobra.NoArgs,
	RunE:  runErsatzFill,
}

var ersatzClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove ersatz slices in the range",
	Args:  cobra.NoArgs,
	RunE:  runErsatzClear,
}

func init() {
	for _, c := range []*cobra.Command{ersatzFillCmd, ersatzClearCmd} {
		c.Flags().StringVar(&ersatzFrom, "from", "", "First day (YYYY-MM-DD), default today")
		c.Flags().StringVar(&ersatzTo, "to", "", "Last day (YYYY-MM-DD), default --from")
		c.Flags().BoolVarP(&ersatzWeek, "week", "w", false, "Use the current week")
	}
	ersatzCmd.AddCommand(ersatzFillCmd)
	ersatzCmd.AddCommand(ersatzClearCmd)
}

func runErsatzFill(cmd *cobra.Command, args []string) error {
	from, to, err := reportRange(ersatzWeek, ersatzFrom, ersatzTo)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withState(func(st *state.State) error {
		ersatz := st.Registry.GetOrCreate(cfg.ErsatzTask)
		n, err := report.FillErsatz(st.Timeline, cfg.Calendar(), ersatz.ID, from, to)
		if err != nil {
			return err
		}
		fmt.Printf("Booked %d day(s) on %s\n", n, ersatz.Name)
		return nil
	})
}

func runErsatzClear(cmd *cobra.Command, args []string) error {
	from, to, err := reportRange(ersatzWeek, ersatzFrom, ersatzTo)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withState(func(st *state.State) error {
		ersatz := st.Registry.FindByName(cfg.ErsatzTask)
		if ersatz == nil {
			fmt.Println("Nothing to clear.")
			return nil
		}
		n, err := report.ClearErsatz(st.Timeline, ersatz.ID, from, to)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d %s slice(s)\n", n, ersatz.Name)
		return nil
	})
}
