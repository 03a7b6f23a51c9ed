package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/state"
	"github.com/imkarma/zedd/internal/timeutil"
)

var (
	slicesFrom string
	slicesTo   string
)

var slicesCmd = &cobra.Command{
	Use:   "slices",
	Short: "List recorded slices",
	Long:  "Lists the slices starting on the given days (today by default). The index is the one `zedd rm` takes.",
	Args:  cobra.NoArgs,
	RunE:  runSlices,
}

var addCmd = &cobra.Command{
	Use:   "add [line]",
	Short: "Add a slice by hand",
	Long: "Adds a slice written as \"YYYY-MM-DD HH:MM - YYYY-MM-DD HH:MM task\".\n" +
		"The slice is shortened to fit between its neighbours.",
	Example: `  zedd add "2024-03-01 09:00 - 2024-03-01 10:30 JIRA-12 review"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAdd,
}

var rmCmd = &cobra.Command{
	Use:   "rm [index]",
	Short: "Remove a slice",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func init() {
	slicesCmd.Flags().StringVar(&slicesFrom, "from", "", "First day (YYYY-MM-DD), default today")
	slicesCmd.Flags().StringVar(&slicesTo, "to", "", "Last day (YYYY-MM-DD), default --from")
}

func runSlices(cmd *cobra.Command, args []string) error {
	from, to, err := parseRange(slicesFrom, slicesTo)
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

	span := slice.Interval{Start: timeutil.StartOfDay(from), End: timeutil.StartOfNextDay(to)}
	cursor := st.Engine.Cursor()
	shown := 0
	for i, sl := range st.Timeline.Slices() {
		if sl.Start().Before(span.Start) || !sl.Start().Before(span.End) {
			continue
		}
		marker := " "
		if sl == cursor {
			marker = colorGreen + "*" + colorReset
		}
		fmt.Printf("%s %s%4d%s  %s\n", marker, colorDim, i, colorReset, st.FormatSlice(sl))
		shown++
	}
	if shown == 0 {
		fmt.Println("No slices.")
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	line := strings.Join(args, " ")
	return withState(func(st *state.State) error {
		iv, name, err := slice.Parse(line, st.Location())
		if err != nil {
			return err
		}
		sl, err := st.AddSlice(iv, name)
		if err != nil {
			return fmt.Errorf("add slice: %w", err)
		}
		fmt.Printf("Added %s\n", st.FormatSlice(sl))
		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slice index: %s", args[0])
	}
	return withState(func(st *state.State) error {
		all := st.Timeline.Slices()
		if idx < 0 || idx >= len(all) {
			return fmt.Errorf("no slice #%d (have %d)", idx, len(all))
		}
		sl := all[idx]
		line := st.FormatSlice(sl)
		if err := st.RemoveSlice(sl); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", line)
		return nil
	})
}
