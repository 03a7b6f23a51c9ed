package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/state"
)

var startCmd = &cobra.Command{
	Use:   "start [task]",
	Short: "Start timing a task",
	Long:  "Makes the task current and turns timing on. Time is recorded while `zedd track` or `zedd ui` runs.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop timing",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runStart(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	return withState(func(st *state.State) error {
		t := st.StartTiming(name)
		fmt.Printf("Timing %s%s%s\n", colorCyan, t.Name, colorReset)
		return nil
	})
}

func runStop(cmd *cobra.Command, args []string) error {
	return withState(func(st *state.State) error {
		if !st.Engine.Timing() {
			fmt.Println("Timing is already off.")
			return nil
		}
		name := st.CurrentTask().Name
		st.StopTiming()
		fmt.Printf("Stopped timing %s\n", name)
		return nil
	})
}
