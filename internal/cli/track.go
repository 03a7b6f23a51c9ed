package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/config"
	"github.com/imkarma/zedd/internal/idle"
	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/state"
	"github.com/imkarma/zedd/internal/store"
	"github.com/imkarma/zedd/internal/tracker"
	"github.com/imkarma/zedd/internal/worker"
)

// autosaveEvery is the autosave period in wall time.
const autosaveEvery = time.Minute

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record time in the foreground without a UI",
	Long:  "Samples the clock and the host idle time until interrupted. Away periods are printed and left unassigned.",
	Args:  cobra.NoArgs,
	RunE:  runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

// newRunner wires a Runner for st from the config and watches the config
// file for threshold changes. The returned func stops watching.
func newRunner(cfg *config.Config, s *store.Store, st *state.State) (*worker.Runner, func()) {
	interval := time.Duration(cfg.TickInterval()) * time.Second
	saveEvery := int(autosaveEvery / interval)
	if saveEvery < 1 {
		saveEvery = 1
	}

	detector := idle.Default(cfg.IdleCommand)
	if !idle.Available(detector) {
		log.Printf("idle detection unavailable; absences will not be noticed")
	}

	r := worker.NewRunner(worker.RunnerConfig{
		State:     st,
		Store:     s,
		Idle:      detector,
		Interval:  interval,
		Threshold: cfg.IdleThresholdMinutes(),
		SaveEvery: saveEvery,
		History:   cfg.KeepSnapshots,
		Logger:    log.Default(),
	})

	stop, err := config.Watch(dataPath(config.ConfigFile), func(c *config.Config) {
		r.SetThreshold(c.IdleThresholdMinutes())
		log.Printf("config reloaded: idle threshold %d min", c.IdleThresholdMinutes())
	})
	if err != nil {
		log.Printf("config: not watching for changes: %v", err)
		stop = func() {}
	}
	return r, stop
}

func runTrack(cmd *cobra.Command, args []string) error {
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

	runner, stopWatch := newRunner(cfg, s, st)
	defer stopWatch()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	current := st.CurrentTask()
	if !st.Engine.Timing() || st.Registry.IsUndefined(current.ID) {
		fmt.Printf("%sTiming is off; run `zedd start <task>` to record time.%s\n", colorYellow, colorReset)
	} else {
		fmt.Printf("Tracking %s%s%s every %s. Ctrl+C to stop.\n", colorCyan, current.Name, colorReset, runner.Interval())
	}

	mode := tracker.Active
	err = runner.Run(ctx, func(res worker.TickResult) {
		if res.Mode != mode {
			mode = res.Mode
			fmt.Printf("%s %s%s%s\n", res.Now.Format("15:04"), colorDim, mode, colorReset)
		}
		for _, away := range res.Idle {
			fmt.Printf("%s %sAway %s%s (%s, unassigned)\n",
				res.Now.Format("15:04"), colorYellow, away, colorReset, formatAway(away))
		}
	})
	if errors.Is(err, context.Canceled) {
		fmt.Println("Saved.")
		return nil
	}
	return err
}

func formatAway(away slice.Interval) string {
	d := away.Duration().Round(time.Minute)
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
