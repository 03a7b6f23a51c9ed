package cli

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/config"
	"github.com/imkarma/zedd/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive tracker",
	Long:  "Opens a dashboard that records time while it runs and asks what to do with absences when you come back.",
	RunE:  runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	// Log lines would corrupt the alt screen.
	logFile, err := os.OpenFile(dataPath(config.LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	defer log.SetOutput(os.Stderr)

	st, err := loadState(s)
	if err != nil {
		return err
	}

	runner, stopWatch := newRunner(cfg, s, st)
	defer stopWatch()

	model := tui.New(runner, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
