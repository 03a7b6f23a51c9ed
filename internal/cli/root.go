package cli

import (
	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/config"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "zedd",
	Short: "Automatic time tracking",
	Long: "zedd — records the time you spend on the current task in one-minute slices.\n" +
		"Absences longer than the idle threshold are cut out and reported.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// DataDir returns the data directory selected on the command line.
func DataDir() string {
	return dataDir
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", config.DataDir(), "Data directory (config, database, log)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(slicesCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(ersatzCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pruneCmd)
}
