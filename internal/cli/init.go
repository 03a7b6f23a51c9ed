package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imkarma/zedd/internal/config"
	"github.com/imkarma/zedd/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the zedd data directory",
	Long:  "Creates the data directory with a default config and an empty database.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dbPath := dataPath(config.DBFile)

	// Check if already initialized.
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("zedd already initialized in %s", dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dataDir, err)
	}

	// Keep a hand-edited config.
	cfgPath := dataPath(config.ConfigFile)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.Save(cfgPath, config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	// Create database by opening store (migration runs automatically).
	s, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	s.Close()

	fmt.Printf("Initialized zedd in %s\n", dataDir)
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Printf("  1. Edit %s to set your working week\n", cfgPath)
	fmt.Println("  2. Run: zedd start \"your task\"")
	fmt.Println("  3. Run: zedd ui")

	return nil
}
