package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/store"
	"github.com/theirongolddev/spendcast/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// A broken config file is replaced by the wizard's answers.
	cfg, _ := config.Load()

	txCount := 0
	if ledger, err := store.Open(config.LedgerPath(cfg)); err == nil {
		txCount, _ = ledger.TransactionCount()
		_ = ledger.Close()
	}

	vals := tui.NewSetupValues(cfg, flagImportDir)
	if err := tui.NewSetupForm(vals, txCount).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled.")
			return nil
		}
		return err
	}

	cfg, err := vals.Apply(cfg)
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	if cfg.General.ImportDir != "" {
		fmt.Println("  Run `spendcast import` to load your transactions.")
	}
	fmt.Println("  Run `spendcast forecast` or `spendcast tui` to see the days ahead.")
	fmt.Println()
	return nil
}
