// Package cmd implements the spendcast CLI commands.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default period:  %s\n", cfg.General.DefaultPeriod)
	fmt.Printf("    Default horizon: %d days\n", cfg.General.DefaultHorizon)
	fmt.Printf("    Currency:        %s\n", cfg.General.Currency)
	fmt.Printf("    Import dir:      %s\n", orNone(cfg.General.ImportDir))
	fmt.Printf("    Ledger:          %s\n", config.LedgerPath(cfg))
	fmt.Println()

	fmt.Println("  [Model]")
	modelPath := config.ModelPath(cfg)
	if _, err := os.Stat(modelPath); err != nil {
		modelPath += " (missing)"
	}
	fmt.Printf("    Path:        %s\n", modelPath)
	if cfg.Model.LibraryPath != "" {
		fmt.Printf("    Runtime lib: %s\n", cfg.Model.LibraryPath)
	}
	fmt.Printf("    Tensors:     %s -> %s\n", cfg.Model.InputName, cfg.Model.OutputName)
	fmt.Printf("    Neural:      %s\n", enabledLabel(!cfg.Model.Disabled))
	fmt.Printf("    Timeout:     %ds\n", cfg.Model.TimeoutSec)
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Blend:   %.2f statistical / %.2f neural\n",
		cfg.Forecast.StatisticalWeight, cfg.Forecast.NeuralWeight)
	fmt.Printf("    Damping: %.2f raw / %.2f last / %.2f average\n",
		cfg.Forecast.DampRaw, cfg.Forecast.DampLast, cfg.Forecast.DampAverage)
	fmt.Println()

	fmt.Println("  [Ledger API]")
	fmt.Printf("    Base URL: %s\n", orNone(cfg.API.BaseURL))
	if tok := config.GetAPIToken(cfg); tok != "" {
		fmt.Printf("    Token:    %s\n", maskSecret(tok))
	} else {
		fmt.Println("    Token:    not configured")
	}
	fmt.Println()

	fmt.Println("  [Postgres]")
	if cfg.Postgres.DSN != "" {
		fmt.Println("    DSN:     configured")
		fmt.Printf("    User ID: %d\n", cfg.Postgres.UserID)
	} else {
		fmt.Println("    DSN:     not configured")
	}
	fmt.Println()

	fmt.Println("  [Budget]")
	if b, ok := cfg.Budget.BudgetAt(time.Now()); ok {
		fmt.Printf("    Monthly budget: %s\n", cli.FormatMoney(b, cfg.General.Currency))
	} else {
		fmt.Println("    Monthly budget: not set")
	}
	for _, e := range cfg.Budget.Schedule {
		fmt.Printf("    From %s:  %s\n", e.From, cli.FormatMoneyFloat(e.Monthly, cfg.General.Currency))
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Schedule: %s\n", cfg.Daemon.Schedule)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `spendcast setup` to reconfigure.")
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func maskSecret(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
