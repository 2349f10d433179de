package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/tui"
	"github.com/theirongolddev/spendcast/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().IntVarP(&flagHorizon, "horizon", "H", 0, "Days to forecast (default from config)")
	tuiCmd.Flags().BoolVar(&flagNoNeural, "no-neural", false, "Use only the statistical forecaster")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	needSetup := !config.Exists()

	// The TUI syncs the import directory itself so progress shows on screen.
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	// Logs go to a file so they don't corrupt the alt screen.
	logPath := filepath.Join(config.DataDir(s.cfg), "spendcast-tui.log")
	//nolint:gosec // log path derives from the user's data directory
	if f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600); err == nil {
		defer func() { _ = f.Close() }()
		s.log.SetOutput(f)
	} else {
		s.log.SetOutput(io.Discard)
	}

	theme.SetActive(s.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	predictor, mgr := buildPredictor(s.cfg, s.log, flagNoNeural)
	defer closeModel(mgr, s.log)

	dir := importDir(s.cfg)
	if flagNoImport {
		dir = ""
	}

	app := tui.NewApp(tui.Options{
		Config:    s.cfg,
		Ledger:    s.ledger,
		Predictor: predictor,
		ImportDir: dir,
		Period:    s.period,
		Category:  flagCategory,
		Horizon:   horizonOrDefault(flagHorizon, s.cfg),
		Log:       s.log,
		NeedSetup: needSetup,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
