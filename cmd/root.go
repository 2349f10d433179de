package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/neural"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagPeriod    string
	flagCategory  string
	flagImportDir string
	flagNoImport  bool
	flagQuiet     bool
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "spendcast",
	Short:         "Expense forecasting CLI",
	Long:          "Import your transactions, aggregate daily spending and forecast the days ahead.",
	RunE:          runSummary,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPeriod, "period", "p", "", "History window: week, month, year or all (default from config)")
	rootCmd.PersistentFlags().StringVarP(&flagCategory, "category", "c", "", "Filter to category (substring match)")
	rootCmd.PersistentFlags().StringVar(&flagImportDir, "import-dir", "", "Directory of CSV/JSON/JSONL exports to sync before running")
	rootCmd.PersistentFlags().BoolVar(&flagNoImport, "no-import", false, "Skip syncing the import directory")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// session bundles what every data command needs.
type session struct {
	cfg    config.Config
	log    *logrus.Logger
	ledger *store.Ledger
	period pipeline.Period
	now    time.Time
}

func (s *session) Close() {
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.log.WithError(err).Warn("closing ledger")
		}
	}
}

// openSession loads config, builds the logger, opens the ledger and, when
// sync is set, syncs the import directory. It is the shared data path used
// by all commands.
func openSession(sync bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.Log)

	period, err := resolvePeriod(cfg)
	if err != nil {
		return nil, err
	}

	ledger, err := store.Open(config.LedgerPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &session{cfg: cfg, log: log, ledger: ledger, period: period, now: time.Now()}
	if dir := importDir(cfg); sync && dir != "" && !flagNoImport {
		if err := syncImports(s, dir); err != nil {
			log.WithError(err).WithField("dir", dir).Warn("import sync failed")
		}
	}
	return s, nil
}

func newLogger(lc config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if strings.EqualFold(lc.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if flagVerbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	return log
}

func resolvePeriod(cfg config.Config) (pipeline.Period, error) {
	p := flagPeriod
	if p == "" {
		p = cfg.General.DefaultPeriod
	}
	return pipeline.ParsePeriod(p)
}

func importDir(cfg config.Config) string {
	if flagImportDir != "" {
		return flagImportDir
	}
	return cfg.General.ImportDir
}

func syncImports(s *session, dir string) error {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", dir)
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%50 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing %s", cli.RenderProgressBar(current, total, 24))
		}
	}

	res, err := pipeline.SyncDir(dir, s.ledger, s.log, progressFn)
	if err != nil {
		return err
	}

	if !flagQuiet && res.TotalFiles > 0 {
		if res.Reparsed == 0 && res.Removed == 0 {
			fmt.Fprintf(os.Stderr, "\r  %d files unchanged (%d accounts)    \n",
				res.TotalFiles, res.AccountCount)
		} else {
			fmt.Fprintf(os.Stderr, "\r  %d cached + %d reparsed, %s transactions imported (%d accounts)    \n",
				res.CacheHits, res.Reparsed,
				cli.FormatNumber(int64(res.Imported)),
				res.AccountCount,
			)
		}
	}
	if !flagQuiet && res.FileErrors > 0 {
		fmt.Fprintf(os.Stderr, "  %d files could not be parsed\n", res.FileErrors)
	}
	return nil
}

// window returns the selected period's bounds.
func (s *session) window() (since, until time.Time) {
	return s.period.Range(s.now)
}

// transactions loads the selected window plus the preceding window of the
// same length, so callers can compare periods. The current month is always
// included for budget tracking.
func (s *session) transactions() ([]model.Transaction, error) {
	since, _ := s.window()
	lower := since
	if !since.IsZero() {
		lower = since.Add(-s.now.Sub(since))
		if ms := pipeline.MonthStart(s.now); ms.Before(lower) {
			lower = ms
		}
	}
	txs, err := s.ledger.LoadTransactions(lower, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	return txs, nil
}

// buildPredictor wires the neural path unless it is disabled. The returned
// manager is nil when the neural path is off; callers own closing it.
func buildPredictor(cfg config.Config, log *logrus.Logger, noNeural bool) (*forecast.Predictor, *neural.SessionManager) {
	opts := []forecast.Option{
		forecast.WithTuning(cfg.Forecast.Tuning()),
		forecast.WithLogger(log),
	}
	if cfg.Model.Disabled || noNeural {
		return forecast.NewPredictor(opts...), nil
	}

	rt := &neural.ONNXRuntime{LibraryPath: cfg.Model.LibraryPath, Threads: cfg.Model.Threads}
	mgr := neural.NewSessionManager(rt, config.ModelPath(cfg), log)
	nf := neural.NewForecaster(mgr, cfg.Model.InputName, cfg.Model.OutputName)
	if cfg.Model.TimeoutSec > 0 {
		nf.Timeout = time.Duration(cfg.Model.TimeoutSec) * time.Second
	}
	opts = append(opts, forecast.WithNeural(nf))
	return forecast.NewPredictor(opts...), mgr
}

func closeModel(mgr *neural.SessionManager, log *logrus.Logger) {
	if mgr == nil {
		return
	}
	if err := mgr.Close(); err != nil {
		log.WithError(err).Debug("closing model session")
	}
}

func horizonOrDefault(h int, cfg config.Config) int {
	if h > 0 {
		return h
	}
	if cfg.General.DefaultHorizon > 0 {
		return cfg.General.DefaultHorizon
	}
	return forecast.DefaultHorizon
}

func scopeLabel(p pipeline.Period) string {
	label := strings.ToUpper(p.Label())
	if flagCategory != "" {
		label += "  " + flagCategory
	}
	return label
}
