package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/ledgerapi"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/source"

	"github.com/spf13/cobra"
)

var (
	flagImportFromDir string
	flagImportAPI     bool
	flagImportPG      bool
	flagImportSince   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import transactions from exports, the ledger API or Postgres",
	Long: "Import transactions into the local ledger. With no source flags the\n" +
		"configured import directory is synced.",
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&flagImportFromDir, "dir", "", "Sync CSV/JSON/JSONL exports from this directory")
	importCmd.Flags().BoolVar(&flagImportAPI, "api", false, "Fetch transactions from the configured ledger API")
	importCmd.Flags().BoolVar(&flagImportPG, "postgres", false, "Read transactions from the configured Postgres database")
	importCmd.Flags().StringVar(&flagImportSince, "since", "", "Only fetch remote transactions on or after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, _ []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	var since time.Time
	if flagImportSince != "" {
		since, err = source.ParseDate(flagImportSince)
		if err != nil {
			return fmt.Errorf("--since: %w", err)
		}
	}

	dir := flagImportFromDir
	if dir == "" && !flagImportAPI && !flagImportPG {
		dir = importDir(s.cfg)
		if dir == "" {
			return errors.New("no import source: pass --dir, --api or --postgres, or set general.import_dir")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if dir != "" {
		if err := syncImports(s, dir); err != nil {
			return fmt.Errorf("importing %s: %w", dir, err)
		}
	}
	if flagImportAPI {
		if err := importFromAPI(ctx, s, since); err != nil {
			return err
		}
	}
	if flagImportPG {
		if err := importFromPostgres(ctx, s, since); err != nil {
			return err
		}
	}

	n, err := s.ledger.TransactionCount()
	if err != nil {
		return err
	}
	fmt.Printf("  Ledger now holds %s transactions\n", cli.FormatNumber(int64(n)))
	return nil
}

func importFromAPI(ctx context.Context, s *session, since time.Time) error {
	if s.cfg.API.BaseURL == "" {
		return errors.New("api.base_url is not configured (run `spendcast setup`)")
	}
	client, err := ledgerapi.NewClient(s.cfg.API.BaseURL, config.GetAPIToken(s.cfg))
	if err != nil {
		return err
	}

	data := client.FetchAll(ctx, since)
	if data.Error != nil && len(data.Transactions) == 0 {
		return fmt.Errorf("fetching from %s: %w", client.SourceName(), data.Error)
	}
	if data.Error != nil {
		s.log.WithError(data.Error).Warn("categories unavailable; importing transactions without names")
	}

	return saveImported(s, client.SourceName(), data.Transactions, data.Categories, data.Skipped)
}

func importFromPostgres(ctx context.Context, s *session, since time.Time) error {
	if s.cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is not configured")
	}
	pg, err := source.OpenPostgres(ctx, s.cfg.Postgres.DSN, s.cfg.Postgres.UserID)
	if err != nil {
		return err
	}
	defer func() {
		if err := pg.Close(); err != nil {
			s.log.WithError(err).Debug("closing postgres source")
		}
	}()

	txs, err := pg.Transactions(ctx, since)
	if err != nil {
		return err
	}
	cats, err := pg.Categories(ctx)
	if err != nil {
		s.log.WithError(err).Warn("categories unavailable; importing transactions without names")
	}

	return saveImported(s, pg.SourceName(), txs, cats, 0)
}

func saveImported(s *session, name string, txs []model.Transaction, cats []model.Category, skipped int) error {
	if err := s.ledger.SaveTransactions(txs, cats); err != nil {
		return fmt.Errorf("saving %s transactions: %w", name, err)
	}
	if !flagQuiet {
		msg := fmt.Sprintf("  %s: imported %s transactions, %d categories",
			name, cli.FormatNumber(int64(len(txs))), len(cats))
		if skipped > 0 {
			msg += fmt.Sprintf(" (%d skipped)", skipped)
		}
		fmt.Println(msg)
	}
	s.log.WithField("source", name).WithField("transactions", len(txs)).Debug("import complete")
	return nil
}
