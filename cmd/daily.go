package cmd

import (
	"fmt"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagDailyFill bool

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily income and expense table",
	RunE:  runDaily,
}

func init() {
	dailyCmd.Flags().BoolVar(&flagDailyFill, "fill", false, "Include days with no transactions")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	txs, err := s.transactions()
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Println("\n  No transactions found.")
		return nil
	}

	since, until := s.window()
	scoped := pipeline.FilterByCategory(txs, flagCategory)
	days := pipeline.AggregateDays(scoped, since, until)
	if flagDailyFill {
		days = pipeline.FillGaps(days, since, until)
	}

	if len(days) == 0 {
		fmt.Println("\n  No data for the selected period.")
		return nil
	}

	currency := s.cfg.General.Currency
	fmt.Println()
	fmt.Println(cli.RenderTitle("DAILY SPENDING  " + scopeLabel(s.period)))
	fmt.Println()

	rows := make([][]string, 0, len(days))
	spend := make([]float64, len(days))
	for i, d := range days {
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			cli.FormatDayOfWeek(int(d.Date.Weekday())),
			cli.FormatNumber(int64(d.Count)),
			cli.Income(cli.FormatMoney(d.Income, currency)),
			cli.Expense(cli.FormatMoney(d.Expense, currency)),
			cli.FormatMoney(d.Net(), currency),
		})
		spend[i] = d.Expense.InexactFloat64()
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Txns", "Income", "Expense", "Net"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Printf("  Spend  %s\n", cli.RenderSparkline(spend))

	return nil
}
