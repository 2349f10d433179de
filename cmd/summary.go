package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Spending summary with period comparison and budget projection",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&flagNoNeural, "no-neural", false, "Project the budget with only the statistical forecaster")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
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
		fmt.Println("  Run `spendcast setup`, then `spendcast import` to load your ledger.")
		return nil
	}

	since, until := s.window()
	scoped := pipeline.FilterByCategory(txs, flagCategory)
	cmp := model.PeriodComparison{Current: pipeline.Aggregate(scoped, since, until)}
	if !since.IsZero() {
		cmp.Previous = pipeline.Aggregate(scoped, since.Add(-until.Sub(since)), since)
	}
	stats := cmp.Current

	if stats.Transactions == 0 {
		fmt.Println("\n  No transactions in the selected period.")
		return nil
	}

	currency := s.cfg.General.Currency
	fmt.Println()
	fmt.Println(cli.RenderTitle("SPENDING  " + scopeLabel(s.period)))
	fmt.Println()

	spent := cli.Expense(cli.FormatMoney(stats.Expense, currency))
	if cmp.Previous.Expense.IsPositive() {
		spent += "  (" + cli.FormatDelta(stats.Expense, cmp.Previous.Expense, currency) + " vs prev)"
	}
	perDay := cli.FormatMoney(stats.ExpensePerDay.Round(2), currency) + "/day"
	if cmp.Previous.ExpensePerDay.IsPositive() {
		perDay += "  (" + cli.FormatDelta(stats.ExpensePerDay.Round(2), cmp.Previous.ExpensePerDay.Round(2), currency) + ")"
	}

	rows := [][]string{
		{"Transactions", cli.FormatNumber(int64(stats.Transactions))},
		{"Active days", cli.FormatNumber(int64(stats.ActiveDays))},
		{"---"},
		{"Income", cli.Income(cli.FormatMoney(stats.Income, currency))},
		{"Expense", spent},
		{"Net", cli.FormatMoney(stats.Net, currency)},
		{"---"},
		{"Spend/day", perDay},
	}
	if !stats.LargestDay.IsZero() {
		rows = append(rows, []string{"Largest day", fmt.Sprintf("%s  %s",
			stats.LargestDay.Format("Mon Jan 2"), cli.FormatMoney(stats.LargestSpend, currency))})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if cats := pipeline.AggregateCategories(scoped, model.Expense, since, until); len(cats) > 0 {
		fmt.Println()
		maxAmount := cats[0].Amount.InexactFloat64()
		for i, c := range cats {
			if i == 5 {
				break
			}
			fmt.Println(cli.RenderHorizontalBar(fmt.Sprintf("%-16s", truncLabel(c.Category, 16)), c.Amount.InexactFloat64(), maxAmount, 30) +
				"  " + cli.FormatPercent(c.SharePercent))
		}
	}

	if b, ok := s.cfg.Budget.BudgetAt(s.now); ok {
		monthSpent := pipeline.MonthToDateSpend(scoped, s.now)
		bs := pipeline.ProjectBudget(monthSpent, nil, &b, s.now)

		if bs.DaysRemaining > 0 {
			predictor, mgr := buildPredictor(s.cfg, s.log, flagNoNeural)
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			res := predictor.Forecast(ctx, pipeline.History(txs, since, until, flagCategory), bs.DaysRemaining)
			cancel()
			closeModel(mgr, s.log)
			bs = pipeline.ProjectBudget(monthSpent, res.Points, &b, s.now)
		}

		fmt.Println()
		fmt.Print(renderBudget(bs, currency))
	}

	return nil
}

func truncLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
