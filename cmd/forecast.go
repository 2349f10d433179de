package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagHorizon  int
	flagNoNeural bool
	flagJSON     bool
	flagSave     bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast daily expenses for the days ahead",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().IntVarP(&flagHorizon, "horizon", "H", 0, "Days to forecast (default from config)")
	forecastCmd.Flags().BoolVar(&flagNoNeural, "no-neural", false, "Use only the statistical forecaster")
	forecastCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the forecast as JSON")
	forecastCmd.Flags().BoolVar(&flagSave, "save", false, "Record this forecast run in the ledger")
	rootCmd.AddCommand(forecastCmd)
}

type forecastJSON struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Period      string                   `json:"period"`
	Category    string                   `json:"category,omitempty"`
	Horizon     int                      `json:"horizon"`
	HistoryDays int                      `json:"history_days"`
	NeuralUsed  bool                     `json:"neural_used"`
	NeuralError string                   `json:"neural_error,omitempty"`
	Total       float64                  `json:"total"`
	Points      []forecast.ForecastPoint `json:"points"`
	RunID       string                   `json:"run_id,omitempty"`
}

func runForecast(_ *cobra.Command, _ []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	txs, err := s.transactions()
	if err != nil {
		return err
	}
	since, until := s.window()
	history := pipeline.History(txs, since, until, flagCategory)
	horizon := horizonOrDefault(flagHorizon, s.cfg)

	predictor, mgr := buildPredictor(s.cfg, s.log, flagNoNeural)
	defer closeModel(mgr, s.log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res := predictor.Forecast(ctx, history, horizon)

	var run model.ForecastRun
	if flagSave && len(res.Points) > 0 {
		run = model.ForecastRun{
			CreatedAt:   s.now,
			Horizon:     horizon,
			HistoryDays: len(history),
			Category:    flagCategory,
			NeuralUsed:  res.NeuralUsed,
			Points:      res.Points,
		}
		if res.NeuralErr != nil {
			run.NeuralError = res.NeuralErr.Error()
		}
		run, err = s.ledger.SaveForecastRun(run)
		if err != nil {
			return fmt.Errorf("saving forecast: %w", err)
		}
	}

	if flagJSON {
		out := forecastJSON{
			GeneratedAt: s.now,
			Period:      string(s.period),
			Category:    flagCategory,
			Horizon:     horizon,
			HistoryDays: len(history),
			NeuralUsed:  res.NeuralUsed,
			Total:       forecastTotal(res.Points),
			Points:      res.Points,
			RunID:       run.ID,
		}
		if out.Points == nil {
			out.Points = []forecast.ForecastPoint{}
		}
		if res.NeuralErr != nil {
			out.NeuralError = res.NeuralErr.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(res.Points) == 0 {
		fmt.Println("\n  No spending history to forecast from.")
		fmt.Println("  Import some transactions with `spendcast import`.")
		return nil
	}

	currency := s.cfg.General.Currency
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FORECAST  Next %dd from %s", horizon, scopeLabel(s.period))))
	fmt.Println()

	rows := make([][]string, 0, len(res.Points)+2)
	values := make([]float64, 0, len(res.Points))
	for i, p := range res.Points {
		row := []string{
			p.Date.Format("2006-01-02"),
			cli.FormatDayOfWeek(int(p.Date.Weekday())),
			cli.FormatMoneyFloat(pointAt(res.Statistical, i), currency),
		}
		if res.NeuralUsed {
			row = append(row, cli.FormatMoneyFloat(pointAt(res.Neural, i), currency))
		} else {
			row = append(row, "-")
		}
		row = append(row, cli.FormatMoneyFloat(p.PredictedExpense, currency))
		rows = append(rows, row)
		values = append(values, p.PredictedExpense)
	}
	total := forecastTotal(res.Points)
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", "", "", "", cli.Expense(cli.FormatMoneyFloat(total, currency))})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Statistical", "Neural", "Forecast"},
		Rows:    rows,
	}))
	fmt.Println()

	pairs := [][2]string{
		{"Trend", cli.RenderSparkline(values)},
		{"History days", cli.FormatNumber(int64(len(history)))},
		{"Average/day", cli.FormatMoneyFloat(res.Average, currency)},
		{"Neural model", neuralStatus(res)},
	}
	if run.ID != "" {
		pairs = append(pairs, [2]string{"Saved run", run.ID})
	}
	fmt.Print(cli.RenderKeyValues(pairs))

	if b, ok := s.cfg.Budget.BudgetAt(s.now); ok {
		spent := pipeline.MonthToDateSpend(pipeline.FilterByCategory(txs, flagCategory), s.now)
		bs := pipeline.ProjectBudget(spent, res.Points, &b, s.now)
		fmt.Println()
		fmt.Print(renderBudget(bs, currency))
	}
	return nil
}

func neuralStatus(res forecast.Result) string {
	switch {
	case res.NeuralUsed:
		return "blended"
	case res.NeuralErr != nil:
		return "unavailable (" + res.NeuralErr.Error() + ")"
	default:
		return "off"
	}
}

func pointAt(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

func forecastTotal(points []forecast.ForecastPoint) float64 {
	var total float64
	for _, p := range points {
		total += p.PredictedExpense
	}
	return total
}

func renderBudget(bs model.BudgetStats, currency string) string {
	if bs.MonthlyBudget == nil {
		return ""
	}
	projected := cli.FormatMoney(bs.ProjectedMonthly, currency)
	if bs.ProjectedMonthly.GreaterThan(*bs.MonthlyBudget) {
		over := bs.ProjectedMonthly.Sub(*bs.MonthlyBudget)
		projected = cli.OverBudget(projected + "  (" + cli.FormatMoney(over, currency) + " over)")
	}
	return cli.RenderKeyValues([][2]string{
		{"Monthly budget", cli.FormatMoney(*bs.MonthlyBudget, currency)},
		{"Spent this month", fmt.Sprintf("%s  (%s)", cli.FormatMoney(bs.CurrentSpend, currency), cli.FormatPercent(bs.BudgetUsedPercent))},
		{"Burn rate", cli.FormatMoney(bs.DailyBurnRate.Round(2), currency) + "/day"},
		{"Projected month", projected},
		{"Days remaining", fmt.Sprintf("%d", bs.DaysRemaining)},
		{"Left to spend", cli.FormatMoney(decimal.Max(bs.MonthlyBudget.Sub(bs.CurrentSpend), decimal.Zero), currency)},
	})
}
