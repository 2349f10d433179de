package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

func testTx(id string, daysAgo int, amount float64, typ model.TxType, category string) model.Transaction {
	return model.Transaction{
		ID:          id,
		Amount:      decimal.NewFromFloat(amount),
		Currency:    "USD",
		Type:        typ,
		Category:    category,
		Description: category + " purchase",
		OccurredAt:  testNow.AddDate(0, 0, -daysAgo).Add(-2 * time.Hour),
		Source:      "test",
	}
}

func testTransactions() []model.Transaction {
	var txs []model.Transaction
	for d := 1; d <= 20; d++ {
		cat := "Groceries"
		if d%3 == 0 {
			cat = "Transport"
		}
		txs = append(txs, testTx("e"+string(rune('a'+d)), d, float64(20+d%5*4), model.Expense, cat))
	}
	txs = append(txs, testTx("salary", 10, 2500, model.Income, "Salary"))
	return txs
}

func newTestApp(t *testing.T, cfg config.Config) App {
	t.Helper()
	a := NewApp(Options{Config: cfg, Period: pipeline.PeriodMonth, Horizon: 7})
	a.now = func() time.Time { return testNow }
	a.width, a.height = 140, 45
	return a
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	next, ok := m.(App)
	require.True(t, ok, "Update returned %T", m)
	return next, cmd
}

// loaded feeds a DataLoadedMsg and the resulting forecast back into a.
func loaded(t *testing.T, a App, txs []model.Transaction) App {
	t.Helper()
	a, cmd := update(t, a, DataLoadedMsg{Transactions: txs, LoadTime: 50 * time.Millisecond})
	require.NotNil(t, cmd)
	require.True(t, a.forecasting)

	msg := cmd()
	fm, ok := msg.(ForecastMsg)
	require.True(t, ok, "expected ForecastMsg, got %T", msg)
	a, _ = update(t, a, fm)
	return a
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDataLoadedProducesForecast(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())

	assert.False(t, a.forecasting)
	require.Len(t, a.result.Points, 7)
	assert.False(t, a.result.NeuralUsed)

	lastHistory := a.history[len(a.history)-1].Date
	assert.True(t, lastHistory.AddDate(0, 0, 1).Equal(a.result.Points[0].Date))
	for _, p := range a.result.Points {
		assert.GreaterOrEqual(t, p.PredictedExpense, 0.0)
	}

	assert.Equal(t, 21, a.stats.Transactions)
	assert.True(t, a.stats.Income.Equal(decimal.NewFromInt(2500)))
	require.NotEmpty(t, a.expenseCats)
	assert.Equal(t, "Groceries", a.expenseCats[0].Category)
}

func TestStaleForecastIsDropped(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())
	before := a.result

	a, _ = update(t, a, ForecastMsg{Gen: a.forecastGen - 1})
	assert.Equal(t, before.Points, a.result.Points)
}

func TestKeysChangeFilters(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())
	gen := a.forecastGen

	a, cmd := update(t, a, runeKey('p'))
	assert.Equal(t, pipeline.PeriodYear, a.period)
	assert.NotNil(t, cmd)
	assert.Equal(t, gen+1, a.forecastGen)

	a, _ = update(t, a, runeKey('+'))
	assert.Equal(t, 8, a.horizon)
	a, _ = update(t, a, runeKey('-'))
	a, _ = update(t, a, runeKey('-'))
	assert.Equal(t, 6, a.horizon)
}

func TestHorizonStaysInBounds(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())
	a.horizon = minHorizon
	a, cmd := update(t, a, runeKey('-'))
	assert.Equal(t, minHorizon, a.horizon)
	assert.Nil(t, cmd)
}

func TestTabShortcuts(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())

	for _, tc := range []struct {
		key  rune
		want int
	}{
		{'f', tabForecast},
		{'t', tabTransactions},
		{'c', tabCategories},
		{'x', tabSettings},
		{'o', tabOverview},
	} {
		a, _ = update(t, a, runeKey(tc.key))
		assert.Equal(t, tc.want, a.activeTab, "key %q", tc.key)
	}
}

func TestTransactionsNavigationAndSearch(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())
	a.activeTab = tabTransactions

	a, _ = update(t, a, runeKey('j'))
	a, _ = update(t, a, runeKey('j'))
	assert.Equal(t, 2, a.txState.cursor)

	a, _ = update(t, a, runeKey('G'))
	assert.Equal(t, len(a.periodTxs)-1, a.txState.cursor)

	a, _ = update(t, a, runeKey('/'))
	require.True(t, a.txState.searching)
	for _, r := range "transport" {
		a, _ = update(t, a, runeKey(r))
	}
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, a.txState.searching)
	assert.Equal(t, "transport", a.txState.searchQuery)

	rows := a.searchFilteredTransactions()
	require.NotEmpty(t, rows)
	for _, tx := range rows {
		assert.Equal(t, "Transport", tx.Category)
	}
	assert.Equal(t, 0, a.txState.cursor)

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, a.txState.searchQuery)
}

func TestFilterTransactionsBySearchMatchesAmount(t *testing.T) {
	txs := []model.Transaction{
		testTx("a", 1, 12.5, model.Expense, "Coffee"),
		testTx("b", 1, 99, model.Expense, "Books"),
	}
	got := filterTransactionsBySearch(txs, "12.50")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestBudgetProjectionUsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	monthly := 1000.0
	cfg.Budget.Monthly = &monthly

	a := loaded(t, newTestApp(t, cfg), testTransactions())
	require.True(t, a.hasBudget)
	assert.True(t, a.budget.CurrentSpend.Equal(a.monthSpend))
	assert.Equal(t, 16, a.budget.DaysRemaining)
	assert.True(t, a.budget.ProjectedMonthly.GreaterThanOrEqual(a.budget.CurrentSpend))
}

func TestNoBudgetWithoutConfig(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())
	assert.False(t, a.hasBudget)
}

func TestEmptyLedgerForecastsNothing(t *testing.T) {
	a := loaded(t, newTestApp(t, config.DefaultConfig()), nil)
	assert.Empty(t, a.result.Points)
	assert.Contains(t, a.View(), "no spending history")
}

func TestViewRendersEveryTab(t *testing.T) {
	cfg := config.DefaultConfig()
	monthly := 800.0
	cfg.Budget.Monthly = &monthly
	a := loaded(t, newTestApp(t, cfg), testTransactions())

	wants := map[int]string{
		tabOverview:     "Daily Spend",
		tabForecast:     "Next 7 days",
		tabTransactions: "Transactions [",
		tabCategories:   "Spending by Category",
		tabSettings:     "Monthly Budget",
	}
	for tab, want := range wants {
		a.activeTab = tab
		view := a.View()
		assert.Contains(t, view, want, "tab %d", tab)
		assert.Equal(t, a.height, lipgloss.Height(view), "tab %d height", tab)
	}
}

func TestViewTooNarrow(t *testing.T) {
	a := newTestApp(t, config.DefaultConfig())
	a.width = 60
	assert.Contains(t, a.View(), "too narrow")
}

func TestChartDateLabels(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 2, 28, 0, 0, 0, 0, time.Local),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.Local),
	}
	assert.Equal(t, []string{"Feb", "29", "Mar", "2"}, chartDateLabels(dates))
}

func TestNextPeriodWraps(t *testing.T) {
	assert.Equal(t, pipeline.PeriodWeek, nextPeriod(pipeline.PeriodAll))
	assert.Equal(t, pipeline.PeriodMonth, nextPeriod(pipeline.PeriodWeek))
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	v := NewSetupValues(cfg, "/tmp/exports")
	assert.Equal(t, "/tmp/exports", v.ImportDir)
	assert.Equal(t, "7", v.Horizon)

	v.Horizon = "14"
	v.Budget = "1200.50"
	v.Currency = "eur"
	v.Period = "year"
	v.Neural = false
	v.Theme = "tokyo-night"

	got, err := v.Apply(cfg)
	require.NoError(t, err)
	assert.Equal(t, 14, got.General.DefaultHorizon)
	require.NotNil(t, got.Budget.Monthly)
	assert.InDelta(t, 1200.50, *got.Budget.Monthly, 1e-9)
	assert.Equal(t, "EUR", got.General.Currency)
	assert.Equal(t, "year", got.General.DefaultPeriod)
	assert.True(t, got.Model.Disabled)
	assert.Equal(t, "tokyo-night", got.Appearance.Theme)
	assert.Equal(t, "/tmp/exports", got.General.ImportDir)
}

func TestSetupValuesApplyRejectsBadInput(t *testing.T) {
	cfg := config.DefaultConfig()
	for name, mutate := range map[string]func(*SetupValues){
		"horizon": func(v *SetupValues) { v.Horizon = "0" },
		"budget":  func(v *SetupValues) { v.Budget = "-5" },
		"period":  func(v *SetupValues) { v.Period = "fortnight" },
		"theme":   func(v *SetupValues) { v.Theme = "neon" },
	} {
		v := NewSetupValues(cfg, "")
		mutate(v)
		_, err := v.Apply(cfg)
		assert.Error(t, err, name)
	}
}

func TestSettingsSaveRejectsUnknownTheme(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() { theme.SetActive(theme.FlexokiDark.Name) })
	a := loaded(t, newTestApp(t, config.DefaultConfig()), testTransactions())
	a.activeTab = tabSettings
	a.settings.cursor = settingsFieldTheme
	a.settings.input = newSettingsInput()
	a.settings.input.SetValue("neon")

	a.settingsSave()
	assert.Error(t, a.settings.saveErr)

	a.settings.input.SetValue("terminal")
	a.settingsSave()
	assert.NoError(t, a.settings.saveErr)
	assert.Equal(t, "terminal", a.cfg.Appearance.Theme)
	assert.True(t, config.Exists())
}

func TestWeekdayAverages(t *testing.T) {
	mon := time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)
	hist := []forecast.HistoryPoint{
		{Date: mon, Expense: 10},
		{Date: mon.AddDate(0, 0, 7), Expense: 30},
		{Date: mon.AddDate(0, 0, 5), Expense: 8},
	}
	got := weekdayAverages(hist)
	assert.InDelta(t, 20, got[time.Monday], 1e-9)
	assert.InDelta(t, 8, got[time.Saturday], 1e-9)
	assert.Zero(t, got[time.Sunday])
}
