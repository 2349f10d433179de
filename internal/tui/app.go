// Package tui provides the interactive Bubble Tea dashboard for spendcast.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/store"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabForecast
	tabTransactions
	tabCategories
	tabSettings
)

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	scrollOverhead   = 10
	minContentHeight = 5

	minHorizon = 1
	maxHorizon = 60

	autoRefreshInterval = time.Minute
	forecastTimeout     = 30 * time.Second
)

var periodCycle = []pipeline.Period{
	pipeline.PeriodWeek,
	pipeline.PeriodMonth,
	pipeline.PeriodYear,
	pipeline.PeriodAll,
}

// DataLoadedMsg is sent when the initial import and ledger read finish.
type DataLoadedMsg struct {
	Transactions []model.Transaction
	Categories   []model.Category
	Sync         *pipeline.SyncResult
	LoadTime     time.Duration
	Err          error
}

// ProgressMsg reports import file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background refresh completes.
type RefreshDataMsg struct {
	Transactions []model.Transaction
	Categories   []model.Category
	LoadTime     time.Duration
	Err          error
}

// ForecastMsg carries a finished forecast. Gen ties it to the recompute
// that requested it so stale results are dropped.
type ForecastMsg struct {
	Gen    int
	Result forecast.Result
}

// Options configures a new dashboard.
type Options struct {
	Config    config.Config
	Ledger    *store.Ledger
	Predictor *forecast.Predictor
	ImportDir string
	Period    pipeline.Period
	Category  string
	Horizon   int
	Log       *logrus.Logger
	NeedSetup bool
}

// App is the root Bubble Tea model.
type App struct {
	cfg       config.Config
	ledger    *store.Ledger
	predictor *forecast.Predictor
	importDir string
	log       *logrus.Logger
	now       func() time.Time

	// Data
	txs       []model.Transaction
	cats      []model.Category
	loaded    bool
	loadErr   error
	loadTime  time.Duration
	lastSync  *pipeline.SyncResult
	lastFetch time.Time

	autoRefresh bool
	refreshing  bool

	// Derived for the current filter
	since, until time.Time
	stats        model.SummaryStats
	prevStats    model.SummaryStats
	days         []model.DailyStats
	expenseCats  []model.CategoryStats
	incomeCats   []model.CategoryStats
	periodTxs    []model.Transaction
	history      []forecast.HistoryPoint
	monthSpend   decimal.Decimal

	// Forecast
	result      forecast.Result
	forecastGen int
	forecasting bool
	budget      model.BudgetStats
	hasBudget   bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Filters
	period   pipeline.Period
	category string
	horizon  int

	// Per-tab state
	txState  transactionsState
	catState categoriesState
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool

	// Loading
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	period := opts.Period
	if period == "" {
		period = pipeline.PeriodMonth
	}
	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = forecast.DefaultHorizon
	}
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	predictor := opts.Predictor
	if predictor == nil {
		predictor = forecast.NewPredictor(forecast.WithTuning(opts.Config.Forecast.Tuning()), forecast.WithLogger(log))
	}

	return App{
		cfg:       opts.Config,
		ledger:    opts.Ledger,
		predictor: predictor,
		importDir: opts.ImportDir,
		log:       log,
		now:       time.Now,
		period:    period,
		category:  opts.Category,
		horizon:   horizon,
		needSetup: opts.NeedSetup,
		spinner:   sp,
		loadSub:   make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.ledger, a.importDir, a.log, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

// recompute derives every view from the loaded transactions and starts a
// forecast for the current filter.
func (a *App) recompute() tea.Cmd {
	now := a.now()
	a.since, a.until = a.period.Range(now)

	scoped := pipeline.FilterByCategory(a.txs, a.category)
	a.stats = pipeline.Aggregate(scoped, a.since, a.until)
	a.prevStats = model.SummaryStats{}
	if !a.since.IsZero() {
		prevSince := a.since.Add(-a.until.Sub(a.since))
		a.prevStats = pipeline.Aggregate(scoped, prevSince, a.since)
	}
	a.days = pipeline.FillGaps(pipeline.AggregateDays(scoped, a.since, a.until), a.since, a.until)
	a.expenseCats = pipeline.AggregateCategories(scoped, model.Expense, a.since, a.until)
	a.incomeCats = pipeline.AggregateCategories(scoped, model.Income, a.since, a.until)
	a.history = pipeline.History(a.txs, a.since, a.until, a.category)
	a.monthSpend = pipeline.MonthToDateSpend(scoped, now)

	a.periodTxs = pipeline.FilterByTime(scoped, a.since, a.until)
	sort.SliceStable(a.periodTxs, func(i, j int) bool {
		return a.periodTxs[i].OccurredAt.After(a.periodTxs[j].OccurredAt)
	})
	a.txState.clamp(len(a.searchFilteredTransactions()))

	a.forecastGen++
	a.forecasting = true
	return forecastCmd(a.predictor, a.history, a.horizon, a.forecastGen)
}

func (a *App) applyForecast(res forecast.Result) {
	a.result = res
	a.forecasting = false

	now := a.now()
	var monthly *decimal.Decimal
	if b, ok := a.cfg.Budget.BudgetAt(now); ok {
		monthly = &b
	}
	a.hasBudget = monthly != nil
	a.budget = pipeline.ProjectBudget(a.monthSpend, res.Points, monthly, now)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.loadErr = msg.Err
		a.loadTime = msg.LoadTime
		a.lastSync = msg.Sync
		a.lastFetch = a.now()
		a.txs = msg.Transactions
		a.cats = msg.Categories
		cmd := a.recompute()

		if a.needSetup {
			a.setupVals = NewSetupValues(a.cfg, a.importDir)
			a.setupForm = NewSetupForm(a.setupVals, len(a.txs))
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, tea.Batch(cmd, a.setupForm.Init())
		}
		return a, cmd

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case ForecastMsg:
		if msg.Gen != a.forecastGen {
			return a, nil
		}
		a.applyForecast(msg.Result)
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.forecasting {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && a.now().Sub(a.lastFetch) >= autoRefreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.ledger, a.importDir, a.log))
		}
		return a, tea.Batch(cmds...)

	case RefreshDataMsg:
		a.refreshing = false
		a.lastFetch = a.now()
		if msg.Err != nil {
			a.loadErr = msg.Err
			return a, nil
		}
		a.loadErr = nil
		a.txs = msg.Transactions
		a.cats = msg.Categories
		a.loadTime = msg.LoadTime
		return a, tea.Batch(a.recompute(), a.spinner.Tick)
	}

	// Unhandled messages (cursor blinks and the like) go to the setup form.
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp || (a.needSetup && a.setupForm != nil) {
		return a, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabTransactions && !a.txState.searching {
			a.txState.move(-1, len(a.searchFilteredTransactions()))
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabTransactions && !a.txState.searching {
			a.txState.move(1, len(a.searchFilteredTransactions()))
		}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}
	if a.activeTab == tabTransactions && a.txState.searching {
		return a.updateTransactionsSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabTransactions:
		if m, cmd, ok := a.updateTransactionsKey(key); ok {
			return m, cmd
		}
	case tabCategories:
		if key == "i" {
			a.catState.showIncome = !a.catState.showIncome
			return a, nil
		}
	case tabSettings:
		switch key {
		case "j", "down":
			if a.settings.cursor < settingsFieldCount-1 {
				a.settings.cursor++
			}
			return a, nil
		case "k", "up":
			if a.settings.cursor > 0 {
				a.settings.cursor--
			}
			return a, nil
		case "enter":
			return a.settingsStartEdit()
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.ledger, a.importDir, a.log)
		}
		return a, nil
	case "R":
		a.autoRefresh = !a.autoRefresh
		return a, nil
	case "p":
		a.period = nextPeriod(a.period)
		return a, tea.Batch(a.recompute(), a.spinner.Tick)
	case "+", "=":
		if a.horizon < maxHorizon {
			a.horizon++
			return a, tea.Batch(a.recompute(), a.spinner.Tick)
		}
		return a, nil
	case "-":
		if a.horizon > minHorizon {
			a.horizon--
			return a, tea.Batch(a.recompute(), a.spinner.Tick)
		}
		return a, nil
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg, err := a.setupVals.Apply(a.cfg)
		if err == nil {
			err = config.Save(cfg)
		}
		if err != nil {
			a.log.WithError(err).Warn("saving setup")
		}
		a.cfg = cfg
		theme.SetActive(cfg.Appearance.Theme)
		if p, perr := pipeline.ParsePeriod(cfg.General.DefaultPeriod); perr == nil {
			a.period = p
		}
		a.needSetup = false
		a.setupForm = nil
		return a, a.recompute()
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func nextPeriod(p pipeline.Period) pipeline.Period {
	for i, c := range periodCycle {
		if c == p {
			return periodCycle[(i+1)%len(periodCycle)]
		}
	}
	return pipeline.PeriodMonth
}

func (a App) currency() string {
	if a.cfg.General.Currency != "" {
		return a.cfg.General.Currency
	}
	return "USD"
}

func (a App) money(d decimal.Decimal) string {
	return cli.FormatMoney(d, a.currency())
}

func (a App) moneyFloat(v float64) string {
	return cli.FormatMoneyFloat(v, a.currency())
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  spendcast needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	w, h := a.width, a.height

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ spendcast"))
	b.WriteString(subtitleStyle.Render(" · Expense Forecasts"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := min(max(w-30, 20), 40)
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Importing files\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Reading ledger..."))
	}

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	type binding struct{ key, desc string }
	sections := []struct {
		title    string
		bindings []binding
	}{
		{"Navigation", []binding{
			{"o f t c x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Navigate lists"},
			{"g G", "First / Last row"},
			{"^d ^u", "Half-page scroll"},
		}},
		{"Forecast", []binding{
			{"p", "Cycle period"},
			{"+ -", "Longer / Shorter horizon"},
			{"i", "Income / Expense categories"},
		}},
		{"Actions", []binding{
			{"/", "Search transactions"},
			{"Enter", "Edit setting"},
			{"Esc", "Back / Cancel"},
			{"r", "Refresh data"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w, h := a.width, a.height
	cw := a.contentWidth()

	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	filter := pillStyle.Render(" ") + accentStyle.Render(a.period.Label())
	if a.category != "" {
		filter += pillStyle.Render(" │ ") + accentStyle.Render(a.category)
	}
	filter += pillStyle.Render(" │ horizon ") + accentStyle.Render(strconv.Itoa(a.horizon)+"d")
	if a.forecasting {
		filter += pillStyle.Render(" │ ") + a.spinner.View()
	}

	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filter)

	status := components.StatusInfo{
		DataAge:     fmt.Sprintf("%.1fs", a.loadTime.Seconds()),
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
	}
	if !a.forecasting && len(a.result.Points) > 0 {
		status.Model = modelLabel(a.result)
	}
	statusBar := components.RenderStatusBar(w, status)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabForecast:
		content = a.renderForecastTab(cw)
	case tabTransactions:
		content = a.renderTransactionsTab(cw, contentH)
	case tabCategories:
		content = a.renderCategoriesTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func modelLabel(res forecast.Result) string {
	if res.NeuralUsed {
		return "neural"
	}
	return "statistical"
}

// ─── Commands ───────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd syncs the import directory into the ledger and reads it back
// in a goroutine, streaming ProgressMsg updates and a final DataLoadedMsg
// through sub.
func loadDataCmd(ledger *store.Ledger, importDir string, log *logrus.Logger, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking so workers are never stalled by the UI.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			msg := DataLoadedMsg{}
			if ledger == nil {
				msg.Err = errors.New("no ledger open")
				msg.LoadTime = time.Since(start)
				sub <- msg
				return
			}
			if importDir != "" {
				res, err := pipeline.SyncDir(importDir, ledger, log, progressFn)
				if err != nil {
					log.WithError(err).Warn("import sync failed")
				}
				msg.Sync = res
			}
			msg.Transactions, msg.Categories, msg.Err = readLedger(ledger)
			msg.LoadTime = time.Since(start)
			sub <- msg
		}()

		return <-sub
	}
}

// waitForLoadMsg blocks until the next message from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd re-syncs and re-reads the ledger without progress UI.
func refreshDataCmd(ledger *store.Ledger, importDir string, log *logrus.Logger) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		if ledger == nil {
			return RefreshDataMsg{Err: errors.New("no ledger open")}
		}
		if importDir != "" {
			if _, err := pipeline.SyncDir(importDir, ledger, log, nil); err != nil {
				log.WithError(err).Warn("import sync failed")
			}
		}
		txs, cats, err := readLedger(ledger)
		return RefreshDataMsg{
			Transactions: txs,
			Categories:   cats,
			LoadTime:     time.Since(start),
			Err:          err,
		}
	}
}

func readLedger(ledger *store.Ledger) ([]model.Transaction, []model.Category, error) {
	txs, err := ledger.LoadTransactions(time.Time{}, time.Time{})
	if err != nil {
		return nil, nil, fmt.Errorf("loading transactions: %w", err)
	}
	cats, err := ledger.LoadCategories()
	if err != nil {
		return nil, nil, fmt.Errorf("loading categories: %w", err)
	}
	return txs, cats, nil
}

// forecastCmd runs the predictor off the UI goroutine.
func forecastCmd(p *forecast.Predictor, history []forecast.HistoryPoint, horizon, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), forecastTimeout)
		defer cancel()
		return ForecastMsg{Gen: gen, Result: p.Forecast(ctx, history, horizon)}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

// chartDateLabels builds compact x-axis labels for chronological dates:
// a month abbreviation at the start and at month boundaries, otherwise
// the day number.
func chartDateLabels(dates []time.Time) []string {
	labels := make([]string, len(dates))
	prevMonth := time.Month(0)
	for i, dt := range dates {
		switch {
		case i == 0 || (dt.Month() != prevMonth && i != len(dates)-1):
			labels[i] = dt.Format("Jan")
		default:
			labels[i] = strconv.Itoa(dt.Day())
		}
		prevMonth = dt.Month()
	}
	return labels
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background
// color so gaps between cards are painted.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// tabAtX returns the tab index at column x of the tab bar, or -1.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1
	}
	return -1
}
