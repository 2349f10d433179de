package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// SetupValues holds the first-run answers. The form binds to its fields;
// Apply copies them onto a config.
type SetupValues struct {
	ImportDir  string
	Period     string
	Horizon    string
	Budget     string
	Currency   string
	APIBaseURL string
	APIToken   string
	Neural     bool
	Theme      string
}

// NewSetupValues pre-fills answers from cfg. importDir overrides the
// configured directory when set.
func NewSetupValues(cfg config.Config, importDir string) *SetupValues {
	v := &SetupValues{
		ImportDir:  cfg.General.ImportDir,
		Period:     cfg.General.DefaultPeriod,
		Horizon:    strconv.Itoa(cfg.General.DefaultHorizon),
		Currency:   cfg.General.Currency,
		APIBaseURL: cfg.API.BaseURL,
		APIToken:   cfg.API.Token,
		Neural:     !cfg.Model.Disabled,
		Theme:      cfg.Appearance.Theme,
	}
	if importDir != "" {
		v.ImportDir = importDir
	}
	if cfg.Budget.Monthly != nil {
		v.Budget = strconv.FormatFloat(*cfg.Budget.Monthly, 'f', -1, 64)
	}
	if v.Period == "" {
		v.Period = string(pipeline.PeriodMonth)
	}
	if v.Theme == "" {
		v.Theme = theme.FlexokiDark.Name
	}
	return v
}

func validateHorizon(s string) error {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < minHorizon || h > maxHorizon {
		return fmt.Errorf("enter a whole number of days from %d to %d", minHorizon, maxHorizon)
	}
	return nil
}

func validateBudget(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return errors.New("enter a positive amount or leave blank")
	}
	return nil
}

// NewSetupForm builds the first-run wizard. txCount is shown in the intro.
func NewSetupForm(v *SetupValues, txCount int) *huh.Form {
	themeOpts := make([]huh.Option[string], len(theme.All))
	for i, th := range theme.All {
		themeOpts[i] = huh.NewOption(th.Name, th.Name)
	}

	intro := "Let's set up a few things."
	if txCount > 0 {
		intro = fmt.Sprintf("Your ledger has %d transactions. Let's set up a few things.", txCount)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to spendcast").
				Description(intro),
			huh.NewInput().
				Title("Import directory").
				Description("CSV or JSON exports to sync on startup. Leave blank to skip.").
				Value(&v.ImportDir),
			huh.NewInput().
				Title("Currency").
				Description("ISO 4217 code used for display.").
				Value(&v.Currency),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default period").
				Options(
					huh.NewOption("Last 7 days", string(pipeline.PeriodWeek)),
					huh.NewOption("Last month", string(pipeline.PeriodMonth)),
					huh.NewOption("Last year", string(pipeline.PeriodYear)),
					huh.NewOption("All time", string(pipeline.PeriodAll)),
				).
				Value(&v.Period),
			huh.NewInput().
				Title("Forecast horizon (days)").
				Value(&v.Horizon).
				Validate(validateHorizon),
			huh.NewInput().
				Title("Monthly budget").
				Description("Leave blank for no budget.").
				Value(&v.Budget).
				Validate(validateBudget),
			huh.NewConfirm().
				Title("Use the neural model when available?").
				Value(&v.Neural),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Ledger API base URL").
				Description("Optional REST source for `spendcast import --api`.").
				Value(&v.APIBaseURL),
			huh.NewInput().
				Title("Ledger API token").
				EchoMode(huh.EchoModePassword).
				Value(&v.APIToken),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	).WithTheme(huh.ThemeCatppuccin())
}

// Apply validates the answers and returns cfg updated with them.
func (v *SetupValues) Apply(cfg config.Config) (config.Config, error) {
	if err := validateHorizon(v.Horizon); err != nil {
		return cfg, err
	}
	if err := validateBudget(v.Budget); err != nil {
		return cfg, err
	}
	period, err := pipeline.ParsePeriod(v.Period)
	if err != nil {
		return cfg, err
	}
	if _, ok := theme.Lookup(v.Theme); !ok {
		return cfg, fmt.Errorf("unknown theme %q", v.Theme)
	}

	cfg.General.ImportDir = strings.TrimSpace(v.ImportDir)
	cfg.General.DefaultPeriod = string(period)
	cfg.General.DefaultHorizon, _ = strconv.Atoi(strings.TrimSpace(v.Horizon))
	if c := strings.ToUpper(strings.TrimSpace(v.Currency)); c != "" {
		cfg.General.Currency = c
	}
	if b := strings.TrimSpace(v.Budget); b != "" {
		d, _ := decimal.NewFromString(b)
		f := d.InexactFloat64()
		cfg.Budget.Monthly = &f
	} else {
		cfg.Budget.Monthly = nil
	}
	cfg.API.BaseURL = strings.TrimSpace(v.APIBaseURL)
	cfg.API.Token = strings.TrimSpace(v.APIToken)
	cfg.Model.Disabled = !v.Neural
	cfg.Appearance.Theme = v.Theme
	return cfg, nil
}
