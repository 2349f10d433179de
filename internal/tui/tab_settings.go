package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

const (
	settingsFieldTheme = iota
	settingsFieldPeriod
	settingsFieldHorizon
	settingsFieldBudget
	settingsFieldCurrency
	settingsFieldImportDir
	settingsFieldAPIBaseURL
	settingsFieldAPIToken
	settingsFieldModelPath
	settingsFieldNeural
	settingsFieldCount
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool
	saveErr error
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := a.cfg
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldTheme:
		names := make([]string, len(theme.All))
		for i, th := range theme.All {
			names[i] = th.Name
		}
		ti.Placeholder = strings.Join(names, ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldPeriod:
		ti.Placeholder = "week, month, year or all"
		ti.SetValue(string(a.period))
	case settingsFieldHorizon:
		ti.Placeholder = fmt.Sprintf("%d-%d days", minHorizon, maxHorizon)
		ti.SetValue(strconv.Itoa(a.horizon))
	case settingsFieldBudget:
		ti.Placeholder = "monthly amount, empty to clear"
		if cfg.Budget.Monthly != nil {
			ti.SetValue(strconv.FormatFloat(*cfg.Budget.Monthly, 'f', -1, 64))
		}
	case settingsFieldCurrency:
		ti.Placeholder = "ISO 4217 code, e.g. USD"
		ti.SetValue(cfg.General.Currency)
	case settingsFieldImportDir:
		ti.Placeholder = "directory of CSV/JSON exports"
		ti.SetValue(cfg.General.ImportDir)
	case settingsFieldAPIBaseURL:
		ti.Placeholder = "https://ledger.example.com"
		ti.SetValue(cfg.API.BaseURL)
	case settingsFieldAPIToken:
		ti.Placeholder = "bearer token"
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
		ti.SetValue(cfg.API.Token)
	case settingsFieldModelPath:
		ti.Placeholder = config.ModelPath(cfg)
		ti.SetValue(cfg.Model.Path)
	case settingsFieldNeural:
		ti.Placeholder = "on or off"
		ti.SetValue(onOff(!cfg.Model.Disabled))
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		cmd := a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, cmd
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates the edited value, applies it to the running
// dashboard and persists the config. It returns a recompute command when
// the change affects the forecast.
func (a *App) settingsSave() tea.Cmd {
	cfg := a.cfg
	val := strings.TrimSpace(a.settings.input.Value())
	var cmd tea.Cmd

	switch a.settings.cursor {
	case settingsFieldTheme:
		if !theme.SetActive(val) {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return nil
		}
		cfg.Appearance.Theme = val
	case settingsFieldPeriod:
		p, err := pipeline.ParsePeriod(val)
		if err != nil {
			a.settings.saveErr = err
			return nil
		}
		cfg.General.DefaultPeriod = string(p)
		a.period = p
		cmd = a.recompute()
	case settingsFieldHorizon:
		h, err := strconv.Atoi(val)
		if err != nil || h < minHorizon || h > maxHorizon {
			a.settings.saveErr = fmt.Errorf("horizon must be %d-%d days", minHorizon, maxHorizon)
			return nil
		}
		cfg.General.DefaultHorizon = h
		a.horizon = h
		cmd = a.recompute()
	case settingsFieldBudget:
		if val == "" {
			cfg.Budget.Monthly = nil
		} else {
			d, err := decimal.NewFromString(val)
			if err != nil || !d.IsPositive() {
				a.settings.saveErr = errors.New("budget must be a positive number")
				return nil
			}
			f := d.InexactFloat64()
			cfg.Budget.Monthly = &f
		}
	case settingsFieldCurrency:
		cfg.General.Currency = strings.ToUpper(val)
	case settingsFieldImportDir:
		cfg.General.ImportDir = val
	case settingsFieldAPIBaseURL:
		cfg.API.BaseURL = val
	case settingsFieldAPIToken:
		cfg.API.Token = val
	case settingsFieldModelPath:
		cfg.Model.Path = val
	case settingsFieldNeural:
		switch strings.ToLower(val) {
		case "on", "true", "yes", "1":
			cfg.Model.Disabled = false
		case "off", "false", "no", "0":
			cfg.Model.Disabled = true
		default:
			a.settings.saveErr = errors.New("expected on or off")
			return nil
		}
	}

	a.cfg = cfg
	if a.settings.cursor == settingsFieldBudget && !a.forecasting {
		a.applyForecast(a.result)
	}
	a.settings.saveErr = config.Save(cfg)
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) > 12:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "****"
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := a.cfg

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	budget := "(not set)"
	if cfg.Budget.Monthly != nil {
		budget = a.money(decimal.NewFromFloat(*cfg.Budget.Monthly)) + "/month"
	}
	if len(cfg.Budget.Schedule) > 0 {
		budget += fmt.Sprintf(" · %d scheduled", len(cfg.Budget.Schedule))
	}

	fields := [settingsFieldCount][2]string{
		settingsFieldTheme:      {"Theme", cfg.Appearance.Theme},
		settingsFieldPeriod:     {"Period", string(a.period)},
		settingsFieldHorizon:    {"Horizon", fmt.Sprintf("%d days", a.horizon)},
		settingsFieldBudget:     {"Monthly Budget", budget},
		settingsFieldCurrency:   {"Currency", a.currency()},
		settingsFieldImportDir:  {"Import Dir", orNotSet(cfg.General.ImportDir)},
		settingsFieldAPIBaseURL: {"API Base URL", orNotSet(cfg.API.BaseURL)},
		settingsFieldAPIToken:   {"API Token", maskSecret(config.GetAPIToken(cfg))},
		settingsFieldModelPath:  {"Model Path", config.ModelPath(cfg)},
		settingsFieldNeural:     {"Neural Model", onOff(!cfg.Model.Disabled)},
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f[0])))
			form.WriteString(a.settings.input.View())
			form.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f[0]+":"))
			value := selectedStyle.Render(truncStr(f[1], innerW-22))
			form.WriteString(marker + label + value)
			if pad := innerW - lipgloss.Width(marker) - lipgloss.Width(label) - lipgloss.Width(value); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		} else {
			form.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			form.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f[0]+":")))
			form.WriteString(valueStyle.Render(truncStr(f[1], innerW-22)))
		}
		form.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		form.WriteString("\n")
		form.WriteString(lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface).
			Render(fmt.Sprintf("Not saved: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		form.WriteString("\n")
		form.WriteString(greenStyle.Render("Saved!"))
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var info strings.Builder
	infoRows := [][2]string{
		{"Ledger", config.LedgerPath(cfg)},
		{"Config file", config.ConfigPath()},
		{"Transactions", cli.FormatNumber(int64(len(a.txs)))},
		{"Categories", cli.FormatNumber(int64(len(a.cats)))},
		{"Load time", fmt.Sprintf("%.1fs", a.loadTime.Seconds())},
	}
	if a.lastSync != nil {
		infoRows = append(infoRows, [2]string{"Last import", fmt.Sprintf("%d files, %d reparsed, %d removed",
			a.lastSync.TotalFiles, a.lastSync.Reparsed, a.lastSync.Removed)})
	}
	for _, r := range infoRows {
		info.WriteString(labelStyle.Render(fmt.Sprintf("%-14s", r[0])))
		info.WriteString(valueStyle.Render(truncStr(r[1], innerW-14)))
		info.WriteString("\n")
	}

	return components.ContentCard("Settings", form.String(), cw) + "\n" +
		components.ContentCard("General", strings.TrimRight(info.String(), "\n"), cw)
}
