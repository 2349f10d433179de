package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// categoriesState holds the categories tab state.
type categoriesState struct {
	showIncome bool
}

func (a App) renderCategoriesTab(cw int) string {
	cats, title := a.expenseCats, "Spending by Category"
	if a.catState.showIncome {
		cats, title = a.incomeCats, "Income by Category"
	}

	var b strings.Builder
	b.WriteString(components.ContentCard(title, a.renderCategoryTable(cats, cw), cw))
	b.WriteString("\n")
	b.WriteString(a.renderCategoryCatalog(cw))
	return b.String()
}

func (a App) renderCategoryTable(cats []model.CategoryStats, cw int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	amountColor := t.Expense()
	if a.catState.showIncome {
		amountColor = t.Income()
	}
	amountStyle := lipgloss.NewStyle().Foreground(amountColor).Background(t.Surface)
	shareStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	if len(cats) == 0 {
		return mutedStyle.Render("Nothing recorded in this period.  [i] switch income/expense")
	}

	palette := t.Series(5)
	nameStyles := make([]lipgloss.Style, len(palette))
	for i, c := range palette {
		nameStyles[i] = lipgloss.NewStyle().Foreground(c).Background(t.Surface)
	}

	const countW, amountW, shareW = 6, 14, 6
	barW := 0
	nameW := innerW - countW - amountW - shareW - 3
	if !a.isCompactLayout() {
		barW = min(30, nameW/2)
		nameW -= barW + 1
	}
	nameW = max(nameW, 10)

	var b strings.Builder
	hdr := fmt.Sprintf("%-*s %*s %*s %*s", nameW, "Category", countW, "Txns", amountW, "Amount", shareW, "Share")
	b.WriteString(headerStyle.Render(hdr))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n")

	for i, c := range cats {
		b.WriteString(nameStyles[i%len(palette)].Render(fmt.Sprintf("%-*s", nameW, truncStr(c.Category, nameW))))
		b.WriteString(rowStyle.Render(fmt.Sprintf(" %*s", countW, cli.FormatNumber(int64(c.Transactions)))))
		b.WriteString(amountStyle.Render(fmt.Sprintf(" %*s", amountW, a.money(c.Amount))))
		b.WriteString(shareStyle.Render(fmt.Sprintf(" %5.1f%%", c.SharePercent)))
		if barW > 0 {
			b.WriteString(spaceStyle.Render(" "))
			b.WriteString(components.ShareBar(c.SharePercent/100, barW))
		}
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("[i] switch income/expense"))
	return b.String()
}

// renderCategoryCatalog lists the ledger's known categories with the ones
// unused in this period dimmed.
func (a App) renderCategoryCatalog(cw int) string {
	t := theme.Active
	if len(a.cats) == 0 {
		return ""
	}

	used := make(map[string]bool, len(a.expenseCats)+len(a.incomeCats))
	for _, c := range a.expenseCats {
		used[c.Category] = true
	}
	for _, c := range a.incomeCats {
		used[c.Category] = true
	}

	activeStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	idleStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	sep := lipgloss.NewStyle().Background(t.Surface).Render("  ")

	innerW := components.CardInnerWidth(cw)
	var lines []string
	var line string
	for _, c := range a.cats {
		style := idleStyle
		if used[c.Name] {
			style = activeStyle
		}
		item := style.Render(c.Name)
		if line != "" && lipgloss.Width(line)+2+lipgloss.Width(item) > innerW {
			lines = append(lines, line)
			line = ""
		}
		if line != "" {
			line += sep
		}
		line += item
	}
	if line != "" {
		lines = append(lines, line)
	}
	return components.ContentCard(fmt.Sprintf("Categories [%d]", len(a.cats)), strings.Join(lines, "\n"), cw)
}
