package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

func init() {
	// Background fills only show up as ANSI codes under a color profile.
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRow_PadsShortCardsWithBackground(t *testing.T) {
	theme.SetActive("flexoki-dark")

	budget := ContentCard("Budget", BudgetBar("Used", 0.4, "€400 of €1,000", 10, 20), 40)
	cats := ContentCard("Top Categories", "Groceries\nRent\nTransport\nDining\nUtilities", 40)

	budgetLines := len(strings.Split(budget, "\n"))
	catLines := len(strings.Split(cats, "\n"))
	if budgetLines >= catLines {
		t.Fatalf("budget card has %d lines, want fewer than %d", budgetLines, catLines)
	}

	lines := strings.Split(CardRow([]string{cats, budget}), "\n")
	if len(lines) != catLines {
		t.Errorf("joined height = %d, want %d", len(lines), catLines)
	}

	for i := budgetLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("padding line %d is unstyled: %q", i, lines[i])
		}
	}
}

func TestCardRow_WidthConsistency(t *testing.T) {
	theme.SetActive("flexoki-dark")

	spent := MetricCard(Metric{Label: "Spent", Value: "€1,240", Delta: "+12%", Tone: ToneBad}, 30)
	forecast := ContentCard("Next 7d", "Mon\nTue\nWed\nThu\nFri\nSat\nSun", 20)

	lines := strings.Split(CardRow([]string{forecast, spent}), "\n")
	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Errorf("line %d width = %d, want %d", i, w, want)
		}
	}

	if tall := len(strings.Split(forecast, "\n")); len(lines) != tall {
		t.Errorf("joined has %d lines, want %d", len(lines), tall)
	}
}
