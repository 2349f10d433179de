package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// transactionsState holds the transactions tab state.
type transactionsState struct {
	cursor int
	offset int // first visible row

	searching   bool
	searchInput textinput.Model
	searchQuery string
}

func (s *transactionsState) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.offset > s.cursor {
		s.offset = s.cursor
	}
}

func (s *transactionsState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "description, category or amount"
	ti.CharLimit = 100
	ti.Width = 40
	ti.Prompt = "/ "
	return ti
}

func (a App) updateTransactionsKey(key string) (tea.Model, tea.Cmd, bool) {
	rows := a.searchFilteredTransactions()
	ts := &a.txState

	halfPage := max((a.height-scrollOverhead)/2, 1)

	switch key {
	case "/":
		ts.searching = true
		ts.searchInput = newSearchInput()
		ts.searchInput.SetValue(ts.searchQuery)
		ts.searchInput.Focus()
		return a, ts.searchInput.Cursor.BlinkCmd(), true
	case "esc":
		if ts.searchQuery != "" {
			ts.searchQuery = ""
			ts.cursor, ts.offset = 0, 0
		}
		return a, nil, true
	case "j", "down":
		ts.move(1, len(rows))
	case "k", "up":
		ts.move(-1, len(rows))
	case "g", "home":
		ts.cursor, ts.offset = 0, 0
	case "G", "end":
		ts.cursor = len(rows) - 1
		ts.clamp(len(rows))
	case "ctrl+d", "pgdown":
		ts.move(halfPage, len(rows))
	case "ctrl+u", "pgup":
		ts.move(-halfPage, len(rows))
	default:
		return a, nil, false
	}
	return a, nil, true
}

// updateTransactionsSearch handles keys while the search box is focused.
func (a App) updateTransactionsSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.txState.searchQuery = strings.TrimSpace(a.txState.searchInput.Value())
		a.txState.searching = false
		a.txState.cursor, a.txState.offset = 0, 0
		return a, nil
	case "esc":
		a.txState.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.txState.searchInput, cmd = a.txState.searchInput.Update(msg)
	return a, cmd
}

// searchFilteredTransactions returns the period's transactions narrowed by
// the current search query.
func (a App) searchFilteredTransactions() []model.Transaction {
	if a.txState.searchQuery == "" {
		return a.periodTxs
	}
	return filterTransactionsBySearch(a.periodTxs, a.txState.searchQuery)
}

// filterTransactionsBySearch keeps transactions whose description, category,
// source or formatted amount contains query, case-insensitively.
func filterTransactionsBySearch(txs []model.Transaction, query string) []model.Transaction {
	q := strings.ToLower(query)
	var out []model.Transaction
	for _, tx := range txs {
		if strings.Contains(strings.ToLower(tx.Description), q) ||
			strings.Contains(strings.ToLower(tx.Category), q) ||
			strings.Contains(strings.ToLower(tx.Source), q) ||
			strings.Contains(tx.Amount.StringFixed(2), q) {
			out = append(out, tx)
		}
	}
	return out
}

func (a App) renderTransactionsTab(cw, h int) string {
	t := theme.Active
	rows := a.searchFilteredTransactions()
	ts := a.txState

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var header string
	if ts.searching {
		header = ts.searchInput.View() + "\n"
	} else if ts.searchQuery != "" {
		header = mutedStyle.Render(fmt.Sprintf("filter: %q  [Esc] clear", ts.searchQuery)) + "\n"
	}

	if len(rows) == 0 {
		return components.ContentCard("Transactions", header+mutedStyle.Render("No transactions in this period"), cw)
	}

	if a.isCompactLayout() {
		return components.ContentCard(a.transactionsTitle(rows), header+a.renderTransactionList(rows, cw, h), cw)
	}

	leftW := cw * 3 / 5
	rightW := cw - leftW
	left := components.ContentCard(a.transactionsTitle(rows), header+a.renderTransactionList(rows, leftW, h), leftW)
	sel := rows[min(ts.cursor, len(rows)-1)]
	right := components.ContentCard("Detail", a.renderTransactionDetail(sel, rightW), rightW)
	return components.CardRow([]string{left, right})
}

func (a App) transactionsTitle(rows []model.Transaction) string {
	return fmt.Sprintf("Transactions [%d]", len(rows))
}

func (a App) renderTransactionList(rows []model.Transaction, w, h int) string {
	t := theme.Active
	ts := a.txState
	innerW := components.CardInnerWidth(w)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	incomeStyle := lipgloss.NewStyle().Foreground(t.Income()).Background(t.Surface)
	expenseStyle := lipgloss.NewStyle().Foreground(t.Expense()).Background(t.Surface)

	const dateW, amountW = 12, 14
	catW := 14
	descW := innerW - dateW - amountW - catW - 3
	if descW < 10 {
		catW = 0
		descW = innerW - dateW - amountW - 2
	}

	var b strings.Builder
	if catW > 0 {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %*s", dateW, "Date", catW, "Category", descW, "Description", amountW, "Amount")))
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %*s", dateW, "Date", descW, "Description", amountW, "Amount")))
	}
	b.WriteString("\n")

	visible := max(h-7, 3) // border, title, column header, footer
	offset := ts.offset
	if ts.cursor < offset {
		offset = ts.cursor
	}
	if ts.cursor >= offset+visible {
		offset = ts.cursor - visible + 1
	}
	end := min(offset+visible, len(rows))

	for i := offset; i < end; i++ {
		tx := rows[i]
		sign, amtStyle := "-", expenseStyle
		if tx.Type == model.Income {
			sign, amtStyle = "+", incomeStyle
		}
		amount := sign + a.money(tx.Amount)

		var line string
		if catW > 0 {
			line = fmt.Sprintf("%-*s %-*s %-*s ", dateW, tx.OccurredAt.Local().Format("Jan 02 15:04"),
				catW, truncStr(categoryOrDash(tx.Category), catW), descW, truncStr(tx.Description, descW))
		} else {
			line = fmt.Sprintf("%-*s %-*s ", dateW, tx.OccurredAt.Local().Format("Jan 02 15:04"),
				descW, truncStr(tx.Description, descW))
		}

		if i == ts.cursor {
			b.WriteString(selectedStyle.Render(line + fmt.Sprintf("%*s", amountW, amount)))
		} else {
			b.WriteString(rowStyle.Render(line) + amtStyle.Render(fmt.Sprintf("%*s", amountW, amount)))
		}
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d-%d of %d  [/] search  [j/k] move", offset+1, end, len(rows))))
	return b.String()
}

func (a App) renderTransactionDetail(tx model.Transaction, w int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(w)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	typ := "Expense"
	if tx.Type == model.Income {
		typ = "Income"
	}

	fields := [][2]string{
		{"Amount", a.money(tx.Amount)},
		{"Type", typ},
		{"Category", categoryOrDash(tx.Category)},
		{"When", tx.OccurredAt.Local().Format("Mon Jan 2 2006 15:04")},
		{"Source", tx.Source},
	}
	if tx.ExternalID != "" {
		fields = append(fields, [2]string{"External ID", tx.ExternalID})
	}

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s ", f[0])))
		b.WriteString(valueStyle.Render(truncStr(f[1], innerW-13)))
		b.WriteString("\n")
	}
	if tx.Description != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", innerW)))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(innerW).Foreground(t.TextPrimary).Background(t.Surface).Render(tx.Description))
	}
	return b.String()
}

func categoryOrDash(name string) string {
	if name == "" {
		return "-"
	}
	return name
}
