package tui

import (
	"testing"

	"github.com/theirongolddev/spendcast/internal/tui/components"
)

func TestTabAtXMatchesTabWidths(t *testing.T) {
	n := len(components.Tabs)
	for active := 0; active < n; active++ {
		a := App{activeTab: active}
		pos := 0

		for i := 0; i < n; i++ {
			w := tabWidthForTest(i, active)
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1 // separator
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("active=%d x past last tab -> %d, want -1", active, got)
		}
	}
}

func tabWidthForTest(tabIdx, activeIdx int) int {
	nameWidths := []int{
		len("Overview"),
		len("Forecast"),
		len("Transactions"),
		len("Categories"),
		len("Settings"),
	}

	w := nameWidths[tabIdx] + 2 // horizontal padding
	if tabIdx != activeIdx && tabIdx == 4 {
		w += 3 // inactive Settings adds "[x]"
	}
	return w
}
