package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetActive_UnknownKeepsCurrent(t *testing.T) {
	prev := Active
	t.Cleanup(func() { Active = prev })

	assert.True(t, SetActive("tokyo-night"))
	assert.Equal(t, "tokyo-night", Active.Name)

	assert.False(t, SetActive("no-such-theme"))
	assert.Equal(t, "tokyo-night", Active.Name)
}

func TestByName_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, FlexokiDark.Name, ByName("missing").Name)
	assert.Equal(t, Terminal.Name, ByName("terminal").Name)
}

func TestSeries_Cycles(t *testing.T) {
	s := FlexokiDark.Series(7)
	assert.Len(t, s, 7)
	assert.Equal(t, s[0], s[5])
	assert.NotEqual(t, s[0], s[1])
}
