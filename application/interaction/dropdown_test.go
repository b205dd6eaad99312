package interaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharness-go/core/failure"
	"webharness-go/core/randutil"
	"webharness-go/infrastructure/browser/browsertest"
)

func TestLocateDropdown(t *testing.T) {
	ctx := context.Background()
	s, d := newSession(t)
	d.Add(units, browsertest.Select("Metric", "Imperial"))
	d.Add(button, browsertest.NewNode("button"))

	dd, err := LocateDropdown(ctx, s, units)
	require.NoError(t, err)
	assert.Equal(t, units, dd.Selector())

	opts, err := dd.Options(ctx)
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	_, err = LocateDropdown(ctx, s, button)
	assert.ErrorIs(t, err, failure.ErrElementNotSelectable)
}

func TestSelectByVisibleText(t *testing.T) {
	ctx := context.Background()
	s, d := newSession(t)
	node := browsertest.Select("Choose...", "Grey Wolf", "Brown Bear")
	d.Add(units, node)

	require.NoError(t, SelectByVisibleText(ctx, s, units, "Brown Bear", false))
	assert.Equal(t, 2, node.SelectedIndex())

	require.NoError(t, SelectByVisibleText(ctx, s, units, "Wolf", true))
	assert.Equal(t, 1, node.SelectedIndex())

	err := SelectByVisibleText(ctx, s, units, "Wolf", false)
	assert.ErrorIs(t, err, failure.ErrNotFound, "exact match required without partial")

	text, err := ReadSelectedOptionText(ctx, s, units)
	require.NoError(t, err)
	assert.Equal(t, "Grey Wolf", text)
}

func TestSelectByIndex(t *testing.T) {
	ctx := context.Background()
	s, d := newSession(t)
	node := browsertest.Select("A", "B", "C")
	d.Add(units, node)

	require.NoError(t, SelectByIndex(ctx, s, units, 2))
	assert.Equal(t, 2, node.SelectedIndex())
	assert.Equal(t, "C", node.Value())

	for _, i := range []int{-1, 3} {
		err := SelectByIndex(ctx, s, units, i)
		assert.ErrorIs(t, err, failure.ErrNotFound, "index %d", i)
	}
	assert.Equal(t, 2, node.SelectedIndex(), "failed selections leave the selection alone")
}

func TestSelectRandomOption_NeverPlaceholder(t *testing.T) {
	ctx := context.Background()
	s, d := newSession(t)
	node := browsertest.Select("Placeholder", "A", "B", "C")
	d.Add(units, node)

	seen := make(map[string]int)
	for i := 0; i < 300; i++ {
		text, err := SelectRandomOption(ctx, s, units)
		require.NoError(t, err)
		require.NotZero(t, node.SelectedIndex(), "index 0 must never be chosen")
		seen[text]++
	}

	assert.NotContains(t, seen, "Placeholder")
	for _, want := range []string{"A", "B", "C"} {
		assert.Greater(t, seen[want], 50, "option %s should be picked roughly a third of the time", want)
	}
}

func TestSelectRandomOption_TooFewOptions(t *testing.T) {
	s, d := newSession(t)
	d.Add(units, browsertest.Select("Placeholder"))

	_, err := SelectRandomOption(context.Background(), s, units)
	assert.ErrorIs(t, err, failure.ErrNotFound)
}

func TestSelectRandomOption_Reproducible(t *testing.T) {
	pick := func(seed uint64) []string {
		s, d := newSession(t)
		s.random = randutil.New(seed)
		d.Add(units, browsertest.Select("Placeholder", "A", "B", "C", "D", "E"))

		var out []string
		for i := 0; i < 10; i++ {
			text, err := SelectRandomOption(context.Background(), s, units)
			require.NoError(t, err)
			out = append(out, text)
		}
		return out
	}

	assert.Equal(t, pick(42), pick(42))
}

func TestSelectOptionOtherThan(t *testing.T) {
	tests := []struct {
		name     string
		options  []string
		excluded string
		want     string
		wantIdx  int
	}{
		{"first non-matching from index 1", []string{"Dog", "Wolf", "Bear", "Fox"}, "Bear", "Wolf", 1},
		{"skips excluded at index 1", []string{"Dog", "Bear", "Wolf", "Fox"}, "Bear", "Wolf", 2},
		{"index 0 is never scanned", []string{"Dog", "Bear", "Bear"}, "Bear", "", 0},
		{"single option", []string{"Dog"}, "Bear", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d := newSession(t)
			node := browsertest.Select(tt.options...)
			d.Add(units, node)

			got, err := SelectOptionOtherThan(context.Background(), s, units, tt.excluded)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantIdx, node.SelectedIndex())
		})
	}
}
