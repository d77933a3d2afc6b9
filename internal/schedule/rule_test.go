package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestRule_Next(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		from time.Time
		want time.Time
	}{
		{"daily", Rule{Frequency: Daily, Interval: 1}, date(2024, 3, 1), date(2024, 3, 2)},
		{"every three days", Rule{Frequency: Daily, Interval: 3}, date(2024, 3, 30), date(2024, 4, 2)},
		{"zero interval reads as one", Rule{Frequency: Daily}, date(2024, 3, 1), date(2024, 3, 2)},
		{"biweekly", Rule{Frequency: Weekly, Interval: 2}, date(2024, 3, 1), date(2024, 3, 15)},
		{"monthly", Rule{Frequency: Monthly, Interval: 1}, date(2024, 3, 15), date(2024, 4, 15)},
		{"monthly clamps to leap february", Rule{Frequency: Monthly, Interval: 1}, date(2024, 1, 31), date(2024, 2, 29)},
		{"monthly clamps to short month", Rule{Frequency: Monthly, Interval: 1}, date(2023, 1, 31), date(2023, 2, 28)},
		{"monthly across year", Rule{Frequency: Monthly, Interval: 3}, date(2023, 11, 30), date(2024, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Next(tt.from))
		})
	}
}

func TestRule_Validate(t *testing.T) {
	assert.NoError(t, Rule{Frequency: Weekly, Interval: 1}.Validate())
	assert.ErrorIs(t, Rule{Frequency: "hourly", Interval: 1}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, Rule{Frequency: Daily, Interval: -1}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, Rule{Frequency: Daily, Interval: 1000}.Validate(), ErrInvalidRule)
}

func TestNextAfter(t *testing.T) {
	rule := Rule{Frequency: Weekly, Interval: 1}

	t.Run("on time completion", func(t *testing.T) {
		next, ok := NextAfter(rule, date(2024, 5, 1), date(2024, 5, 1), nil)
		require.True(t, ok)
		assert.Equal(t, date(2024, 5, 8), next)
	})

	t.Run("late completion skips missed occurrences", func(t *testing.T) {
		next, ok := NextAfter(rule, date(2024, 5, 1), date(2024, 5, 20), nil)
		require.True(t, ok)
		assert.Equal(t, date(2024, 5, 22), next)
	})

	t.Run("end date cuts off", func(t *testing.T) {
		end := date(2024, 5, 7)
		_, ok := NextAfter(rule, date(2024, 5, 1), date(2024, 5, 1), &end)
		assert.False(t, ok)
	})

	t.Run("occurrence on end date is kept", func(t *testing.T) {
		end := date(2024, 5, 8)
		next, ok := NextAfter(rule, date(2024, 5, 1), date(2024, 5, 1), &end)
		require.True(t, ok)
		assert.Equal(t, end, next)
	})
}

func TestOccurrences(t *testing.T) {
	rule := Rule{Frequency: Daily, Interval: 2}
	end := date(2024, 6, 9)

	got := Occurrences(rule, date(2024, 6, 1), date(2024, 6, 4), date(2024, 6, 30), &end)

	assert.Equal(t, []time.Time{date(2024, 6, 5), date(2024, 6, 7), date(2024, 6, 9)}, got)
	assert.Empty(t, Occurrences(rule, date(2024, 6, 1), date(2024, 5, 1), date(2024, 5, 30), nil))
}

func TestMonthlySeriesKeepsAnchorDay(t *testing.T) {
	rule := Rule{Frequency: Monthly, Interval: 1}
	anchor := date(2023, 1, 31)

	assert.Equal(t, date(2023, 3, 31), rule.At(anchor, 2))

	next, ok := NextAfter(rule, anchor, date(2023, 2, 28), nil)
	require.True(t, ok)
	assert.Equal(t, date(2023, 3, 31), next)

	got := Occurrences(rule, anchor, date(2023, 1, 1), date(2023, 5, 31), nil)
	assert.Equal(t, []time.Time{date(2023, 1, 31), date(2023, 2, 28), date(2023, 3, 31), date(2023, 4, 30), date(2023, 5, 31)}, got)
}

func TestRule_ScanValue(t *testing.T) {
	v, err := Rule{Frequency: Monthly, Interval: 2}.Value()
	require.NoError(t, err)

	var r Rule
	require.NoError(t, r.Scan(v))
	assert.Equal(t, Rule{Frequency: Monthly, Interval: 2}, r)

	require.NoError(t, r.Scan([]byte(`{"frequency":"daily","interval":1}`)))
	assert.Equal(t, Daily, r.Frequency)
	assert.Error(t, r.Scan(42))

	v, err = Rule{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, r.Scan(nil))
	assert.True(t, r.IsZero())
}
