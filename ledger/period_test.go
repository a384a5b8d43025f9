package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		name   string
		config PeriodConfig
		date   time.Time
		start  time.Time
		end    time.Time
	}{
		{"leap february", PeriodConfig{Type: PeriodMonth}, NewDate(2024, time.February, 10), NewDate(2024, time.February, 1), NewDate(2024, time.February, 29)},
		{"second quarter", PeriodConfig{Type: PeriodQuarter}, NewDate(2024, time.May, 15), NewDate(2024, time.April, 1), NewDate(2024, time.June, 30)},
		{"last quarter", PeriodConfig{Type: PeriodQuarter}, NewDate(2024, time.December, 31), NewDate(2024, time.October, 1), NewDate(2024, time.December, 31)},
		{"calendar year", PeriodConfig{Type: PeriodYear}, NewDate(2024, time.July, 4), NewDate(2024, time.January, 1), NewDate(2024, time.December, 31)},
		{"fiscal year before start", PeriodConfig{Type: PeriodFiscalYear, FiscalYearStartMonth: time.April}, NewDate(2024, time.February, 10), NewDate(2023, time.April, 1), NewDate(2024, time.March, 31)},
		{"fiscal year on start", PeriodConfig{Type: PeriodFiscalYear, FiscalYearStartMonth: time.April}, NewDate(2024, time.April, 1), NewDate(2024, time.April, 1), NewDate(2025, time.March, 31)},
		{"fiscal year without start month", PeriodConfig{Type: PeriodFiscalYear}, NewDate(2024, time.June, 1), NewDate(2024, time.January, 1), NewDate(2024, time.December, 31)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.config.PeriodFor(tc.date)
			assert.Equal(t, tc.start, p.Start)
			assert.Equal(t, tc.end, p.End)
			assert.True(t, p.Contains(tc.date))
		})
	}
}

func TestPeriod_NextAndPrevious(t *testing.T) {
	month := PeriodConfig{Type: PeriodMonth}
	dec2024 := month.PeriodFor(NewDate(2024, time.December, 5))

	next := month.Next(dec2024)
	assert.Equal(t, NewDate(2025, time.January, 1), next.Start)
	assert.Equal(t, NewDate(2025, time.January, 31), next.End)

	quarter := PeriodConfig{Type: PeriodQuarter}
	prev := quarter.Previous(quarter.PeriodFor(NewDate(2024, time.February, 1)))
	assert.Equal(t, NewDate(2023, time.October, 1), prev.Start)
	assert.Equal(t, NewDate(2023, time.December, 31), prev.End)
}

func TestPeriod_Bounds(t *testing.T) {
	p, err := NewPeriod(NewDate(2024, time.March, 1), time.Date(2024, time.March, 31, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 31, p.Days())
	assert.Equal(t, NewDate(2024, time.April, 1), p.EndExclusive())
	assert.True(t, p.Contains(time.Date(2024, time.March, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(NewDate(2024, time.April, 1)))
	assert.Equal(t, "[2024-03-01, 2024-03-31]", p.String())

	_, err = NewPeriod(NewDate(2024, time.March, 2), NewDate(2024, time.March, 1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParsePeriodType("week")
	assert.ErrorIs(t, err, ErrValidation)
	typ, err := ParsePeriodType("quarter")
	require.NoError(t, err)
	assert.Equal(t, PeriodQuarter, typ)
}

func TestFoldStatement(t *testing.T) {
	before := []ImpactTotal{{Type: TxIncome, Impact: dec("250"), Count: 1}}
	within := []ImpactTotal{
		{Type: TxExpense, Impact: dec("-300"), Count: 1},
		{Type: TxFee, Impact: dec("-2.5"), Count: 2},
		{Type: TxRefund, Impact: dec("40"), Count: 1},
	}

	st := FoldStatement(dec("1000"), before, within)
	assert.True(t, st.Opening.Equal(dec("1250")))
	assert.True(t, st.Inflows.Equal(dec("40")))
	assert.True(t, st.Outflows.Equal(dec("302.5")))
	assert.True(t, st.Closing.Equal(dec("987.5")))
	assert.True(t, st.Net().Equal(dec("-262.5")))
	assert.Equal(t, 4, st.Count)

	empty := FoldStatement(dec("10"), nil, nil)
	assert.True(t, empty.Closing.Equal(dec("10")))
	assert.Zero(t, empty.Count)
}
