package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalysis/internal/model"
)

func bar(ticker, date string, close float64) model.PriceBar {
	d, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.PriceBar{Ticker: ticker, Date: d, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

var now = time.Date(2024, 7, 20, 15, 30, 0, 0, time.UTC)

func TestWindowStart(t *testing.T) {
	tests := []struct {
		option string
		want   string
		ok     bool
	}{
		{Range3Months, "2024-04-21", true},
		{Range6Months, "2024-01-22", true},
		{RangeYTD, "2024-01-01", true},
		{Range1Year, "2023-07-21", true},
		{Range3Years, "2021-07-21", true},
		{Range5Years, "2019-07-22", true},
		{RangeAll, "", false},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			start, ok := WindowStart(tt.option, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, start.Format(model.DateLayout))
			}
		})
	}
}

func TestFilterByRange_BoundaryInclusive(t *testing.T) {
	series := []model.PriceBar{
		bar("AAPL", "2024-04-20", 1), // 91 days back
		bar("AAPL", "2024-04-21", 2), // exactly 90 days back
		bar("AAPL", "2024-07-20", 3), // today
		bar("AAPL", "2024-07-21", 4), // future
	}
	got := FilterByRange(series, Range3Months, now)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Close)
	assert.Equal(t, 3.0, got[1].Close)
}

func TestFilterByRange_Passthrough(t *testing.T) {
	series := []model.PriceBar{bar("AAPL", "1999-01-01", 1), bar("AAPL", "2030-01-01", 2)}
	assert.Equal(t, series, FilterByRange(series, RangeAll, now))
	assert.Equal(t, series, FilterByRange(series, "bogus", now))
	assert.Equal(t, series, FilterByRange(series, "", now))
}

func TestFilterByRange_ThisYear(t *testing.T) {
	series := []model.PriceBar{bar("AAPL", "2023-12-29", 1), bar("AAPL", "2024-01-05", 2)}
	got := FilterByRange(series, RangeYTD, now)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Close)
}

func TestQuery_FiltersTickerAndSorts(t *testing.T) {
	all := []model.PriceBar{
		bar("AAPL", "2024-07-12", 160),
		bar("MSFT", "2024-07-05", 400),
		bar("AAPL", "2024-06-28", 150),
		bar("AAPL", "2024-07-05", 155),
	}
	got := Query(all, "AAPL", RangeAll, now)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{150, 155, 160}, Closes(got))

	assert.Empty(t, Query(all, "GOOG", RangeAll, now))
	assert.NotNil(t, Query(all, "GOOG", RangeAll, now))
}

func TestWindowMetrics(t *testing.T) {
	series := []model.PriceBar{
		bar("AAPL", "2024-06-28", 150),
		bar("AAPL", "2024-07-05", 155),
		bar("AAPL", "2024-07-12", 160),
	}

	last, err := LatestValue(series)
	require.NoError(t, err)
	assert.Equal(t, 160.0, last)
	assert.Equal(t, 10.0, AbsoluteChange(series))

	pct, err := PercentChange(series)
	require.NoError(t, err)
	assert.InDelta(t, 6.6666667, pct, 1e-6)
}

func TestWindowMetrics_ShortSeries(t *testing.T) {
	one := []model.PriceBar{bar("AAPL", "2024-07-12", 160)}
	assert.Equal(t, 0.0, AbsoluteChange(one))
	pct, err := PercentChange(one)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)

	_, err = LatestValue(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestPercentChange_ZeroFirstClose(t *testing.T) {
	series := []model.PriceBar{bar("X", "2024-07-05", 0), bar("X", "2024-07-12", 5)}
	_, err := PercentChange(series)
	assert.ErrorIs(t, err, model.ErrDivisionByZero)
}

func TestWeeklyMetrics(t *testing.T) {
	series := []model.PriceBar{
		bar("AAPL", "2024-06-28", 150),
		bar("AAPL", "2024-07-05", 155),
		bar("AAPL", "2024-07-12", 160),
	}
	change, err := WeeklyChange(series)
	require.NoError(t, err)
	assert.Equal(t, 5.0, change)

	pct, err := WeeklyPercentChange(series)
	require.NoError(t, err)
	assert.InDelta(t, 3.2258065, pct, 1e-6)

	_, err = WeeklyChange(series[:1])
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	_, err = WeeklyPercentChange(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	zero := []model.PriceBar{bar("X", "2024-07-05", 0), bar("X", "2024-07-12", 1)}
	_, err = WeeklyPercentChange(zero)
	assert.ErrorIs(t, err, model.ErrDivisionByZero)
}
