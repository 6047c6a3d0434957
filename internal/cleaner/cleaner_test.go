package cleaner

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalysis/internal/model"
)

func rawBar(t time.Time, o, h, l, c float64, v int64) model.RawBar {
	return model.RawBar{
		Time:        t,
		Open:        null.FloatFrom(o),
		High:        null.FloatFrom(h),
		Low:         null.FloatFrom(l),
		Close:       null.FloatFrom(c),
		Volume:      null.IntFrom(v),
		Dividends:   0.24,
		StockSplits: 0,
	}
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{150.005, 150.01},
		{150.004, 150.00},
		{150.0049, 150.00},
		{2.675, 2.68},
		{-1.005, -1.01},
		{189.98999786376953, 189.99},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundPrice(tt.in), "RoundPrice(%v)", tt.in)
	}
}

func TestClean_Deterministic(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	raw := []model.RawBar{rawBar(time.Date(2024, 7, 15, 0, 0, 0, 0, ny), 150.005, 151.2345, 149.9951, 150.5, 1200)}

	first, err := Clean(raw, "AAPL")
	require.NoError(t, err)
	second, err := Clean(raw, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	bar := first[0]
	assert.Equal(t, "AAPL", bar.Ticker)
	assert.Equal(t, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), bar.Date)
	assert.Equal(t, 150.01, bar.Open)
	assert.Equal(t, 151.23, bar.High)
	assert.Equal(t, 150.0, bar.Low)
	assert.Equal(t, 150.5, bar.Close)
	assert.Equal(t, int64(1200), bar.Volume)
}

func TestClean_KeepsWallClockDate(t *testing.T) {
	// 2024-07-15 22:00 in New York is already the 16th in UTC.
	ny := time.FixedZone("EDT", -4*3600)
	raw := []model.RawBar{rawBar(time.Date(2024, 7, 15, 22, 0, 0, 0, ny), 1, 1, 1, 1, 1)}

	bars, err := Clean(raw, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-15", bars[0].Date.Format(model.DateLayout))
}

func TestClean_MissingField(t *testing.T) {
	day := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	good := rawBar(day, 1, 2, 0.5, 1.5, 10)

	missingClose := good
	missingClose.Close = null.Float{}
	missingVolume := good
	missingVolume.Volume = null.Int{}
	negativeVolume := good
	negativeVolume.Volume = null.IntFrom(-1)
	nanHigh := good
	nanHigh.High = null.FloatFrom(math.NaN())
	noDate := good
	noDate.Time = time.Time{}

	tests := []struct {
		name  string
		bar   model.RawBar
		field string
	}{
		{"missing close", missingClose, "Close"},
		{"missing volume", missingVolume, "Volume"},
		{"negative volume", negativeVolume, "Volume"},
		{"nan high", nanHigh, "High"},
		{"no date", noDate, "Date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, err := Clean([]model.RawBar{good, tt.bar}, "AAPL")
			assert.Nil(t, bars)
			var cerr *Error
			require.True(t, errors.As(err, &cerr), "expected *cleaner.Error, got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
			assert.Equal(t, 1, cerr.Row)
		})
	}
}

func TestClean_EmptyTicker(t *testing.T) {
	_, err := Clean(nil, "  ")
	var cerr *Error
	assert.True(t, errors.As(err, &cerr))
}

func TestClean_EmptyInput(t *testing.T) {
	bars, err := Clean(nil, "AAPL")
	require.NoError(t, err)
	assert.Empty(t, bars)
}
