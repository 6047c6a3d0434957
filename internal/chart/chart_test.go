package chart

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalysis/internal/model"
)

func series(ticker string, closes ...float64) []model.PriceBar {
	start, _ := model.ParseDate("2024-06-28")
	out := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = model.PriceBar{Ticker: ticker, Date: start.AddDate(0, 0, 7*i), Close: c}
	}
	return out
}

func TestPriceFigure(t *testing.T) {
	s, err := PriceFigure("AAPL", series("AAPL", 150, 155, 160)).JSON()
	require.NoError(t, err)

	var fig Figure
	require.NoError(t, json.Unmarshal([]byte(s), &fig))
	assert.Equal(t, "$AAPL Stock Prices", fig.Layout.Title.Text)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, []string{"2024-06-28", "2024-07-05", "2024-07-12"}, fig.Data[0].X)
	assert.Equal(t, []float64{150, 155, 160}, fig.Data[0].Y)
	assert.Equal(t, "lines", fig.Data[0].Mode)
	assert.Nil(t, fig.Data[0].Line)
}

func TestPriceFigure_EmptySeries(t *testing.T) {
	s, err := PriceFigure("AAPL", nil).JSON()
	require.NoError(t, err)
	assert.Contains(t, s, `"x":[]`)
	assert.Contains(t, s, `"y":[]`)
}

func TestCompareFigure(t *testing.T) {
	fig := CompareFigure("Apple Inc.", series("AAPL", 1, 2), "Microsoft", series("MSFT", 3))
	assert.Equal(t, "Apple Inc. vs Microsoft Stock Prices", fig.Layout.Title.Text)
	assert.Equal(t, "Date", fig.Layout.XAxis.Title.Text)
	assert.Equal(t, "Price", fig.Layout.YAxis.Title.Text)
	require.Len(t, fig.Data, 2)
	assert.Equal(t, "blue", fig.Data[0].Line.Color)
	assert.Equal(t, "red", fig.Data[1].Line.Color)
	assert.Equal(t, "Microsoft", fig.Data[1].Name)
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG("AAPL", series("AAPL", 150, 155, 160, 152))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderPNG_TooFewPoints(t *testing.T) {
	_, err := RenderPNG("AAPL", series("AAPL", 150))
	assert.Error(t, err)
}
