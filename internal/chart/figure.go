// Package chart renders price series for the web front end: Plotly figure
// JSON for the interactive page and PNG images for direct embedding.
package chart

import (
	"encoding/json"
	"fmt"

	"StockAnalysis/internal/calculator"
	"StockAnalysis/internal/model"
)

// Figure is the subset of a Plotly figure the front end consumes.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one line of a figure.
type Trace struct {
	Type string    `json:"type"`
	Mode string    `json:"mode"`
	Name string    `json:"name"`
	X    []string  `json:"x"`
	Y    []float64 `json:"y"`
	Line *Line     `json:"line,omitempty"`
}

// Line styles a trace.
type Line struct {
	Color string `json:"color"`
}

// Layout holds the figure title and axis labels.
type Layout struct {
	Title Title `json:"title"`
	XAxis Axis  `json:"xaxis"`
	YAxis Axis  `json:"yaxis"`
}

type Title struct {
	Text string `json:"text"`
}

type Axis struct {
	Title Title `json:"title"`
}

// closeTrace plots closing prices by date.
func closeTrace(name, color string, series []model.PriceBar) Trace {
	t := Trace{
		Type: "scatter",
		Mode: "lines",
		Name: name,
		X:    make([]string, len(series)),
		Y:    calculator.Closes(series),
	}
	if color != "" {
		t.Line = &Line{Color: color}
	}
	for i, b := range series {
		t.X[i] = b.Date.Format(model.DateLayout)
	}
	return t
}

// PriceFigure is the single-stock close price chart.
func PriceFigure(ticker string, series []model.PriceBar) Figure {
	return Figure{
		Data: []Trace{closeTrace(ticker, "", series)},
		Layout: Layout{
			Title: Title{Text: fmt.Sprintf("$%s Stock Prices", ticker)},
			XAxis: Axis{Title: Title{Text: "date"}},
			YAxis: Axis{Title: Title{Text: "close"}},
		},
	}
}

// CompareFigure overlays two close price series, first in blue and second in red.
func CompareFigure(firstName string, first []model.PriceBar, secondName string, second []model.PriceBar) Figure {
	return Figure{
		Data: []Trace{
			closeTrace(firstName, "blue", first),
			closeTrace(secondName, "red", second),
		},
		Layout: Layout{
			Title: Title{Text: fmt.Sprintf("%s vs %s Stock Prices", firstName, secondName)},
			XAxis: Axis{Title: Title{Text: "Date"}},
			YAxis: Axis{Title: Title{Text: "Price"}},
		},
	}
}

// JSON encodes f as the string the front end passes to Plotly.newPlot.
func (f Figure) JSON() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode figure: %w", err)
	}
	return string(b), nil
}
