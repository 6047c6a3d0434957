// Package registry loads the company universe from a static JSON dataset.
//
// The dataset is a table of string rows whose first row holds the headers
// Symbol, Security, GICS Sector and GICS Sub-Industry. The table may be
// wrapped in one extra array, as in exports of the S&P 500 constituents page.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"StockAnalysis/internal/model"
)

// Dataset column headers.
const (
	HeaderSymbol   = "Symbol"
	HeaderSecurity = "Security"
	HeaderSector   = "GICS Sector"
	HeaderIndustry = "GICS Sub-Industry"
)

// CompanyWriter is the part of the store the registry writes through.
type CompanyWriter interface {
	UpsertCompanies(ctx context.Context, companies []model.Company) (int, error)
}

// Parse reads companies from r. Rows with an empty symbol are skipped; a
// symbol listed twice keeps its first row.
func Parse(r io.Reader) ([]model.Company, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode companies: %w", err)
	}

	table, err := decodeTable(raw)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, errors.New("companies: empty table")
	}

	cols, err := columns(table[0])
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	companies := make([]model.Company, 0, len(table)-1)
	for i, row := range table[1:] {
		if len(row) <= cols.max {
			return nil, fmt.Errorf("companies: row %d has %d columns, want at least %d", i+1, len(row), cols.max+1)
		}
		ticker := strings.TrimSpace(row[cols.symbol])
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		companies = append(companies, model.Company{
			Ticker:   ticker,
			Name:     strings.TrimSpace(row[cols.security]),
			Sector:   strings.TrimSpace(row[cols.sector]),
			Industry: strings.TrimSpace(row[cols.industry]),
		})
	}
	return companies, nil
}

// decodeTable accepts both [[header, row...]] and [header, row...].
func decodeTable(raw json.RawMessage) ([][]string, error) {
	var wrapped [][][]string
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped) > 0 {
		return wrapped[0], nil
	}
	var table [][]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("companies: not a table of strings: %w", err)
	}
	return table, nil
}

type columnIndex struct {
	symbol, security, sector, industry int
	max                                int
}

func columns(header []string) (columnIndex, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	var c columnIndex
	for _, want := range []struct {
		name string
		dst  *int
	}{
		{HeaderSymbol, &c.symbol},
		{HeaderSecurity, &c.security},
		{HeaderSector, &c.sector},
		{HeaderIndustry, &c.industry},
	} {
		i, ok := idx[want.name]
		if !ok {
			return c, fmt.Errorf("companies: missing column %q", want.name)
		}
		*want.dst = i
		if i > c.max {
			c.max = i
		}
	}
	return c, nil
}

// LoadFile parses the dataset at path.
func LoadFile(path string) ([]model.Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open companies file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Load parses the dataset at path and upserts it. Existing companies are left
// untouched. It returns the number of companies parsed and newly inserted.
func Load(ctx context.Context, path string, w CompanyWriter, logger *zap.Logger) (parsed, inserted int, err error) {
	companies, err := LoadFile(path)
	if err != nil {
		return 0, 0, err
	}
	inserted, err = w.UpsertCompanies(ctx, companies)
	if err != nil {
		return len(companies), 0, fmt.Errorf("upsert companies: %w", err)
	}
	if logger != nil {
		logger.Info("companies loaded",
			zap.String("file", path),
			zap.Int("parsed", len(companies)),
			zap.Int("inserted", inserted))
	}
	return len(companies), inserted, nil
}
