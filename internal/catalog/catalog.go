// Package catalog reads project catalogs from CSV files.
package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

// Column names recognised in the header row. Matching is case-insensitive.
const (
	colID              = "id"
	colName            = "name"
	colLocation        = "location"
	colCapacity        = "capacity"
	colTotalShares     = "total_shares"
	colAvailableShares = "available_shares"
	colPricePerShare   = "price_per_share"
	colExpectedYield   = "expected_yield"
	colStatus          = "status"
	colImage           = "image"
	colDescription     = "description"
)

var requiredCols = []string{colID, colName, colTotalShares, colPricePerShare, colStatus}

// ErrNoHeader is returned when the input is empty or lacks a required column.
var ErrNoHeader = errors.New("catalog header must include id, name, total_shares, price_per_share and status")

// colIndex maps column names to their index in the row.
type colIndex map[string]int

// LoadFile parses the catalog at path.
func LoadFile(path string) ([]*ledger.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a comma or semicolon separated catalog. A missing
// available_shares column means every share is still available.
func Parse(r io.Reader) ([]*ledger.Project, error) {
	utf8r, err := utf8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffComma(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	cols := headerIndex(rows[0])
	for _, name := range requiredCols {
		if _, ok := cols[name]; !ok {
			return nil, ErrNoHeader
		}
	}

	seen := make(map[string]bool)
	projects := make([]*ledger.Project, 0, len(rows)-1)

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		if isBlank(row) {
			continue
		}

		p, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if seen[p.ID] {
			return nil, fmt.Errorf("row %d: duplicate project id %q", rowNum, p.ID)
		}

		seen[p.ID] = true
		projects = append(projects, p)
	}

	return projects, nil
}

func parseRow(cols colIndex, row []string) (*ledger.Project, error) {
	p := &ledger.Project{
		ID:          cell(row, cols, colID),
		Name:        cell(row, cols, colName),
		Location:    cell(row, cols, colLocation),
		Capacity:    cell(row, cols, colCapacity),
		Image:       cell(row, cols, colImage),
		Description: cell(row, cols, colDescription),
		Status:      ledger.Status(strings.ToLower(cell(row, cols, colStatus))),
	}

	if p.ID == "" || p.Name == "" {
		return nil, errors.New("id and name are required")
	}

	if !p.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q", p.Status)
	}

	var err error

	if p.TotalShares, err = parseShares(cell(row, cols, colTotalShares)); err != nil {
		return nil, fmt.Errorf("total_shares: %w", err)
	}

	p.AvailableShares = p.TotalShares
	if s := cell(row, cols, colAvailableShares); s != "" {
		if p.AvailableShares, err = parseShares(s); err != nil {
			return nil, fmt.Errorf("available_shares: %w", err)
		}
	}

	if p.AvailableShares > p.TotalShares {
		return nil, fmt.Errorf("available_shares %d exceeds total_shares %d", p.AvailableShares, p.TotalShares)
	}

	if p.PricePerShare, err = parseAmount(cell(row, cols, colPricePerShare)); err != nil {
		return nil, fmt.Errorf("price_per_share: %w", err)
	}

	if !ledger.ValidMoney(p.PricePerShare) {
		return nil, fmt.Errorf("price_per_share %s has more than %d decimal places", p.PricePerShare, ledger.MoneyScale)
	}

	if s := cell(row, cols, colExpectedYield); s != "" {
		if p.ExpectedYield, err = parseAmount(s); err != nil {
			return nil, fmt.Errorf("expected_yield: %w", err)
		}

		if !ledger.ValidMoney(p.ExpectedYield) {
			return nil, fmt.Errorf("expected_yield %s has more than %d decimal places", p.ExpectedYield, ledger.MoneyScale)
		}
	}

	return p, nil
}

func parseShares(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}

	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}

	return n, nil
}

// parseAmount accepts "1234.50" as well as the European "1234,50".
func parseAmount(s string) (decimal.Decimal, error) {
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %s", d)
	}

	return d, nil
}

// sniffComma picks ';' when the header line has more semicolons than commas.
func sniffComma(data []byte) rune {
	header, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}

	return ','
}

func headerIndex(row []string) colIndex {
	cols := make(colIndex)

	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			cols[name] = i
		}
	}

	return cols
}

func cell(row []string, cols colIndex, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
