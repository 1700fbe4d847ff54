package ingest

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExpectedHeaders is the fixed 10-column schema every source spreadsheet
// carries; entity parsers read only the columns they need.
var ExpectedHeaders = []string{
	"EMP_ID", "EMP_NAME", "DEPARTMENT", "LEAVE_TYPE",
	"LEAVE_START_DATE", "LEAVE_END_DATE", "LEAVE_DAYS",
	"LEAVE_STATUS", "REMARKS", "BALANCE_LEAVE",
}

// Column indexes into the fixed schema.
const (
	colEmpID = iota
	colEmpName
	colDepartment
	colLeaveType
	colStartDate
	colEndDate
	colLeaveDays
	colLeaveStatus
	colRemarks
	colBalanceLeave
)

var dateLayouts = []string{"2006-01-02", "01-02-06", "1/2/06", "2006-01-02 15:04:05"}

// Parser turns one source file into an ordered sequence of records.
type Parser[T any] interface {
	Parse(path string) ([]T, error)
}

// rowMapper builds one record from a raw spreadsheet row; errors are wrapped
// with row context by the surrounding parser.
type rowMapper[T any] func(row []string) (T, error)

type xlsxParser[T any] struct {
	mapRow rowMapper[T]
}

func (p *xlsxParser[T]) Parse(path string) ([]T, error) {
	name := filepath.Base(path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ParseError{File: name, Err: fmt.Errorf("failed to read XLSX file: %w", err)}
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, &ParseError{File: name, Err: fmt.Errorf("failed to read XLSX file: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &ParseError{File: name, Err: fmt.Errorf("missing header row")}
	}

	if err := validateHeaders(rows[0]); err != nil {
		return nil, &ParseError{File: name, Err: err}
	}

	var records []T
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		record, err := p.mapRow(row)
		if err != nil {
			// The first bad row aborts the whole file; row index is 1-based.
			return nil, &ParseError{File: name, Row: i + 1, Err: err}
		}
		records = append(records, record)
	}

	return records, nil
}

// validateHeaders compares the full ordered column-name list; any mismatch
// fails the whole file.
func validateHeaders(header []string) error {
	got := make([]string, len(ExpectedHeaders))
	for i := range ExpectedHeaders {
		got[i] = strings.TrimSpace(cellValue(header, i))
	}
	for i, want := range ExpectedHeaders {
		if got[i] != want {
			return fmt.Errorf("invalid headers: expected %v, got %v", ExpectedHeaders, got)
		}
	}
	return nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cellValue tolerates short rows: excelize drops trailing empty cells.
func cellValue(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func requiredCell(row []string, idx int) (string, error) {
	v := cellValue(row, idx)
	if v == "" {
		return "", fmt.Errorf("missing value for column %s", ExpectedHeaders[idx])
	}
	return v, nil
}

func dateCell(row []string, idx int) (time.Time, error) {
	v, err := requiredCell(row, idx)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format in column %s: %s", ExpectedHeaders[idx], v)
}

func floatCell(row []string, idx int) (float64, error) {
	v, err := requiredCell(row, idx)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number format in column %s: %s", ExpectedHeaders[idx], v)
	}
	return f, nil
}
