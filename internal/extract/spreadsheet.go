package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// xlsMaxCols is the BIFF8 column limit.
const xlsMaxCols = 256

// errUnknownWorkbook is returned when the file is neither an OOXML nor a BIFF workbook.
var errUnknownWorkbook = errors.New("unrecognized spreadsheet format")

// SpreadsheetStrategy extracts cell values from .xlsx and legacy .xls workbooks.
// Formulas are not evaluated; the value cached in the file is used.
// The container format is detected from the file header, not the extension.
type SpreadsheetStrategy struct{}

func (SpreadsheetStrategy) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(ole2Magic))
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read spreadsheet header: %w", err)
	}
	header = header[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind spreadsheet: %w", err)
	}

	var rows [][]string
	switch {
	case bytes.HasPrefix(header, zipMagic):
		rows, err = readXLSX(ctx, f)
	case bytes.HasPrefix(header, ole2Magic):
		rows, err = readXLS(f)
	default:
		return "", errUnknownWorkbook
	}
	if err != nil {
		return "", err
	}
	return joinRows(rows), nil
}

// joinRows joins the non-empty cells of each row with a space and the rows with newlines.
// Rows without any non-empty cell are dropped.
func joinRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if cell == "" {
				continue
			}
			cells = append(cells, cell)
		}
		if len(cells) == 0 {
			continue
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func readXLSX(ctx context.Context, r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	cells := newCellFormatter(f)
	var out [][]string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.Rows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for rowNum := 1; rows.Next(); rowNum++ {
			if err := ctx.Err(); err != nil {
				_ = rows.Close()
				return nil, err
			}
			cols, err := rows.Columns(excelize.Options{RawCellValue: true})
			if err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("read row in sheet %q: %w", sheet, err)
			}
			for i, raw := range cols {
				if raw != "" {
					cols[i] = cells.text(sheet, i+1, rowNum, raw)
				}
			}
			out = append(out, cols)
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close rows for sheet %q: %w", sheet, err)
		}
	}
	return out, nil
}

// cellFormatter renders raw xlsx cell values as text: booleans as True/False and
// date-formatted serial numbers as timestamps. Other values are kept as stored,
// so numbers are not rounded by their display format.
type cellFormatter struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func newCellFormatter(f *excelize.File) *cellFormatter {
	c := &cellFormatter{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

func (c *cellFormatter) text(sheet string, col, row int, raw string) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := c.f.GetCellType(sheet, cell)
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeBool:
		if raw == "1" {
			return "True"
		}
		return "False"
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if !c.isDateCell(sheet, cell) {
			return raw
		}
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		t, err := excelize.ExcelDateToTime(serial, c.date1904)
		if err != nil {
			return raw
		}
		if serial < 1 {
			return t.Format(time.TimeOnly)
		}
		return t.Format(time.DateTime)
	}
	return raw
}

func (c *cellFormatter) isDateCell(sheet, cell string) bool {
	idx, err := c.f.GetCellStyle(sheet, cell)
	if err != nil || idx == 0 {
		return false
	}
	if isDate, ok := c.dateStyles[idx]; ok {
		return isDate
	}
	isDate := false
	if style, err := c.f.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = isDateNumFmt(style.NumFmt)
		}
	}
	c.dateStyles[idx] = isDate
	return isDate
}

// isDateNumFmt reports whether a built-in number format displays a date or time.
func isDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDateFormatCode reports whether a custom format code has date or time tokens
// outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case strings.ContainsRune("ymdhs", r):
			return true
		}
	}
	return false
}

// readXLS reads a BIFF workbook. The parser panics on some malformed records,
// so panics are turned into errors here.
func readXLS(r io.ReadSeeker) (out [][]string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("parse xls: %v", rec)
		}
	}()
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb == nil {
		return nil, errors.New("open xls: no workbook stream")
	}
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		for idx := 0; idx <= int(sheet.MaxRow); idx++ {
			row := xlsRow(sheet, idx)
			if row == nil {
				continue
			}
			// Rows without a ROW record report a zero column range, so scan every column.
			cells := make([]string, 0, xlsMaxCols)
			for c := 0; c < xlsMaxCols; c++ {
				cells = append(cells, strings.TrimRight(row.Col(c), "\x00"))
			}
			out = append(out, cells)
		}
	}
	return out, nil
}

// xlsRow returns nil for rows the sheet does not define; WorkSheet.Row panics on them.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
