package tabular

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Built-in number formats that render a serial as a calendar date.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// Built-in number formats that render a serial as a time of day or elapsed time.
var builtInTimeFormats = map[int]bool{
	18: true, 19: true, 20: true, 21: true, 45: true, 46: true, 47: true,
}

// quoted literals, [$-409]/[Red] sections and escaped characters carry no
// date tokens.
var numFmtNoise = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

var elapsedToken = regexp.MustCompile(`\[(h+|m+|s+)\]`)

type serialKind int

const (
	serialNumber serialKind = iota
	serialDate
	serialTime
)

// classifyNumFmt tells whether a custom number format code shows dates,
// times or plain numbers.
func classifyNumFmt(code string) serialKind {
	lower := strings.ToLower(code)
	elapsed := elapsedToken.MatchString(lower)
	lower = numFmtNoise.ReplaceAllString(lower, "")
	switch {
	case strings.ContainsAny(lower, "yd"):
		return serialDate
	case elapsed || strings.ContainsAny(lower, "hs"):
		return serialTime
	}
	return serialNumber
}

// ParseXLSX reads the first worksheet of an xlsx workbook. The first row is
// the header. Cells are read as stored, not as displayed: numbers keep their
// precision whatever their format, date-formatted serials become timestamps,
// time-formatted serials become clock durations and booleans become
// true/false.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ParseXLSX: opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ParseXLSX: reading sheet %q: %w", sheet, err)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("ParseXLSX: reading workbook properties: %w", err)
	}
	cells := &workbookCells{
		f:        f,
		sheet:    sheet,
		date1904: props.Date1904 != nil && *props.Date1904,
		styles:   make(map[int]serialKind),
	}
	for i, row := range rows {
		for j, raw := range row {
			if raw == "" {
				continue
			}
			v, err := cells.value(j+1, i+1, raw)
			if err != nil {
				return nil, fmt.Errorf("ParseXLSX: %w", err)
			}
			row[j] = v
		}
	}
	return FromRecords(rows)
}

type workbookCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]serialKind
}

// value turns the stored value of one cell into the text inference expects.
func (c *workbookCells) value(col, row int, raw string) (string, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	typ, err := c.f.GetCellType(c.sheet, ref)
	if err != nil {
		return "", fmt.Errorf("cell %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		if raw == "1" {
			return "true", nil
		}
		return "false", nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
	default:
		return raw, nil
	}

	kind, err := c.styleKind(ref)
	if err != nil {
		return "", err
	}
	if kind == serialNumber {
		return raw, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < 0 {
		return raw, nil
	}
	if kind == serialTime {
		d := time.Duration(math.Round(serial * float64(24*time.Hour)))
		return FormatDuration(d.Round(time.Millisecond)), nil
	}
	t, err := excelize.ExcelDateToTime(serial, c.date1904)
	if err != nil {
		return raw, nil
	}
	return t.Format(time.RFC3339Nano), nil
}

func (c *workbookCells) styleKind(ref string) (serialKind, error) {
	idx, err := c.f.GetCellStyle(c.sheet, ref)
	if err != nil {
		return serialNumber, fmt.Errorf("cell %s: %w", ref, err)
	}
	if idx == 0 {
		return serialNumber, nil
	}
	if kind, ok := c.styles[idx]; ok {
		return kind, nil
	}

	style, err := c.f.GetStyle(idx)
	if err != nil {
		return serialNumber, fmt.Errorf("cell %s: %w", ref, err)
	}
	kind := serialNumber
	switch {
	case style.CustomNumFmt != nil:
		kind = classifyNumFmt(*style.CustomNumFmt)
	case builtInDateFormats[style.NumFmt]:
		kind = serialDate
	case builtInTimeFormats[style.NumFmt]:
		kind = serialTime
	}
	c.styles[idx] = kind
	return kind, nil
}
