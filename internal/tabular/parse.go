package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when a file has no header row.
	ErrEmptyFile = errors.New("file has no header row")
)

// Format is a supported on-disk tabular format.
type Format int

const (
	FormatCSV Format = iota + 1
	FormatXLSX
)

const (
	MimeCSV         = "text/csv"
	MimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXLSM        = "application/vnd.ms-excel.sheet.macroEnabled.12"
	MimeGoogleSheet = "application/vnd.google-apps.spreadsheet"
)

// DetectFormat decides the format of a file. Spreadsheet mimetypes win over
// the name, since Google Sheets are exported as xlsx whatever they are
// called; otherwise the suffix decides, then a CSV mimetype.
func DetectFormat(name, mimetype string) (Format, error) {
	switch mimetype {
	case MimeXLSX, MimeXLSM, MimeGoogleSheet:
		return FormatXLSX, nil
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	switch mimetype {
	case MimeCSV, "application/csv":
		return FormatCSV, nil
	}
	return 0, fmt.Errorf("%w: name=%q mimetype=%q", ErrUnsupportedFormat, name, mimetype)
}

// Parse reads a whole CSV or XLSX stream into a Table.
func Parse(name, mimetype string, r io.Reader) (*Table, error) {
	format, err := DetectFormat(name, mimetype)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	default:
		return ParseXLSX(r)
	}
}

// ParseCSV reads comma separated text. The first record is the header.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: reading records: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return FromRecords(records)
}

// FromRecords turns raw string records into a typed table. Ragged rows are
// padded with missing cells and blank rows are dropped.
func FromRecords(records [][]string) (*Table, error) {
	records = dropBlankRows(records)
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := records[0]
	body := records[1:]

	width := len(header)
	for _, rec := range body {
		if len(rec) > width {
			width = len(rec)
		}
	}

	names := columnNames(header, width)
	columns := make([]Column, width)
	rows := make([][]any, len(body))
	for i := range rows {
		rows[i] = make([]any, width)
	}

	raw := make([]string, len(body))
	for c := 0; c < width; c++ {
		for i, rec := range body {
			raw[i] = ""
			if c < len(rec) {
				raw[i] = rec[c]
			}
		}
		typ, values := InferColumn(raw)
		columns[c] = Column{Name: names[c], Type: typ}
		for i, v := range values {
			rows[i][c] = v
		}
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

func dropBlankRows(records [][]string) [][]string {
	out := records[:0:0]
	for _, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// columnNames trims header cells, names blank ones column_<n> and suffixes
// duplicates with .1, .2, ...
func columnNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if _, dup := seen[name]; dup {
			base := name
			for k := seen[base] + 1; ; k++ {
				candidate := base + "." + strconv.Itoa(k)
				if _, taken := seen[candidate]; !taken {
					seen[base] = k
					name = candidate
					break
				}
			}
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}
