package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// naValues are the raw cell spellings read as missing, matching what
// spreadsheet tooling conventionally treats as NA.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/06 15:04",
	"01-02-06",
}

var clockPattern = regexp.MustCompile(`^(\d{1,3}):([0-5]\d):([0-5]\d)(\.\d{1,9})?$`)

// IsNA reports whether a raw cell is one of the missing-value spellings.
func IsNA(raw string) bool {
	_, ok := naValues[strings.TrimSpace(raw)]
	return ok
}

// InferColumn picks the narrowest type every non-missing cell converts to and
// returns the converted cells. Missing cells become nil. The order tried is
// integer, float, boolean, duration, timestamp; anything else is text. A
// column with no values at all is text.
func InferColumn(raw []string) (ColumnType, []any) {
	present := 0
	for _, s := range raw {
		if !IsNA(s) {
			present++
		}
	}
	if present == 0 {
		return Text, make([]any, len(raw))
	}

	candidates := []struct {
		typ     ColumnType
		convert func(string) (any, bool)
	}{
		{Integer, parseInteger},
		{Float, parseFloat},
		{Boolean, parseBoolean},
		{Duration, parseDuration},
		{Timestamp, parseTimestamp},
	}
	for _, c := range candidates {
		if values, ok := convertAll(raw, c.convert); ok {
			return c.typ, values
		}
	}

	values := make([]any, len(raw))
	for i, s := range raw {
		if !IsNA(s) {
			values[i] = s
		}
	}
	return Text, values
}

func convertAll(raw []string, convert func(string) (any, bool)) ([]any, bool) {
	values := make([]any, len(raw))
	for i, s := range raw {
		if IsNA(s) {
			continue
		}
		v, ok := convert(strings.TrimSpace(s))
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func parseInteger(s string) (any, bool) {
	v, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || !looksNumeric(s) {
		return nil, false
	}
	return v, true
}

func parseFloat(s string) (any, bool) {
	if !looksNumeric(s) {
		return nil, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil, false
	}
	return v, true
}

// looksNumeric rejects spellings strconv accepts but a spreadsheet would not
// call a number: inf, nan, hex floats, underscores.
func looksNumeric(s string) bool {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") ||
		strings.Contains(lower, "0x") || strings.Contains(s, "_") {
		return false
	}
	if strings.Contains(s, ",") && !thousandsGrouped(s) {
		return false
	}
	return true
}

// thousandsGrouped accepts "1,234,567.89" and rejects "1,2".
func thousandsGrouped(s string) bool {
	intPart := strings.TrimLeft(s, "+-")
	if i := strings.IndexAny(intPart, ".eE"); i >= 0 {
		intPart = intPart[:i]
	}
	groups := strings.Split(intPart, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

func parseBoolean(s string) (any, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return nil, false
}

func parseDuration(s string) (any, bool) {
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(sec)*time.Second
		if m[4] != "" {
			frac := (m[4][1:] + "000000000")[:9]
			ns, _ := strconv.Atoi(frac)
			d += time.Duration(ns)
		}
		return d, true
	}
	// "0" parses as a Go duration; requiring a unit keeps bare numbers out.
	if d, err := time.ParseDuration(s); err == nil && strings.ContainsAny(s, "hmsuµn") {
		return d, true
	}
	return nil, false
}

func parseTimestamp(s string) (any, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return nil, false
}

// FormatDuration renders d as HH:MM:SS[.fffffffff], the clock form used for
// SQL time columns.
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ns := d - s*time.Second
	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if ns > 0 {
		out += strings.TrimRight(fmt.Sprintf(".%09d", ns), "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}
