package tabular

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		wantType ColumnType
		want     []any
	}{
		{
			name:     "integers",
			raw:      []string{"1", "-2", "1,234"},
			wantType: Integer,
			want:     []any{int64(1), int64(-2), int64(1234)},
		},
		{
			name:     "floats with missing cell",
			raw:      []string{"1.5", "", "2"},
			wantType: Float,
			want:     []any{1.5, nil, 2.0},
		},
		{
			name:     "booleans",
			raw:      []string{"TRUE", "false", "NA"},
			wantType: Boolean,
			want:     []any{true, false, nil},
		},
		{
			name:     "clock durations",
			raw:      []string{"01:30:00", "00:00:01.5"},
			wantType: Duration,
			want:     []any{90 * time.Minute, 1500 * time.Millisecond},
		},
		{
			name:     "dates",
			raw:      []string{"2023-01-01", "2023-02-15"},
			wantType: Timestamp,
			want: []any{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:     "mixed falls back to text",
			raw:      []string{"1", "apple", "null"},
			wantType: Text,
			want:     []any{"1", "apple", nil},
		},
		{
			name:     "all missing is text",
			raw:      []string{"", "NaN", "n/a"},
			wantType: Text,
			want:     []any{nil, nil, nil},
		},
		{
			name:     "bad thousands grouping is text",
			raw:      []string{"1,2"},
			wantType: Text,
			want:     []any{"1,2"},
		},
		{
			name:     "inf is not numeric",
			raw:      []string{"inf"},
			wantType: Text,
			want:     []any{"inf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, got := InferColumn(tt.raw)
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNA(t *testing.T) {
	for _, s := range []string{"", "  ", "NaN", "NULL", "#N/A", "None"} {
		assert.True(t, IsNA(s), "IsNA(%q)", s)
	}
	for _, s := range []string{"0", "none at all", "-"} {
		assert.False(t, IsNA(s), "IsNA(%q)", s)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{90 * time.Minute, "01:30:00"},
		{1500 * time.Millisecond, "00:00:01.5"},
		{-time.Hour, "-01:00:00"},
		{26 * time.Hour, "26:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}
