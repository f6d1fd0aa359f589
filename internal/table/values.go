package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// StringValue renders a cell value as text. Integral floats, which is how
// the spreadsheet backends hand back whole numbers, lose their fraction.
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.DateOnly)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// IntValue reports the integer held by a cell. Text such as "Left" and
// fractional numbers are not integers.
func IntValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// DateValue reports the calendar date held by a cell: either a string in
// YYYY-MM-DD form or a time value. The result is midnight UTC.
func DateValue(v any) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		t, err := time.Parse(time.DateOnly, strings.TrimSpace(val))
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case time.Time:
		return time.Date(val.Year(), val.Month(), val.Day(), 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

// ColumnName converts a 1-based column number to its letters: 1 is A, 27 is AA.
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// CellName returns the A1 reference for (row, col).
func CellName(row, col int) string {
	return ColumnName(col) + strconv.Itoa(row)
}
