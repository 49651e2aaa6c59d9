package dataset

import (
	"strconv"
	"strings"
)

// FormatValue renders a cell the way the processed CSV files carry it:
// integer columns as integers, float columns as FormatFloat.
func FormatValue(v float64, k Kind) string {
	if k == KindInt {
		return strconv.FormatInt(int64(v), 10)
	}
	return FormatFloat(v)
}

// FormatFloat renders the shortest representation that round-trips,
// switching to exponent notation below 1e-4 and from 1e16, and always
// carrying a decimal point or exponent ("60.0", "0.01", "1e-05").
func FormatFloat(v float64) string {
	e := strconv.FormatFloat(v, 'e', -1, 64)
	if i := strings.IndexByte(e, 'e'); i >= 0 {
		if exp, err := strconv.Atoi(e[i+1:]); err == nil && v != 0 && (exp < -4 || exp >= 16) {
			return e
		}
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
