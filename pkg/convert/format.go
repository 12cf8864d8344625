package convert

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/charithe/calcengine/pkg/expr"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// ParseInput reads a number typed into a converter field. Commas count as decimal
// separators and every separator after the first is dropped. Like parseFloat, the longest
// numeric prefix is used; NaN is returned when there is none.
func ParseInput(s string) float64 {
	s = strings.ReplaceAll(s, ",", ".")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i+1] + strings.ReplaceAll(s[i+1:], ".", "")
	}

	m := numericPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// FormatValue renders v with at most maxDecimals fraction digits, trailing zeros removed and a
// comma as the decimal separator. Non-finite values render as the empty string.
func FormatValue(v float64, maxDecimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	var s string
	if math.Abs(v) >= 1e21 {
		// fixed notation stops at 1e21, larger values print like Number#toString
		s = expr.NumberString(v)
	} else {
		s = strconv.FormatFloat(v, 'f', maxDecimals, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
		}
	}
	return strings.Replace(s, ".", ",", 1)
}
