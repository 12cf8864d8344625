package expr

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/conv"
)

const maxDisplayLength = 15

// NumberString renders v the way JavaScript's Number#toString does: plain decimal digits while
// the decimal exponent of v lies in [-6, 20], the shortest exponential form outside it.
// Negative zero renders as "0".
func NumberString(v float64) string {
	if v == 0 {
		return "0"
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return conv.Ftoa(v)
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
	if e, _ := strconv.Atoi(exp); e >= -6 && e <= 20 {
		return conv.Ftoa(v)
	}
	return mantissa + "e" + trimExponent(exp)
}

// FormatNumber renders a result for display. Non-finite values display as "0".
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return shorten(NumberString(v), v)
}

// FormatResult shortens a result string longer than the display: fractional values switch to
// exponential notation with 8 fraction digits, integers to 15 significant digits.
// Strings that are not numbers are returned unchanged.
func FormatResult(s string) string {
	if len(s) <= maxDisplayLength {
		return s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return shorten(s, v)
}

func shorten(s string, v float64) string {
	if len(s) <= maxDisplayLength {
		return s
	}
	if strings.Contains(s, ".") {
		return toExponential(v, 8)
	}
	return toPrecision(v, maxDisplayLength)
}

// toExponential mirrors Number#toExponential: the exponent carries a sign and no padding.
func toExponential(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'e', digits, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	return mantissa + "e" + trimExponent(exp)
}

// toPrecision mirrors Number#toPrecision.
func toPrecision(v float64, precision int) string {
	if v == 0 {
		return strconv.FormatFloat(0, 'f', precision-1, 64)
	}

	s := strconv.FormatFloat(v, 'e', precision-1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	e, _ := strconv.Atoi(exp)
	if e < -6 || e >= precision {
		return mantissa + "e" + trimExponent(exp)
	}
	return strconv.FormatFloat(v, 'f', precision-1-e, 64)
}

func trimExponent(exp string) string {
	sign := "+"
	if strings.HasPrefix(exp, "-") {
		sign = "-"
	}
	digits := strings.TrimLeft(strings.TrimLeft(exp, "+-"), "0")
	if digits == "" {
		digits = "0"
	}
	return sign + digits
}
