package expr

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

type substitution struct {
	pattern *regexp.Regexp
	repl    string
}

// Applied in order; later patterns see the output of earlier ones.
var substitutions = []substitution{
	{regexp.MustCompile(`x`), "*"},
	{regexp.MustCompile(`×`), "*"},
	{regexp.MustCompile(`÷`), "/"},
	{regexp.MustCompile(`mod`), "%"},
	{regexp.MustCompile(`(?i)pi`), string(piRune)},
	{regexp.MustCompile(`(?i)e`), string(eulerRune)},
	{regexp.MustCompile(`(?i)sin\(`), "sin("},
	{regexp.MustCompile(`(?i)cos\(`), "cos("},
	{regexp.MustCompile(`(?i)tan\(`), "tan("},
	{regexp.MustCompile(`(?i)log\(`), "log10("},
	{regexp.MustCompile(`(?i)ln\(`), "ln("},
	{regexp.MustCompile(`10\^`), "pow(10,"},
	{regexp.MustCompile(`2√\(`), "sqrt("},
	{regexp.MustCompile(`3√\(`), "cbrt("},
	{regexp.MustCompile(`\|`), "abs("},
	{regexp.MustCompile(`\^`), "**"},
}

var factorialPattern = regexp.MustCompile(`(\d+)!`)

// rewrite turns calculator notation into the arithmetic grammar understood by evalArithmetic.
func rewrite(input string) string {
	s := input
	for _, sub := range substitutions {
		s = sub.pattern.ReplaceAllLiteralString(s, sub.repl)
	}
	return factorialPattern.ReplaceAllStringFunc(s, func(m string) string {
		return NumberString(factorial(m[:len(m)-1]))
	})
}

func factorial(digits string) float64 {
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil && !math.IsInf(n, 1) {
		return math.NaN()
	}

	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
		if math.IsInf(result, 1) {
			break
		}
	}
	return result
}

// Scientific evaluates standard or scientific input. Input still being typed is evaluated up
// to its last complete segment; when that is not possible ErrPartialExpression is returned.
// A NaN or infinite result is returned together with ErrNonFiniteResult.
func Scientific(input string) (float64, error) {
	if IsPartial(input) {
		complete := LastCompleteSegment(input)
		if complete != input && complete != "" {
			if v, err := Scientific(complete); err == nil {
				return v, nil
			}
		}
		return math.NaN(), ErrPartialExpression
	}

	return ScientificStrict(input)
}

// ScientificStrict evaluates input without falling back to its last complete segment, so
// input still being typed fails with ErrPartialExpression.
func ScientificStrict(input string) (float64, error) {
	if IsPartial(input) {
		return math.NaN(), ErrPartialExpression
	}

	cleaned := rewrite(input)
	if strings.TrimSpace(cleaned) == "" {
		return 0, nil
	}

	v, err := evalArithmetic(cleaned)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, ErrNonFiniteResult
	}
	return v, nil
}
