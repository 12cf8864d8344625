package expr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charithe/calcengine/pkg/radix"
)

func TestIsPartial(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{input: "", want: false},
		{input: "0", want: false},
		{input: "12", want: false},
		{input: "12+3", want: false},
		{input: "12+", want: true},
		{input: "12 + ", want: true},
		{input: "7×", want: true},
		{input: "7÷", want: true},
		{input: "2^", want: true},
		{input: "10%", want: true},
		{input: "5 mod", want: true},
		{input: "5 MOD", want: true},
		{input: "sin", want: true},
		{input: "sin(", want: true},
		{input: "2+LOG(", want: true},
		{input: "10^(", want: true},
		{input: "2√(", want: true},
		{input: "|", want: true},
		{input: "sin(0)", want: false},
		{input: "5!", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.want, IsPartial(tc.input))
		})
	}
}

func TestLastCompleteSegment(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "36+", want: "36"},
		{input: "36 + 4 × ", want: "36 + 4"},
		{input: "12+3", want: "12+3"},
		{input: "(1+2)+", want: "(1+2)"},
		{input: "(1+", want: "(1"},
		{input: "sin(2+3)", want: "sin(2+3)"},
		{input: "-", want: ""},
		{input: "2^", want: "2"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.want, LastCompleteSegment(tc.input))
		})
	}
}

func TestScientific(t *testing.T) {
	testCases := []struct {
		input string
		want  float64
	}{
		{input: "", want: 0},
		{input: "2^10", want: 1024},
		{input: "2^3^2", want: 512},
		{input: "sin(0)", want: 0},
		{input: "cos(0)", want: 1},
		{input: "5!", want: 120},
		{input: "3!+1", want: 7},
		{input: "0!", want: 1},
		{input: "1+2×3", want: 7},
		{input: "8÷2", want: 4},
		{input: "2x3", want: 6},
		{input: "7 mod 4", want: 3},
		{input: "-7%4", want: -3},
		{input: "(1+2)×3", want: 9},
		{input: "log(1000)", want: 3},
		{input: "ln(1)", want: 0},
		{input: "2√(16)", want: 4},
		{input: "3√(27)", want: 3},
		{input: "|-5)", want: 5},
		{input: "10^(2))", want: 100},
		{input: "2^-1", want: 0.5},
		{input: "- -3", want: 3},
		{input: ".5+.5", want: 1},
		{input: "pi", want: math.Pi},
		{input: "e", want: math.E},
		{input: "2×PI", want: 2 * math.Pi},
		{input: "SIN(0)", want: 0},
		{input: "36+", want: 36},
		{input: "36 + 4 × ", want: 40},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			have, err := Scientific(tc.input)
			require.NoError(t, err)
			require.InDelta(t, tc.want, have, 1e-12)
		})
	}
}

func TestScientificFailures(t *testing.T) {
	testCases := []struct {
		input   string
		wantErr error
	}{
		{input: "1/0", wantErr: ErrNonFiniteResult},
		{input: "0/0", wantErr: ErrNonFiniteResult},
		{input: "171!", wantErr: ErrNonFiniteResult},
		{input: "2√(-1)", wantErr: ErrNonFiniteResult},
		{input: "sin()", wantErr: ErrNonFiniteResult},
		{input: "-2^2", wantErr: ErrMalformedExpression},
		{input: "10^2", wantErr: ErrMalformedExpression},
		{input: "(1+2", wantErr: ErrMalformedExpression},
		{input: "1.2.3", wantErr: ErrMalformedExpression},
		{input: "2 3", wantErr: ErrMalformedExpression},
		{input: "1e5", wantErr: ErrMalformedExpression},
		{input: "--3", wantErr: ErrMalformedExpression},
		{input: "foo", wantErr: ErrMalformedExpression},
		{input: "sin(", wantErr: ErrPartialExpression},
		{input: "+", wantErr: ErrPartialExpression},
		{input: "2+sin(", wantErr: ErrPartialExpression},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			_, err := Scientific(tc.input)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestScientificNonFiniteKeepsValue(t *testing.T) {
	v, err := Scientific("1/0")
	require.ErrorIs(t, err, ErrNonFiniteResult)
	require.True(t, math.IsInf(v, 1))
}

func TestProgrammer(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		radix   radix.Radix
		want    string
		wantErr error
	}{
		{name: "add", input: "5 + 3", radix: radix.Decimal, want: "8"},
		{name: "hexAnd", input: "FF AND F0", radix: radix.Hexadecimal, want: "F0"},
		{name: "lowercaseOperator", input: "ff and f0", radix: radix.Hexadecimal, want: "F0"},
		{name: "divideByZero", input: "10 / 0", radix: radix.Decimal, wantErr: ErrDivisionByZero},
		{name: "modByZero", input: "10 MOD 0", radix: radix.Decimal, wantErr: ErrDivisionByZero},
		{name: "truncatingDivide", input: "7 ÷ 2", radix: radix.Decimal, want: "3"},
		{name: "negativeTruncation", input: "0 - 7 ÷ 2", radix: radix.Decimal, want: "-7"},
		{name: "mod", input: "10 MOD 3", radix: radix.Decimal, want: "1"},
		{name: "multiplyWraps", input: "65536 × 65536", radix: radix.Decimal, want: "0"},
		{name: "addWraps", input: "2147483647 + 1", radix: radix.Decimal, want: "-2147483648"},
		{name: "subtractHex", input: "0 - 1", radix: radix.Hexadecimal, want: "FFFFFFFF"},
		{name: "or", input: "1010 OR 0101", radix: radix.Binary, want: "1111"},
		{name: "xor", input: "7 XOR 2", radix: radix.Octal, want: "5"},
		{name: "shiftLeft", input: "1 << 4", radix: radix.Decimal, want: "16"},
		{name: "shiftMasked", input: "1 << 33", radix: radix.Decimal, want: "2"},
		{name: "shiftRight", input: "16 >> 2", radix: radix.Decimal, want: "4"},
		{name: "shiftRightArithmetic", input: "FFFFFFF0 >> 2", radix: radix.Hexadecimal, want: "FFFFFFFC"},
		{name: "leadingOperator", input: "-16 >> 2", radix: radix.Decimal, wantErr: radix.ErrInvalidNumeral},
		{name: "firstOperatorOnly", input: "1 + 2 + 3", radix: radix.Decimal, want: "3"},
		{name: "single", input: "ff", radix: radix.Hexadecimal, want: "FF"},
		{name: "empty", input: "", radix: radix.Decimal, want: "0"},
		{name: "blank", input: "   ", radix: radix.Decimal, want: "0"},
		{name: "danglingOperator", input: "12 +", radix: radix.Decimal, want: "12"},
		{name: "badOperand", input: "Z + 2", radix: radix.Decimal, want: "2"},
		{name: "badSingle", input: "Error", radix: radix.Decimal, wantErr: radix.ErrInvalidNumeral},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			have, err := Programmer(tc.input, tc.radix)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, have)
		})
	}
}

func TestEvaluate(t *testing.T) {
	have, err := Evaluate("2^10", ModeScientific, radix.Decimal)
	require.NoError(t, err)
	require.Equal(t, "1024", have)

	have, err = Evaluate("0.1+0.2", ModeStandard, radix.Decimal)
	require.NoError(t, err)
	require.Equal(t, "0.30000000000000004", have)

	have, err = Evaluate("A + 1", ModeProgrammer, radix.Hexadecimal)
	require.NoError(t, err)
	require.Equal(t, "B", have)

	_, err = Evaluate("1/0", ModeStandard, radix.Decimal)
	require.ErrorIs(t, err, ErrNonFiniteResult)
}

func TestFormat(t *testing.T) {
	require.Equal(t, "3.00000000e-1", FormatResult("0.30000000000000004"))
	require.Equal(t, "1024", FormatResult("1024"))
	require.Equal(t, "123456789012345", FormatResult("123456789012345"))
	require.Equal(t, "1.23456789e+15", FormatResult("1234567890123456.7"))
	require.Equal(t, "1.00000000000000e+21", FormatResult("1000000000000000000000"))
	require.Equal(t, "1.23456789012346e+15", FormatResult("1234567890123456"))
	require.Equal(t, "FFFFFFFF", FormatResult("FFFFFFFF"))

	require.Equal(t, "0", FormatNumber(math.Inf(1)))
	require.Equal(t, "0", FormatNumber(math.NaN()))
	require.Equal(t, "120", FormatNumber(120))
	require.Equal(t, "3.00000000e-1", FormatNumber(0.1+0.2))
}

func TestNumberString(t *testing.T) {
	testCases := []struct {
		name string
		v    float64
		want string
	}{
		{name: "integer", v: 1024, want: "1024"},
		{name: "fraction", v: 0.1 + 0.2, want: "0.30000000000000004"},
		{name: "negative_zero", v: math.Copysign(0, -1), want: "0"},
		{name: "largest_plain", v: 1e20, want: "100000000000000000000"},
		{name: "large", v: 1e21, want: "1e+21"},
		{name: "large_digits", v: 1.5e300, want: "1.5e+300"},
		{name: "smallest_plain", v: 1e-6, want: "0.000001"},
		{name: "small", v: 1e-7, want: "1e-7"},
		{name: "small_digits", v: -2.5e-10, want: "-2.5e-10"},
		{name: "denormal", v: 5e-324, want: "5e-324"},
		{name: "infinity", v: math.Inf(-1), want: "-Infinity"},
		{name: "nan", v: math.NaN(), want: "NaN"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NumberString(tc.v))
		})
	}
}

func TestFormatExtremes(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{input: "10^(21))", want: "1e+21"},
		{input: "25÷10^(11))", want: "2.5e-10"},
		{input: "0×(0-1)", want: "0"},
		{input: "25!", want: "1.55112100e+25"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			v, err := Scientific(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, FormatNumber(v))
		})
	}

	require.Equal(t, "0", FormatNumber(math.Copysign(0, -1)))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeStandard, ModeScientific, ModeProgrammer, ModeConverter, ModeDate} {
		have, err := ParseMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, have)
	}
	_, err := ParseMode("graphing")
	require.Error(t, err)
	require.False(t, ModeConverter.Evaluates())
	require.True(t, ModeProgrammer.Evaluates())
}

func TestScientificStrict(t *testing.T) {
	_, err := ScientificStrict("36+")
	require.ErrorIs(t, err, ErrPartialExpression)

	v, err := ScientificStrict("2^10")
	require.NoError(t, err)
	require.Equal(t, 1024.0, v)
}
