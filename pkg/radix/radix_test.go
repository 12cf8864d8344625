package radix

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	testCases := []struct {
		name    string
		value   string
		from    Radix
		to      Radix
		want    string
		wantErr error
	}{
		{name: "empty", value: "", from: Decimal, to: Hexadecimal, want: "0"},
		{name: "whitespace", value: " 1 0 ", from: Decimal, to: Binary, want: "1010"},
		{name: "decToHex", value: "255", from: Decimal, to: Hexadecimal, want: "FF"},
		{name: "hexLowercase", value: "ff", from: Hexadecimal, to: Decimal, want: "255"},
		{name: "hexPrefix", value: "0x1f", from: Hexadecimal, to: Decimal, want: "31"},
		{name: "octToBin", value: "17", from: Octal, to: Binary, want: "1111"},
		{name: "negativeToHex", value: "-1", from: Decimal, to: Hexadecimal, want: "FFFFFFFF"},
		{name: "negativeToOct", value: "-8", from: Decimal, to: Octal, want: "37777777770"},
		{name: "patternToDec", value: "FFFFFFFF", from: Hexadecimal, to: Decimal, want: "-1"},
		{name: "wrapAbove32Bits", value: "4294967296", from: Decimal, to: Decimal, want: "0"},
		{name: "wrapMaxInt", value: "2147483648", from: Decimal, to: Decimal, want: "-2147483648"},
		{name: "prefixOnly", value: "12abc", from: Decimal, to: Decimal, want: "12"},
		{name: "binaryStopsAtTwo", value: "1012", from: Binary, to: Decimal, want: "5"},
		{name: "notANumeral", value: "G", from: Hexadecimal, to: Decimal, wantErr: ErrInvalidNumeral},
		{name: "signOnly", value: "-", from: Decimal, to: Decimal, wantErr: ErrInvalidNumeral},
		{name: "errorText", value: "Error", from: Decimal, to: Hexadecimal, wantErr: ErrInvalidNumeral},
		{name: "tooWide", value: "FFFFFFFFFFFFFFFFF", from: Hexadecimal, to: Decimal, wantErr: ErrOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			have, err := Convert(tc.value, tc.from, tc.to)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, have)
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	samples := []int64{0, 1, -1, 7, 42, -42, 255, 65535, -65536, math.MaxInt32, math.MinInt32, 123456789, -987654321}
	radixes := []Radix{Binary, Octal, Decimal, Hexadecimal}

	for _, n := range samples {
		for _, r1 := range radixes {
			for _, r2 := range radixes {
				start := Format(int32(n), r1)
				mid, err := Convert(start, r1, r2)
				require.NoError(t, err)

				back, err := Convert(mid, r2, r1)
				require.NoError(t, err)
				require.Equal(t, start, back, "n=%d %s->%s->%s", n, r1, r2, r1)
			}
		}
	}
}

func TestFormatUsesUnsignedPattern(t *testing.T) {
	require.Equal(t, "11111111111111111111111111111110", Format(-2, Binary))
	require.Equal(t, "80000000", Format(math.MinInt32, Hexadecimal))
	require.Equal(t, strconv.Itoa(math.MinInt32), Format(math.MinInt32, Decimal))
}

func TestAccepts(t *testing.T) {
	require.True(t, Binary.Accepts('1'))
	require.False(t, Binary.Accepts('2'))
	require.True(t, Octal.Accepts('7'))
	require.False(t, Octal.Accepts('8'))
	require.False(t, Decimal.Accepts('A'))
	require.True(t, Hexadecimal.Accepts('a'))
	require.True(t, Hexadecimal.Accepts('F'))
	require.False(t, Hexadecimal.Accepts('.'))
}

func TestParse(t *testing.T) {
	for name, want := range map[string]Radix{"bin": Binary, "OCT": Octal, "dec": Decimal, "hex": Hexadecimal} {
		have, err := Parse(name)
		require.NoError(t, err)
		require.Equal(t, want, have)
	}

	_, err := Parse("base36")
	require.Error(t, err)
}

func TestWrap(t *testing.T) {
	require.Equal(t, int32(-2147483648), Wrap(2147483648))
	require.Equal(t, int32(0), Wrap(1<<32))
	require.Equal(t, int32(-1), Wrap(-1))
}
