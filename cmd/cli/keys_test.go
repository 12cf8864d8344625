package main

import (
	"testing"

	"github.com/charithe/calcengine/pkg/calculator"
	"github.com/charithe/calcengine/pkg/expr"
	"github.com/stretchr/testify/require"
)

func TestParseKeys(t *testing.T) {
	testCases := []struct {
		name string
		line string
		mode expr.Mode
		want []calculator.Key
	}{
		{
			name: "standard",
			line: "12+3 =",
			mode: expr.ModeStandard,
			want: []calculator.Key{
				{Key: "1"}, {Key: "2"}, {Key: "+"}, {Key: "3"},
				{Kind: "function", Value: "equals"},
			},
		},
		{
			name: "times",
			line: "2x3 % ac",
			mode: expr.ModeStandard,
			want: []calculator.Key{
				{Key: "2"}, {Kind: "operator", Value: "×"}, {Key: "3"},
				{Kind: "operator", Value: "%"},
				{Kind: "function", Value: "AC"},
			},
		},
		{
			name: "scientific",
			line: "sin 0 ) enter",
			mode: expr.ModeScientific,
			want: []calculator.Key{
				{Kind: "scientific", Value: "sin"}, {Key: "0"}, {Key: ")"},
				{Key: "Enter"},
			},
		},
		{
			name: "programmer",
			line: "ff and F0 =",
			mode: expr.ModeProgrammer,
			want: []calculator.Key{
				{Kind: "digit", Value: "f"}, {Kind: "digit", Value: "f"},
				{Kind: "operator", Value: "AND"},
				{Kind: "digit", Value: "F"}, {Kind: "digit", Value: "0"},
				{Kind: "function", Value: "equals"},
			},
		},
		{
			name: "hex_word_is_typed",
			line: "acf a c",
			mode: expr.ModeProgrammer,
			want: []calculator.Key{
				{Kind: "digit", Value: "a"}, {Kind: "digit", Value: "c"}, {Kind: "digit", Value: "f"},
				{Kind: "digit", Value: "a"}, {Kind: "digit", Value: "c"},
			},
		},
		{
			name: "programmer_functions",
			line: "AC 1 bs ac",
			mode: expr.ModeProgrammer,
			want: []calculator.Key{
				{Kind: "function", Value: "AC"},
				{Kind: "digit", Value: "1"},
				{Kind: "function", Value: "backspace"},
				{Kind: "function", Value: "AC"},
			},
		},
		{
			name: "programmer_shift",
			line: "1 << 4",
			mode: expr.ModeProgrammer,
			want: []calculator.Key{
				{Kind: "digit", Value: "1"},
				{Kind: "operator", Value: "<<"},
				{Kind: "digit", Value: "4"},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, parseKeys(tc.line, tc.mode))
		})
	}
}
