package main

import (
	"strings"

	"github.com/charithe/calcengine/pkg/calculator"
	"github.com/charithe/calcengine/pkg/expr"
)

var namedKeys = map[string]calculator.Key{
	"=":     {Kind: "function", Value: "equals"},
	"AC":    {Kind: "function", Value: "AC"},
	"BS":    {Kind: "function", Value: "backspace"},
	"+/-":   {Kind: "function", Value: "plus-minus"},
	"ENTER": {Key: "Enter"},
	"ESC":   {Key: "Escape"},
}

var scientificWords = []string{"sin", "cos", "tan", "log", "ln", "10x", "2√x", "3√x", "x^y", "x^2", "|x|", "pi", "π"}

// parseKeys turns a line of input into key presses. Whitespace separates words; a word that
// names a key, operator or scientific function is one press, anything else is typed a
// character at a time. Key names win over hexadecimal words, so the digits A and C are typed
// as "a c" in programmer mode.
func parseKeys(line string, mode expr.Mode) []calculator.Key {
	var keys []calculator.Key
	for _, word := range strings.Fields(line) {
		if k, ok := namedKeys[strings.ToUpper(word)]; ok {
			keys = append(keys, k)
			continue
		}

		if mode == expr.ModeProgrammer && isHexWord(word) {
			for _, r := range word {
				keys = append(keys, calculator.Key{Kind: "digit", Value: string(r)})
			}
			continue
		}

		if mode == expr.ModeProgrammer && expr.IsProgrammerOperator(strings.ToUpper(word)) {
			keys = append(keys, calculator.Key{Kind: "operator", Value: strings.ToUpper(word)})
			continue
		}

		if mode == expr.ModeScientific && isScientificWord(word) {
			keys = append(keys, calculator.Key{Kind: "scientific", Value: word})
			continue
		}

		for _, r := range word {
			keys = append(keys, charKey(r, mode))
		}
	}
	return keys
}

func isHexWord(word string) bool {
	return strings.Trim(word, "0123456789abcdefABCDEF") == ""
}

func isScientificWord(word string) bool {
	for _, w := range scientificWords {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

func charKey(r rune, mode expr.Mode) calculator.Key {
	s := string(r)
	switch {
	case mode == expr.ModeProgrammer && strings.ContainsRune("0123456789abcdefABCDEF", r):
		return calculator.Key{Kind: "digit", Value: s}
	case mode == expr.ModeProgrammer && strings.ContainsRune("+-*/×÷", r):
		return calculator.Key{Kind: "operator", Value: s}
	case r == '×' || r == 'x':
		return calculator.Key{Kind: "operator", Value: "×"}
	case r == '÷':
		return calculator.Key{Kind: "operator", Value: "÷"}
	case r == '%':
		return calculator.Key{Kind: "operator", Value: "%"}
	}
	return calculator.Key{Key: s}
}
