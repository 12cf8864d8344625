package expr

import (
	"regexp"
	"strings"
)

var partialSuffix = regexp.MustCompile(`(?i)(?:(?:sin|cos|tan|log|ln|10\^|2√|3√)\(?|\||[+\-×÷*/^%]|mod)$`)

// IsPartial reports whether input ends in a binary operator or an unfinished function, i.e.
// the user is still typing the next operand.
func IsPartial(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || trimmed == "0" {
		return false
	}
	return partialSuffix.MatchString(trimmed)
}

func isSegmentOperator(r rune) bool {
	switch r {
	case '+', '-', '×', '÷', '*', '/', '%', '^':
		return true
	}
	return false
}

// LastCompleteSegment returns the part of input before a trailing top-level operator, so
// "36+" yields "36". Input without such an operator is returned unchanged.
func LastCompleteSegment(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	runes := []rune(trimmed)
	balance := 0
	last := -1
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case ')':
			balance++
		case '(':
			balance--
		}
		if balance == 0 && isSegmentOperator(runes[i]) {
			last = i
			break
		}
	}

	if last == -1 || last != len(runes)-1 {
		return input
	}

	complete := strings.TrimSpace(string(runes[:last]))
	if complete == "" {
		return string(runes[:len(runes)-1])
	}
	return complete
}
