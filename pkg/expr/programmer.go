package expr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charithe/calcengine/pkg/radix"
)

var programmerOperator = regexp.MustCompile(`(?i)([+\-×÷/]|mod|AND|OR|XOR|<<|>>)`)

// ProgrammerOperators lists the binary operators accepted in programmer mode, in their
// canonical spelling.
var ProgrammerOperators = []string{"AND", "OR", "XOR", "<<", ">>", "+", "-", "×", "÷", "MOD"}

// IsProgrammerOperator reports whether tok is a programmer-mode operator.
func IsProgrammerOperator(tok string) bool {
	switch strings.ToUpper(tok) {
	case "+", "-", "×", "÷", "/", "MOD", "AND", "OR", "XOR", "<<", ">>":
		return true
	}
	return false
}

// splitProgrammer splits input into operands and operators, keeping the operators.
func splitProgrammer(input string) []string {
	var pieces []string
	last := 0
	for _, m := range programmerOperator.FindAllStringIndex(input, -1) {
		pieces = append(pieces, input[last:m[0]], input[m[0]:m[1]])
		last = m[1]
	}
	pieces = append(pieces, input[last:])

	tokens := pieces[:0]
	for _, p := range pieces {
		if p != "" {
			tokens = append(tokens, strings.TrimSpace(p))
		}
	}
	return tokens
}

// Programmer evaluates input as a single 32-bit integer operation in radix r. Only the first
// operator is honoured; everything after its right operand is ignored.
func Programmer(input string, r radix.Radix) (string, error) {
	tokens := splitProgrammer(input)
	if len(tokens) == 0 || len(tokens) == 1 && tokens[0] == "" {
		return "0", nil
	}

	if len(tokens) == 1 {
		dec, err := radix.Convert(tokens[0], r, radix.Decimal)
		if err != nil {
			return "", err
		}
		return radix.Convert(dec, radix.Decimal, r)
	}

	opIndex := -1
	for i, tok := range tokens {
		if IsProgrammerOperator(tok) {
			opIndex = i
			break
		}
	}
	if opIndex <= 0 || opIndex+1 >= len(tokens) {
		return radix.Convert(tokens[0], r, r)
	}

	a := operand(tokens[0], r)
	b := operand(tokens[opIndex+1], r)

	var result int64
	switch strings.ToUpper(tokens[opIndex]) {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "×":
		result = a * b
	case "÷", "/":
		if b == 0 {
			return "", ErrDivisionByZero
		}
		result = a / b
	case "MOD":
		if b == 0 {
			return "", ErrDivisionByZero
		}
		result = a % b
	case "AND":
		result = int64(int32(a) & int32(b))
	case "OR":
		result = int64(int32(a) | int32(b))
	case "XOR":
		result = int64(int32(a) ^ int32(b))
	case "<<":
		result = int64(int32(a) << (uint32(b) & 31))
	case ">>":
		result = int64(int32(a) >> (uint32(b) & 31))
	}
	return radix.Format(radix.Wrap(result), r), nil
}

// operand reads a programmer operand as a signed 32-bit value. Unreadable operands count as 0.
func operand(tok string, r radix.Radix) int64 {
	dec, err := radix.Convert(tok, r, radix.Decimal)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(dec, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
