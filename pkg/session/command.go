package session

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charithe/calcengine/pkg/radix"
)

// Command is one button press or key stroke. It is one of Digit, Operator, Function,
// Scientific, Text or RadixSwitch.
type Command interface {
	command()
}

// Digit appends a numeral, a decimal point or a parenthesis.
type Digit struct {
	Value string
}

// Operator appends a binary operator such as "+", "×" or "AND".
type Operator struct {
	Symbol string
}

// Function is one of the control keys.
type Function struct {
	Name FunctionName
}

// Scientific appends the text of a scientific keypad button, e.g. "sin" inserts "sin(".
type Scientific struct {
	Key string
}

// Text appends a raw character typed on the keyboard in scientific mode.
type Text struct {
	Value string
}

// RadixSwitch re-renders the current value in another radix.
type RadixSwitch struct {
	Radix radix.Radix
}

func (Digit) command()       {}
func (Operator) command()    {}
func (Function) command()    {}
func (Scientific) command()  {}
func (Text) command()        {}
func (RadixSwitch) command() {}

type FunctionName string

const (
	AllClear  FunctionName = "AC"
	Equals    FunctionName = "equals"
	Backspace FunctionName = "backspace"
	PlusMinus FunctionName = "plus-minus"
)

var scientificInserts = map[string]string{
	"sin": "sin(",
	"cos": "cos(",
	"tan": "tan(",
	"log": "log(",
	"ln":  "ln(",
	"10x": "10^(",
	"2√x": "2√(",
	"3√x": "3√(",
	"x^y": "^",
	"x^2": "^2",
	"|x|": "|",
	"!":   "!",
	"(":   "(",
	")":   ")",
	"pi":  "pi",
	"π":   "pi",
	"e":   "e",
}

// Insert returns the text the button appends to the buffer.
func (c Scientific) Insert() string {
	return scientificInserts[c.Key]
}

const scientificChars = "()^piesctlognhadr!%|"

var operatorAliases = map[string]string{
	"+":   "+",
	"-":   "-",
	"×":   "×",
	"*":   "×",
	"X":   "×",
	"÷":   "÷",
	"/":   "÷",
	"%":   "%",
	"MOD": "MOD",
	"AND": "AND",
	"OR":  "OR",
	"XOR": "XOR",
	"<<":  "<<",
	">>":  ">>",
}

// ParseCommand decodes the wire form of a command. kind is one of digit, operator, function,
// scientific, text or radix.
func ParseCommand(kind, value string) (Command, error) {
	switch strings.ToLower(kind) {
	case "digit":
		if !isDigitValue(value) {
			return nil, fmt.Errorf("invalid digit: %q", value)
		}
		return Digit{Value: strings.ToUpper(value)}, nil
	case "operator", "op":
		sym, ok := operatorAliases[strings.ToUpper(value)]
		if !ok {
			return nil, fmt.Errorf("invalid operator: %q", value)
		}
		return Operator{Symbol: sym}, nil
	case "function", "fn":
		switch FunctionName(value) {
		case AllClear, Equals, Backspace, PlusMinus:
			return Function{Name: FunctionName(value)}, nil
		}
		return nil, fmt.Errorf("invalid function: %q", value)
	case "scientific", "sci":
		key := strings.ToLower(value)
		if _, ok := scientificInserts[key]; !ok {
			return nil, fmt.Errorf("invalid scientific key: %q", value)
		}
		return Scientific{Key: key}, nil
	case "text":
		if utf8.RuneCountInString(value) != 1 || !strings.Contains(scientificChars, strings.ToLower(value)) {
			return nil, fmt.Errorf("invalid text: %q", value)
		}
		return Text{Value: value}, nil
	case "radix", "mode":
		r, err := radix.Parse(value)
		if err != nil {
			return nil, err
		}
		return RadixSwitch{Radix: r}, nil
	}
	return nil, fmt.Errorf("unknown command kind: %q", kind)
}

func isDigitValue(v string) bool {
	if len(v) != 1 {
		return false
	}
	c := v[0]
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' || c == '.' || c == '(' || c == ')'
}

// DecodeKey maps a keyboard key name to a command. Letters and symbols only meaningful in
// scientific mode decode to Text.
func DecodeKey(key string) (Command, error) {
	switch key {
	case "Backspace":
		return Function{Name: Backspace}, nil
	case "Enter", "=":
		return Function{Name: Equals}, nil
	case "Escape":
		return Function{Name: AllClear}, nil
	case "+", "-":
		return Operator{Symbol: key}, nil
	case "*":
		return Operator{Symbol: "×"}, nil
	case "/":
		return Operator{Symbol: "÷"}, nil
	case ".":
		return Digit{Value: key}, nil
	}

	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return Digit{Value: key}, nil
	}
	if utf8.RuneCountInString(key) == 1 && strings.Contains(scientificChars, strings.ToLower(key)) {
		return Text{Value: key}, nil
	}
	return nil, fmt.Errorf("unmapped key: %q", key)
}
