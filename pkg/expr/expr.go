// Package expr classifies and evaluates calculator expressions.
//
// Standard and scientific input is rewritten into a small arithmetic grammar and evaluated
// with JavaScript number semantics. Programmer input is evaluated as a single 32-bit integer
// operation in the active radix.
package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charithe/calcengine/pkg/radix"
)

// Sentinel shown to the user for any hard evaluation failure.
const ErrorText = "Error"

var (
	ErrPartialExpression   = errors.New("partial expression")
	ErrMalformedExpression = errors.New("malformed expression")
	ErrNonFiniteResult     = errors.New("non-finite result")
	ErrDivisionByZero      = errors.New("division by zero")
)

// Mode is the active calculator mode.
type Mode int

const (
	ModeStandard Mode = iota
	ModeScientific
	ModeProgrammer
	ModeConverter
	ModeDate
)

func (m Mode) String() string {
	switch m {
	case ModeScientific:
		return "scientific"
	case ModeProgrammer:
		return "programmer"
	case ModeConverter:
		return "converter"
	case ModeDate:
		return "date"
	default:
		return "standard"
	}
}

// Evaluates reports whether the mode has evaluation semantics of its own.
func (m Mode) Evaluates() bool {
	return m == ModeStandard || m == ModeScientific || m == ModeProgrammer
}

// ParseMode returns the mode with the given name.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "normal", "":
		return ModeStandard, nil
	case "scientific":
		return ModeScientific, nil
	case "programmer", "programming":
		return ModeProgrammer, nil
	case "converter":
		return ModeConverter, nil
	case "date":
		return ModeDate, nil
	}
	return ModeStandard, fmt.Errorf("unknown mode: %q", name)
}

// Evaluate evaluates input under the semantics of mode. Programmer results are rendered in
// r; all other results are rendered the way JavaScript prints numbers.
func Evaluate(input string, mode Mode, r radix.Radix) (string, error) {
	if mode == ModeProgrammer {
		return Programmer(input, r)
	}

	v, err := Scientific(input)
	if err != nil {
		return "", err
	}
	return NumberString(v), nil
}
