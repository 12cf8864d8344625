package radix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Radix is a numeral base supported by programmer mode.
type Radix int

const (
	Decimal Radix = iota
	Binary
	Octal
	Hexadecimal
)

var (
	ErrInvalidNumeral = errors.New("invalid numeral")
	ErrOutOfRange     = errors.New("numeral out of range")
)

// All lists the radixes in display order.
var All = []Radix{Hexadecimal, Decimal, Octal, Binary}

func (r Radix) Base() int {
	switch r {
	case Binary:
		return 2
	case Octal:
		return 8
	case Hexadecimal:
		return 16
	default:
		return 10
	}
}

func (r Radix) String() string {
	switch r {
	case Binary:
		return "bin"
	case Octal:
		return "oct"
	case Hexadecimal:
		return "hex"
	default:
		return "dec"
	}
}

// Accepts reports whether r is a digit that can be typed in this radix.
func (r Radix) Accepts(c rune) bool {
	v, ok := digitValue(c)
	return ok && v < r.Base()
}

// Parse returns the radix for one of bin, oct, dec or hex.
func Parse(name string) (Radix, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bin", "binary", "2":
		return Binary, nil
	case "oct", "octal", "8":
		return Octal, nil
	case "dec", "decimal", "10", "":
		return Decimal, nil
	case "hex", "hexadecimal", "16":
		return Hexadecimal, nil
	}
	return Decimal, fmt.Errorf("unknown radix: %q", name)
}

// Convert reinterprets value written in from as a 32-bit integer and renders it in to.
// Decimal output is signed; the other bases print the unsigned 32-bit pattern, so -1 in
// decimal becomes FFFFFFFF in hexadecimal and converts back to -1.
func Convert(value string, from, to Radix) (string, error) {
	value = stripSpace(value)
	if value == "" {
		return "0", nil
	}

	n, err := ParseInt32(value, from)
	if err != nil {
		return "", err
	}
	return Format(n, to), nil
}

// ParseInt32 parses the longest valid prefix of s in base r, the way parseInt does, and
// wraps the magnitude to 32 bits.
func ParseInt32(s string, r Radix) (int32, error) {
	base := uint64(r.Base())
	i := 0
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	if r == Hexadecimal && i+1 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		i += 2
	}

	var acc uint64
	digits := 0
	for ; i < len(s); i++ {
		v, ok := digitValue(rune(s[i]))
		if !ok || uint64(v) >= base {
			break
		}
		if acc > (^uint64(0)-uint64(v))/base {
			return 0, ErrOutOfRange
		}
		acc = acc*base + uint64(v)
		digits++
	}
	if digits == 0 {
		return 0, ErrInvalidNumeral
	}

	u := uint32(acc)
	if neg {
		u = -u
	}
	return int32(u), nil
}

// Format renders n in r.
func Format(n int32, r Radix) string {
	if r == Decimal {
		return strconv.FormatInt(int64(n), 10)
	}
	return strings.ToUpper(strconv.FormatUint(uint64(uint32(n)), r.Base()))
}

// Wrap truncates v to a signed 32-bit integer.
func Wrap(v int64) int32 {
	return int32(uint32(uint64(v)))
}

func digitValue(c rune) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
