package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	piRune    = 'π'
	eulerRune = 'ℯ'
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokConst
	tokPlus
	tokMinus
	tokStar
	tokPow
	tokSlash
	tokPercent
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	pos   int
}

func malformed(pos int, format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedExpression, fmt.Sprintf(format, args...), pos)
}

// tokenize splits arithmetic text into tokens. Whitespace separates tokens and is otherwise
// ignored.
func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
			continue
		case r >= '0' && r <= '9' || r == '.':
			n, v, err := scanNumber(src[i:])
			if err != nil {
				return nil, malformed(i, "%v", err)
			}
			toks = append(toks, token{kind: tokNumber, text: src[i : i+n], value: v, pos: i})
			i += n
			continue
		case r == '_' || unicode.IsLetter(r) && r != piRune && r != eulerRune:
			start := i
			for i < len(src) {
				c, sz := utf8.DecodeRuneInString(src[i:])
				if c != '_' && !unicode.IsLetter(c) && !unicode.IsDigit(c) || c == piRune || c == eulerRune {
					break
				}
				i += sz
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
			continue
		}

		tok := token{text: string(r), pos: i}
		switch r {
		case piRune:
			tok.kind, tok.value = tokConst, math.Pi
		case eulerRune:
			tok.kind, tok.value = tokConst, math.E
		case '+':
			if strings.HasPrefix(src[i+size:], "+") {
				return nil, malformed(i, "unexpected ++")
			}
			tok.kind = tokPlus
		case '-':
			if strings.HasPrefix(src[i+size:], "-") {
				return nil, malformed(i, "unexpected --")
			}
			tok.kind = tokMinus
		case '*':
			if strings.HasPrefix(src[i+size:], "*") {
				tok.kind, tok.text = tokPow, "**"
				size++
			} else {
				tok.kind = tokStar
			}
		case '/':
			tok.kind = tokSlash
		case '%':
			tok.kind = tokPercent
		case '(':
			tok.kind = tokLParen
		case ')':
			tok.kind = tokRParen
		case ',':
			tok.kind = tokComma
		default:
			return nil, malformed(i, "unexpected %q", r)
		}
		toks = append(toks, tok)
		i += size
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// scanNumber reads a decimal literal with optional fraction and exponent.
func scanNumber(s string) (int, float64, error) {
	i := 0
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, 0, errors.New("lone decimal point")
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}

	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		// ParseFloat reports overflow with a usable ±Inf.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return 0, 0, err
		}
	}
	return i, v, nil
}

type function func(args []float64) float64

func arg(args []float64, i int) float64 {
	if i < len(args) {
		return args[i]
	}
	return math.NaN()
}

func unary(fn func(float64) float64) function {
	return func(args []float64) float64 { return fn(arg(args, 0)) }
}

var functions = map[string]function{
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"log10": unary(math.Log10),
	"ln":    unary(math.Log),
	"sqrt":  unary(math.Sqrt),
	"cbrt":  unary(math.Cbrt),
	"abs":   unary(math.Abs),
	"pow": func(args []float64) float64 {
		return pow(arg(args, 0), arg(args, 1))
	},
}

var constants = map[string]float64{
	"Infinity": math.Inf(1),
	"NaN":      math.NaN(),
}

// pow follows the ECMAScript exponentiation rules where they differ from math.Pow.
func pow(x, y float64) float64 {
	switch {
	case math.IsNaN(y):
		return math.NaN()
	case y == 0:
		return 1
	case math.Abs(x) == 1 && math.IsInf(y, 0):
		return math.NaN()
	}
	return math.Pow(x, y)
}

// parser is a recursive-descent evaluator over the token stream:
//
//	additive       = multiplicative { ("+" | "-") multiplicative }
//	multiplicative = exponent { ("*" | "/" | "%") exponent }
//	exponent       = signed | primary [ "**" exponent ]
//	signed         = ("+" | "-") ( signed | primary )
//	primary        = number | constant | call | "(" additive ")"
//	call           = ident "(" [ additive { "," additive } [ "," ] ] ")"
type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) error {
	t := p.next()
	if t.kind != kind {
		return malformed(t.pos, "expected %s", what)
	}
	return nil
}

func evalArithmetic(src string) (float64, error) {
	toks, err := tokenize(src)
	if err != nil {
		return math.NaN(), err
	}

	p := &parser{toks: toks}
	v, err := p.additive()
	if err != nil {
		return math.NaN(), err
	}
	if t := p.peek(); t.kind != tokEOF {
		return math.NaN(), malformed(t.pos, "unexpected %q", t.text)
	}
	return v, nil
}

func (p *parser) additive() (float64, error) {
	v, err := p.multiplicative()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			rhs, err := p.multiplicative()
			if err != nil {
				return 0, err
			}
			v += rhs
		case tokMinus:
			p.next()
			rhs, err := p.multiplicative()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *parser) multiplicative() (float64, error) {
	v, err := p.exponent()
	if err != nil {
		return 0, err
	}
	for {
		kind := p.peek().kind
		if kind != tokStar && kind != tokSlash && kind != tokPercent {
			return v, nil
		}
		p.next()
		rhs, err := p.exponent()
		if err != nil {
			return 0, err
		}
		switch kind {
		case tokStar:
			v *= rhs
		case tokSlash:
			v /= rhs
		case tokPercent:
			v = math.Mod(v, rhs)
		}
	}
}

func (p *parser) exponent() (float64, error) {
	if k := p.peek().kind; k == tokPlus || k == tokMinus {
		v, err := p.signed()
		if err != nil {
			return 0, err
		}
		if t := p.peek(); t.kind == tokPow {
			return 0, malformed(t.pos, "signed base of **")
		}
		return v, nil
	}

	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	exp, err := p.exponent()
	if err != nil {
		return 0, err
	}
	return pow(base, exp), nil
}

func (p *parser) signed() (float64, error) {
	op := p.next()
	var v float64
	var err error
	if k := p.peek().kind; k == tokPlus || k == tokMinus {
		v, err = p.signed()
	} else {
		v, err = p.primary()
	}
	if err != nil {
		return 0, err
	}
	if op.kind == tokMinus {
		return -v, nil
	}
	return v, nil
}

func (p *parser) primary() (float64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber, tokConst:
		return t.value, nil
	case tokLParen:
		v, err := p.additive()
		if err != nil {
			return 0, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return 0, err
		}
		return v, nil
	case tokIdent:
		if c, ok := constants[t.text]; ok {
			return c, nil
		}
		fn, ok := functions[t.text]
		if !ok {
			return 0, malformed(t.pos, "unknown identifier %q", t.text)
		}
		args, err := p.arguments()
		if err != nil {
			return 0, err
		}
		return fn(args), nil
	case tokEOF:
		return 0, malformed(t.pos, "unexpected end of input")
	}
	return 0, malformed(t.pos, "unexpected %q", t.text)
}

func (p *parser) arguments() ([]float64, error) {
	if err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}

	var args []float64
	for p.peek().kind != tokRParen {
		v, err := p.additive()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return args, nil
}
