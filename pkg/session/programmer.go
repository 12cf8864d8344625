package session

import (
	"strings"

	"github.com/charithe/calcengine/pkg/expr"
	"github.com/charithe/calcengine/pkg/radix"
)

// Longer spellings come first so that "XOR" is not taken for "OR".
var programmerSuffixes = []string{"XOR", "AND", "MOD", "OR", "<<", ">>", "+", "-", "×", "÷"}

func (s *Session) handleProgrammer(cmd Command) {
	switch c := cmd.(type) {
	case RadixSwitch:
		s.switchRadix(c.Radix)
	case Function:
		s.function(c.Name)
	case Operator:
		sym := strings.ToUpper(c.Symbol)
		if sym == "%" || !expr.IsProgrammerOperator(sym) {
			return
		}
		s.programmerInput(sym, true)
	case Digit:
		if len(c.Value) != 1 || !s.radix.Accepts(rune(c.Value[0])) {
			return
		}
		s.programmerInput(strings.ToUpper(c.Value), false)
	}
}

func (s *Session) programmerInput(value string, isOperator bool) {
	current := s.buffer
	if s.latched {
		if isOperator {
			current = s.preview
		} else {
			current = ""
		}
		s.latched = false
	}

	if isOperator {
		if op, ok := trailingOperator(current); ok {
			current = current[:strings.LastIndex(current, op)]
		}
		current += " " + value + " "
	} else {
		if _, ok := trailingOperator(current); ok {
			current += " "
		}
		current += value
	}

	s.setBuffer(strings.Join(strings.Fields(current), " "))
}

func trailingOperator(buffer string) (string, bool) {
	trimmed := strings.TrimSpace(buffer)
	for _, op := range programmerSuffixes {
		if strings.HasSuffix(trimmed, op) {
			return op, true
		}
	}
	return "", false
}

func (s *Session) equalsProgrammer() {
	result, err := expr.Programmer(s.buffer, s.radix)
	if err != nil {
		if s.observer != nil {
			s.observer.Failed(s.mode, s.buffer, err)
		}
		s.latched = false
		s.buffer = ""
		s.preview = expr.ErrorText
		return
	}

	// the ledger holds the display form, the buffer keeps the digits for further input
	s.commit(Entry{Expression: s.buffer, Result: expr.FormatResult(result)})
	s.buffer = result
	s.preview = result
	s.latched = true
}

func (s *Session) switchRadix(r radix.Radix) {
	value := s.buffer
	if s.latched {
		value = s.preview
	}

	from := s.radix
	s.radix = r
	s.latched = false

	converted, err := radix.Convert(value, from, r)
	if err != nil {
		s.buffer = ""
		s.preview = expr.ErrorText
		return
	}
	s.setBuffer(converted)
}
