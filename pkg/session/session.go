// Package session implements the calculator's input state machine: it turns commands into
// edits of the expression buffer, keeps the live preview in step with the buffer and commits
// confirmed results to the history ledger.
package session

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charithe/calcengine/pkg/expr"
	"github.com/charithe/calcengine/pkg/radix"
)

var ErrRadixUnavailable = errors.New("radix switching requires programmer mode")

// Observer is notified of committed and failed evaluations.
type Observer interface {
	Committed(mode expr.Mode, entry Entry)
	Failed(mode expr.Mode, input string, err error)
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Mode    string `json:"mode"`
	Radix   string `json:"radix"`
	Display string `json:"display"`
	Preview string `json:"preview"`
	Latched bool   `json:"latched"`
	Error   bool   `json:"error"`
}

// Session is the state of one calculator. It is not safe for concurrent use.
type Session struct {
	mode     expr.Mode // active evaluation mode: standard, scientific or programmer
	view     expr.Mode // mode shown to the user; converter and date park the calculator
	radix    radix.Radix
	buffer   string
	preview  string
	latched  bool
	failed   bool
	history  *History
	observer Observer
}

// New creates a session in standard mode. observer may be nil.
func New(history *History, observer Observer) *Session {
	if history == nil {
		history = &History{}
	}
	return &Session{
		mode:     expr.ModeStandard,
		view:     expr.ModeStandard,
		radix:    radix.Decimal,
		preview:  "0",
		history:  history,
		observer: observer,
	}
}

func (s *Session) Display() string {
	return s.buffer
}

func (s *Session) Preview() string {
	return s.preview
}

// Mode returns the mode shown to the user, which may be converter or date.
func (s *Session) Mode() expr.Mode {
	return s.view
}

func (s *Session) Radix() radix.Radix {
	return s.radix
}

func (s *Session) Latched() bool {
	return s.latched
}

func (s *Session) History() *History {
	return s.history
}

func (s *Session) parked() bool {
	return s.view != s.mode
}

func (s *Session) programmer() bool {
	return s.mode == expr.ModeProgrammer
}

func (s *Session) scientific() bool {
	return s.mode == expr.ModeScientific
}

func (s *Session) setBuffer(buffer string) {
	s.buffer = buffer
	s.refresh()
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Mode:    s.view.String(),
		Radix:   s.radix.String(),
		Display: s.buffer,
		Preview: s.preview,
		Latched: s.latched,
		Error:   s.failed,
	}
}

// Handle applies one command. Commands that make no sense in the current state are ignored.
func (s *Session) Handle(cmd Command) {
	if s.parked() {
		return
	}

	if s.failed {
		// Only a clearing key leaves the error state.
		if fn, ok := cmd.(Function); ok && (fn.Name == AllClear || fn.Name == Backspace) {
			s.clear()
		}
		return
	}

	if s.programmer() {
		s.handleProgrammer(cmd)
		return
	}
	s.handleStandard(cmd)
}

func (s *Session) handleStandard(cmd Command) {
	switch c := cmd.(type) {
	case Function:
		s.function(c.Name)
	case Scientific:
		if s.scientific() {
			s.insertScientific(c.Insert())
		}
	case Text:
		if s.scientific() {
			s.insertScientific(c.Value)
		}
	case Operator:
		if isStandardOperator(c.Symbol) {
			s.input(c.Symbol, true)
		}
	case Digit:
		if isDecimalInput(c.Value) {
			s.input(c.Value, false)
		}
	}
}

func isDecimalInput(v string) bool {
	if len(v) != 1 {
		return false
	}
	return v[0] >= '0' && v[0] <= '9' || v == "." || v == "(" || v == ")"
}

func isStandardOperator(sym string) bool {
	switch sym {
	case "+", "-", "×", "÷", "%":
		return true
	}
	return false
}

func (s *Session) input(value string, isOperator bool) {
	last, ok := lastRune(s.buffer)
	lastIsOperator := ok && isStandardOperator(string(last))

	if (value == "×" || value == "÷" || value == "%") && (s.buffer == "" || lastIsOperator) {
		return
	}
	if isOperator && lastIsOperator {
		s.setBuffer(s.buffer[:len(s.buffer)-utf8.RuneLen(last)] + value)
		return
	}

	// the guard sees a latched result too, so "." after 1.5 is dropped
	if value == "." && strings.Contains(currentSegment(s.buffer), ".") {
		return
	}

	if s.latched {
		s.latched = false
		if isOperator {
			s.setBuffer(s.buffer + value)
		} else {
			s.setBuffer(value)
		}
		return
	}
	s.setBuffer(s.buffer + value)
}

var segmentSeparator = regexp.MustCompile(`[+\-×÷%]`)

func currentSegment(buffer string) string {
	parts := segmentSeparator.Split(buffer, -1)
	return parts[len(parts)-1]
}

func (s *Session) insertScientific(text string) {
	if text == "" {
		return
	}
	if s.latched {
		s.latched = false
		s.setBuffer(text)
		return
	}
	s.setBuffer(s.buffer + text)
}

func (s *Session) function(name FunctionName) {
	switch name {
	case AllClear:
		s.clear()
	case Equals:
		s.equals()
	case Backspace:
		s.latched = false
		if _, size := utf8.DecodeLastRuneInString(s.buffer); size > 0 {
			s.setBuffer(s.buffer[:len(s.buffer)-size])
		}
	case PlusMinus:
		s.latched = false
		switch {
		case strings.HasPrefix(s.buffer, "-"):
			s.setBuffer(s.buffer[1:])
		case s.buffer != "":
			s.setBuffer("-" + s.buffer)
		}
	}
}

func (s *Session) clear() {
	s.latched = false
	s.failed = false
	s.setBuffer("")
}

func (s *Session) equals() {
	if strings.TrimSpace(s.buffer) == "" {
		return
	}

	if s.programmer() {
		s.equalsProgrammer()
		return
	}

	v, err := expr.ScientificStrict(s.buffer)
	if err != nil {
		s.fail(err)
		return
	}

	result := expr.NumberString(v)
	s.commit(Entry{Expression: s.buffer, Result: expr.FormatResult(result)})
	s.setBuffer(result)
	s.latched = true
}

func (s *Session) commit(e Entry) {
	s.history.Add(e)
	if s.observer != nil {
		s.observer.Committed(s.mode, e)
	}
}

func (s *Session) fail(err error) {
	if s.observer != nil {
		s.observer.Failed(s.mode, s.buffer, err)
	}
	s.latched = false
	s.failed = true
	s.buffer = expr.ErrorText
	s.preview = ""
}

// refresh recomputes the live preview from the buffer.
func (s *Session) refresh() {
	if s.buffer == "" {
		s.preview = "0"
		return
	}

	if s.programmer() {
		result, err := expr.Programmer(s.buffer, s.radix)
		if err != nil {
			s.preview = ""
			return
		}
		s.preview = result
		return
	}

	v, err := expr.Scientific(s.buffer)
	switch {
	case err == nil:
		s.preview = expr.FormatNumber(v)
	case errors.Is(err, expr.ErrPartialExpression):
		if s.preview == "" {
			s.preview = "0"
		}
	default:
		s.preview = ""
	}
}

// SetMode switches the active mode. Moving between standard, scientific and programmer
// clears the buffer; converter and date leave it untouched.
func (s *Session) SetMode(m expr.Mode) {
	if !m.Evaluates() {
		s.view = m
		return
	}

	s.view = m
	if m == s.mode {
		return
	}

	s.mode = m
	if m == expr.ModeProgrammer {
		s.radix = radix.Decimal
	}
	s.clear()
}

// SetRadix switches the programmer radix, converting the value on display.
func (s *Session) SetRadix(r radix.Radix) error {
	if !s.programmer() || s.parked() {
		return ErrRadixUnavailable
	}
	s.switchRadix(r)
	return nil
}

// SelectHistory puts the result of the i-th most recent entry into the buffer.
func (s *Session) SelectHistory(i int) error {
	e, err := s.history.Select(i)
	if err != nil {
		return err
	}
	s.latched = false
	s.failed = false
	s.setBuffer(e.Result)
	return nil
}

func (s *Session) ClearHistory() {
	s.history.Clear()
}

func lastRune(s string) (rune, bool) {
	r, size := utf8.DecodeLastRuneInString(s)
	return r, size > 0
}
