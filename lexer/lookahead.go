package lexer

import (
	"github.com/c360/semrcl/errors"
)

// Lookahead wraps Analyze with two lexemes of lookahead. It borrows the
// text it was created with and never copies it.
//
// Peek and Peek2 are idempotent until Accept is called. Accept consumes
// the lexeme reported by the last Peek.
type Lookahead struct {
	text string
	// index of the first unconsumed byte
	idx int

	filled int
	start  [2]int
	end    [2]int
	lexeme [2]Lexeme
}

// NewLookahead returns a lookahead buffer over text.
func NewLookahead(text string) *Lookahead {
	return &Lookahead{text: text}
}

func (l *Lookahead) analyzeAt(pos int) (Lexeme, int, error) {
	lexeme, length, err := Analyze(l.text[pos:])
	if err != nil {
		return None, 0, err
	}
	return lexeme, pos + length, nil
}

// Peek returns the next lexeme without consuming it.
func (l *Lookahead) Peek() (Lexeme, error) {
	if l == nil {
		return None, errors.New(errors.CodeInvalidArgument, "lookahead buffer is nil")
	}
	if l.filled == 0 {
		lexeme, end, err := l.analyzeAt(l.idx)
		if err != nil {
			return None, err
		}
		l.start[0], l.end[0], l.lexeme[0] = l.idx, end, lexeme
		l.filled = 1
	}
	return l.lexeme[0], nil
}

// Peek2 returns the next two lexemes without consuming them. When the
// first is EOF or None the second mirrors it; the input is never lexed
// past a terminating lexeme.
func (l *Lookahead) Peek2() (Lexeme, Lexeme, error) {
	first, err := l.Peek()
	if err != nil {
		return None, None, err
	}
	if l.filled < 2 {
		if first == EOF || first == None {
			l.start[1], l.end[1], l.lexeme[1] = l.start[0], l.end[0], first
		} else {
			lexeme, end, err := l.analyzeAt(l.end[0])
			if err != nil {
				return None, None, err
			}
			l.start[1], l.end[1], l.lexeme[1] = l.end[0], end, lexeme
		}
		l.filled = 2
	}
	return first, l.lexeme[1], nil
}

// Accept consumes the lexeme returned by the last Peek and returns its
// text. Accepting EOF is a no-op that returns an empty string. Accepting
// without a pending lexeme, or accepting None, is an error.
func (l *Lookahead) Accept() (string, error) {
	if l == nil {
		return "", errors.New(errors.CodeInvalidArgument, "lookahead buffer is nil")
	}
	if l.filled == 0 {
		return "", errors.New(errors.CodeError, "no lexeme to accept, call Peek first")
	}
	switch l.lexeme[0] {
	case EOF:
		return "", nil
	case None:
		return "", errors.NewAt(errors.CodeError, l.start[0], "cannot accept invalid lexeme at %d", l.start[0])
	}

	text := l.text[l.start[0]:l.end[0]]
	l.idx = l.end[0]

	if l.filled == 2 {
		l.start[0], l.end[0], l.lexeme[0] = l.start[1], l.end[1], l.lexeme[1]
		l.filled = 1
	} else {
		l.filled = 0
	}
	return text, nil
}

// Expect accepts the next lexeme if it is of the given kind. Otherwise it
// returns a WrongLexeme error carrying the offset of the unexpected text.
func (l *Lookahead) Expect(want Lexeme) (string, error) {
	got, err := l.Peek()
	if err != nil {
		return "", err
	}
	if got != want {
		return "", errors.NewAt(errors.CodeWrongLexeme, l.idx,
			"expected lexeme type (%s) got (%s) at %d", want, got, l.idx)
	}
	return l.Accept()
}

// Text returns the unconsumed remainder of the input.
func (l *Lookahead) Text() string {
	return l.text[l.idx:]
}

// Index returns the offset of the first unconsumed byte.
func (l *Lookahead) Index() int {
	return l.idx
}

// Input returns the full text the buffer was created with.
func (l *Lookahead) Input() string {
	return l.text
}
