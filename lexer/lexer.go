package lexer

import (
	"github.com/c360/semrcl/errors"
)

// state indexes the transition table. Values at or above firstTerminal
// are terminal and encode a Lexeme.
type state uint8

// transition moves to `to` when the current character lies in [lo, hi].
// Range transitions always consume the character.
type transition struct {
	to state
	lo byte
	hi byte
}

// stateDef holds the range transitions of a state plus its single
// fallback. The fallback movement is applied to the consumed length:
// 0 consumes the current character, 1 retries it in the next state and
// N >= 2 steps back N-1 characters.
type stateDef struct {
	transitions []transition
	elseTo      state
	elseMove    int
}

const (
	sStart state = iota
	sTilde
	sColon
	sStar
	sBackslash
	sTokAlnum // inside a token, previous character alphanumeric
	sTokUnder // inside a token, previous character '_'
	sUnder    // leading "_"
	sUnder2   // leading "__"
	sUnderN   // "__n"
	sUnderNo  // "__no"
	sUnderNod // "__nod"
	sUnderNa  // "__na"
	sUnderNam // "__nam"
	sNodeKw   // "__node" or "__name"
	sNsKw     // "__ns"
	sR
	sRo
	sRos
	sRost
	sRosto
	sRostop
	sRostopi
	sRostopic
	sTopicColon
	sTopicSlash
	sRoss
	sRosse
	sRosser
	sRosserv
	sRosservi
	sRosservic
	sRosservice
	sServiceColon
	sServiceSlash

	numStates
)

const firstTerminal state = 64

func terminal(l Lexeme) state { return firstTerminal + state(l) }

var (
	alnumRanges = []transition{
		{to: sTokAlnum, lo: '0', hi: '9'},
		{to: sTokAlnum, lo: 'a', hi: 'z'},
		{to: sTokAlnum, lo: 'A', hi: 'Z'},
		{to: sTokUnder, lo: '_', hi: '_'},
	}
)

// keyword builds a state on the way to a keyword: the listed characters
// continue the keyword, anything else that can continue a plain token
// falls back into the token states without losing what was consumed.
func keyword(next ...transition) stateDef {
	ts := make([]transition, 0, len(next)+len(alnumRanges))
	ts = append(ts, next...)
	ts = append(ts, alnumRanges...)
	return stateDef{transitions: ts, elseTo: terminal(Token), elseMove: 1}
}

func char(c byte, to state) transition { return transition{to: to, lo: c, hi: c} }

// special builds a state inside the "__node"/"__ns" keywords where any
// deviation is not a valid lexeme.
func special(next ...transition) stateDef {
	return stateDef{transitions: next, elseTo: terminal(None), elseMove: 1}
}

var table = [numStates]stateDef{
	sStart: {
		transitions: []transition{
			char(0, terminal(EOF)),
			char('/', terminal(ForwardSlash)),
			char('.', terminal(Dot)),
			char('~', sTilde),
			char(':', sColon),
			char('*', sStar),
			char('\\', sBackslash),
			char('r', sR),
			char('_', sUnder),
			{to: sTokAlnum, lo: 'a', hi: 'z'},
			{to: sTokAlnum, lo: 'A', hi: 'Z'},
		},
		elseTo:   terminal(None),
		elseMove: 0,
	},
	sTilde: {
		transitions: []transition{char('/', terminal(TildeSlash))},
		elseTo:      terminal(None),
		elseMove:    1,
	},
	sColon: {
		transitions: []transition{char('=', terminal(Separator))},
		elseTo:      terminal(Colon),
		elseMove:    1,
	},
	sStar: {
		transitions: []transition{char('*', terminal(WildMulti))},
		elseTo:      terminal(WildOne),
		elseMove:    1,
	},
	sBackslash: {
		transitions: []transition{
			char('1', terminal(BR1)),
			char('2', terminal(BR2)),
			char('3', terminal(BR3)),
			char('4', terminal(BR4)),
			char('5', terminal(BR5)),
			char('6', terminal(BR6)),
			char('7', terminal(BR7)),
			char('8', terminal(BR8)),
			char('9', terminal(BR9)),
		},
		elseTo:   terminal(None),
		elseMove: 1,
	},
	sTokAlnum: {
		transitions: alnumRanges,
		elseTo:      terminal(Token),
		elseMove:    1,
	},
	sTokUnder: {
		transitions: alnumRanges[:3],
		elseTo:      terminal(Token),
		elseMove:    1,
	},
	sUnder: {
		transitions: []transition{
			char('_', sUnder2),
			alnumRanges[0],
			alnumRanges[1],
			alnumRanges[2],
		},
		elseTo:   terminal(Token),
		elseMove: 1,
	},
	sUnder2:   special(char('n', sUnderN)),
	sUnderN:   special(char('o', sUnderNo), char('a', sUnderNa), char('s', sNsKw)),
	sUnderNo:  special(char('d', sUnderNod)),
	sUnderNod: special(char('e', sNodeKw)),
	sUnderNa:  special(char('m', sUnderNam)),
	sUnderNam: special(char('e', sNodeKw)),
	sNodeKw:   {elseTo: terminal(Node), elseMove: 1},
	sNsKw:     {elseTo: terminal(NS), elseMove: 1},

	sR:        keyword(char('o', sRo)),
	sRo:       keyword(char('s', sRos)),
	sRos:      keyword(char('t', sRost), char('s', sRoss)),
	sRost:     keyword(char('o', sRosto)),
	sRosto:    keyword(char('p', sRostop)),
	sRostop:   keyword(char('i', sRostopi)),
	sRostopi:  keyword(char('c', sRostopic)),
	sRostopic: keyword(char(':', sTopicColon)),
	sTopicColon: {
		transitions: []transition{char('/', sTopicSlash)},
		elseTo:      terminal(Token),
		elseMove:    2,
	},
	sTopicSlash: {
		transitions: []transition{char('/', terminal(URLTopic))},
		elseTo:      terminal(Token),
		elseMove:    3,
	},

	sRoss:       keyword(char('e', sRosse)),
	sRosse:      keyword(char('r', sRosser)),
	sRosser:     keyword(char('v', sRosserv)),
	sRosserv:    keyword(char('i', sRosservi)),
	sRosservi:   keyword(char('c', sRosservic)),
	sRosservic:  keyword(char('e', sRosservice)),
	sRosservice: keyword(char(':', sServiceColon)),
	sServiceColon: {
		transitions: []transition{char('/', sServiceSlash)},
		elseTo:      terminal(Token),
		elseMove:    2,
	},
	sServiceSlash: {
		transitions: []transition{char('/', terminal(URLService))},
		elseTo:      terminal(Token),
		elseMove:    3,
	},
}

// Analyze classifies the lexeme at the start of text and returns it with
// the number of bytes it spans. Empty input yields EOF with length 0.
// When no lexeme matches, None is returned with the number of bytes that
// were examined, which is never more than len(text).
//
// Analyze is pure and safe for concurrent use.
func Analyze(text string) (Lexeme, int, error) {
	length := 0
	st := sStart

	for st < firstTerminal {
		if st >= numStates {
			return None, 0, errors.New(errors.CodeError, "internal lexer error: state %d does not exist", st)
		}
		def := &table[st]

		var c byte
		if length < len(text) {
			c = text[length]
		}

		next := def.elseTo
		movement := def.elseMove
		for _, t := range def.transitions {
			if t.lo <= c && c <= t.hi {
				next = t.to
				movement = 0
				break
			}
		}

		if movement == 0 {
			if length < len(text) && c != 0 {
				length++
			}
		} else {
			if movement-1 > length {
				return None, 0, errors.New(errors.CodeError,
					"internal lexer error: cannot move back %d characters from %d", movement-1, length)
			}
			length -= movement - 1
		}
		st = next
	}

	lexeme := Lexeme(st - firstTerminal)
	if int(lexeme) >= len(lexemeNames) {
		return None, 0, errors.New(errors.CodeError, "internal lexer error: terminal state %d has no lexeme", st)
	}
	return lexeme, length, nil
}
