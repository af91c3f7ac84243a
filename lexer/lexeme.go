// Package lexer classifies the characters of ROS names and remap rules
// into lexemes, and provides a two-token lookahead buffer for the
// recursive-descent parsers built on top of it.
package lexer

import "fmt"

// Lexeme is the kind of a token produced by Analyze. A lexeme carries no
// payload; its text is a span of the caller's input.
type Lexeme int

// Lexeme kinds.
const (
	None Lexeme = iota
	EOF
	TildeSlash
	URLService
	URLTopic
	Colon
	Node
	NS
	Separator
	BR1
	BR2
	BR3
	BR4
	BR5
	BR6
	BR7
	BR8
	BR9
	Token
	ForwardSlash
	WildOne
	WildMulti
	Dot
)

var lexemeNames = [...]string{
	None:         "none",
	EOF:          "eof",
	TildeSlash:   "~/",
	URLService:   "rosservice://",
	URLTopic:     "rostopic://",
	Colon:        ":",
	Node:         "__node",
	NS:           "__ns",
	Separator:    ":=",
	BR1:          `\1`,
	BR2:          `\2`,
	BR3:          `\3`,
	BR4:          `\4`,
	BR5:          `\5`,
	BR6:          `\6`,
	BR7:          `\7`,
	BR8:          `\8`,
	BR9:          `\9`,
	Token:        "token",
	ForwardSlash: "/",
	WildOne:      "*",
	WildMulti:    "**",
	Dot:          ".",
}

// String returns a short human readable name for the lexeme
func (l Lexeme) String() string {
	if l >= 0 && int(l) < len(lexemeNames) {
		return lexemeNames[l]
	}
	return fmt.Sprintf("lexeme(%d)", int(l))
}

// IsBackReference reports whether l is one of BR1 through BR9.
func (l Lexeme) IsBackReference() bool {
	return l >= BR1 && l <= BR9
}

// IsWildcard reports whether l is WildOne or WildMulti.
func (l Lexeme) IsWildcard() bool {
	return l == WildOne || l == WildMulti
}
