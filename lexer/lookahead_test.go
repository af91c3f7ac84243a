package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/errors"
)

func TestLookahead_PeekIsIdempotent(t *testing.T) {
	la := NewLookahead("foo/bar")

	for i := 0; i < 5; i++ {
		lexeme, err := la.Peek()
		require.NoError(t, err)
		assert.Equal(t, Token, lexeme)
	}
	for i := 0; i < 5; i++ {
		first, second, err := la.Peek2()
		require.NoError(t, err)
		assert.Equal(t, Token, first)
		assert.Equal(t, ForwardSlash, second)
	}
	assert.Equal(t, 0, la.Index())
}

func TestLookahead_AcceptAdvances(t *testing.T) {
	text := "rostopic://foo/bar"
	la := NewLookahead(text)

	var consumed int
	for {
		lexeme, err := la.Peek()
		require.NoError(t, err)
		if lexeme == EOF {
			break
		}
		before := la.Text()
		_, length, err := Analyze(before)
		require.NoError(t, err)

		tok, err := la.Accept()
		require.NoError(t, err)
		assert.Len(t, tok, length)
		consumed += length
		assert.Equal(t, text[consumed:], la.Text())
	}
	assert.Equal(t, len(text), la.Index())
}

func TestLookahead_Peek2ThenAccept(t *testing.T) {
	la := NewLookahead("node:foo")

	first, second, err := la.Peek2()
	require.NoError(t, err)
	assert.Equal(t, Token, first)
	assert.Equal(t, Colon, second)

	tok, err := la.Accept()
	require.NoError(t, err)
	assert.Equal(t, "node", tok)

	lexeme, err := la.Peek()
	require.NoError(t, err)
	assert.Equal(t, Colon, lexeme)

	tok, err = la.Expect(Colon)
	require.NoError(t, err)
	assert.Equal(t, ":", tok)
	assert.Equal(t, "foo", la.Text())
}

func TestLookahead_Peek2MirrorsTerminator(t *testing.T) {
	la := NewLookahead("")
	first, second, err := la.Peek2()
	require.NoError(t, err)
	assert.Equal(t, EOF, first)
	assert.Equal(t, EOF, second)

	la = NewLookahead("{x}")
	first, second, err = la.Peek2()
	require.NoError(t, err)
	assert.Equal(t, None, first)
	assert.Equal(t, None, second)
}

func TestLookahead_AcceptRules(t *testing.T) {
	la := NewLookahead("foo")
	_, err := la.Accept()
	require.Error(t, err)
	assert.Equal(t, errors.CodeError, errors.CodeOf(err))

	_, err = la.Expect(Token)
	require.NoError(t, err)

	lexeme, err := la.Peek()
	require.NoError(t, err)
	assert.Equal(t, EOF, lexeme)
	tok, err := la.Accept()
	require.NoError(t, err)
	assert.Empty(t, tok)
	tok, err = la.Accept()
	require.NoError(t, err, "accepting EOF repeatedly is a no-op")
	assert.Empty(t, tok)

	la = NewLookahead("-")
	lexeme, err = la.Peek()
	require.NoError(t, err)
	assert.Equal(t, None, lexeme)
	_, err = la.Accept()
	assert.Error(t, err)
}

func TestLookahead_ExpectWrongLexeme(t *testing.T) {
	la := NewLookahead("foo:=bar")
	_, err := la.Expect(Token)
	require.NoError(t, err)

	_, err = la.Expect(Colon)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeWrongLexeme))
	assert.Equal(t, 3, errors.IndexOf(err))
	assert.Contains(t, err.Error(), "expected lexeme type (:) got (:=) at 3")
	assert.Equal(t, ":=bar", la.Text(), "failed expect must not consume")
}
