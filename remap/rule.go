// Package remap parses remap rules and command line arguments and applies
// the rules to node names, namespaces and topic or service names.
package remap

import (
	"strings"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/lexer"
	"github.com/c360/semrcl/names"
)

// RuleType is a bitmask of what a rule applies to.
type RuleType uint8

// Rule types.
const (
	TypeNodeName  RuleType = 1 << iota
	TypeNamespace
	TypeTopic
	TypeService

	TypeTopicOrService = TypeTopic | TypeService
)

// String returns the string representation of the rule type
func (t RuleType) String() string {
	switch t {
	case TypeNodeName:
		return "node name"
	case TypeNamespace:
		return "namespace"
	case TypeTopic:
		return "topic"
	case TypeService:
		return "service"
	case TypeTopicOrService:
		return "topic or service"
	}
	return "unknown"
}

// Rule is a parsed remap rule of the form [node:]match:=replacement.
type Rule struct {
	Type RuleType
	// NodeName restricts the rule to one node; empty applies to all.
	NodeName string
	// Match is the name to replace. Empty for node name and namespace rules.
	Match string
	// Replacement is the new name, node name or namespace.
	Replacement string
}

// String formats the rule the way it is written on the command line
func (r Rule) String() string {
	var b strings.Builder
	if r.NodeName != "" {
		b.WriteString(r.NodeName)
		b.WriteByte(':')
	}
	switch r.Type {
	case TypeNodeName:
		b.WriteString("__node")
	case TypeNamespace:
		b.WriteString("__ns")
	case TypeTopic:
		b.WriteString("rostopic://")
		b.WriteString(r.Match)
	case TypeService:
		b.WriteString("rosservice://")
		b.WriteString(r.Match)
	default:
		b.WriteString(r.Match)
	}
	b.WriteString(":=")
	b.WriteString(r.Replacement)
	return b.String()
}

// AppliesTo reports whether the rule is active for the given node.
func (r Rule) AppliesTo(nodeName string) bool {
	return r.NodeName == "" || r.NodeName == nodeName
}

// ParseRule parses one remap rule. Any failure is reported with
// CodeInvalidRemapRule; the offset of the problem is kept when known.
func ParseRule(text string) (Rule, error) {
	la := lexer.NewLookahead(text)
	rule, err := parseRule(la)
	if err != nil {
		if errors.CodeOf(err) == errors.CodeInvalidRemapRule {
			return Rule{}, err
		}
		var e *errors.Error
		if errors.As(err, &e) {
			return Rule{}, errors.NewAt(errors.CodeInvalidRemapRule, e.Index,
				"invalid remap rule %q: %s", text, e.Message)
		}
		return Rule{}, errors.Wrapf(errors.CodeInvalidRemapRule, err, "invalid remap rule %q", text)
	}
	return rule, nil
}

func parseRule(la *lexer.Lookahead) (Rule, error) {
	var rule Rule

	first, second, err := la.Peek2()
	if err != nil {
		return rule, err
	}
	if first == lexer.Token && second == lexer.Colon {
		if rule.NodeName, err = la.Accept(); err != nil {
			return rule, err
		}
		if _, err = la.Expect(lexer.Colon); err != nil {
			return rule, err
		}
	}

	lexeme, err := la.Peek()
	if err != nil {
		return rule, err
	}
	switch lexeme {
	case lexer.Node:
		if err := parseNodeNameRule(la, &rule); err != nil {
			return rule, err
		}
		if _, err := la.Expect(lexer.EOF); err != nil {
			return rule, err
		}
		return rule, nil
	case lexer.NS:
		return rule, parseNamespaceRule(la, &rule)
	default:
		return rule, parseNameRule(la, &rule)
	}
}

func parseNodeNameRule(la *lexer.Lookahead, rule *Rule) error {
	if _, err := la.Accept(); err != nil {
		return err
	}
	if _, err := la.Expect(lexer.Separator); err != nil {
		return err
	}
	start := la.Index()
	replacement, err := la.Expect(lexer.Token)
	if err != nil {
		return err
	}
	if err := names.ValidateNodeName(replacement); err != nil {
		return errors.NewAt(errors.CodeInvalidRemapRule, start, "node name replacement is invalid: %s", err)
	}
	rule.Type = TypeNodeName
	rule.Replacement = replacement
	return nil
}

func parseNamespaceRule(la *lexer.Lookahead, rule *Rule) error {
	if _, err := la.Accept(); err != nil {
		return err
	}
	if _, err := la.Expect(lexer.Separator); err != nil {
		return err
	}

	// the replacement is the rest of the input
	start := la.Index()
	replacement := la.Text()
	if err := names.ValidateNamespace(replacement); err != nil {
		return errors.NewAt(errors.CodeInvalidRemapRule, start+max(errors.IndexOf(err), 0),
			"namespace replacement is invalid: %s", err)
	}
	rule.Type = TypeNamespace
	rule.Replacement = replacement
	return nil
}

func parseNameRule(la *lexer.Lookahead, rule *Rule) error {
	rule.Type = TypeTopicOrService

	lexeme, err := la.Peek()
	if err != nil {
		return err
	}
	switch lexeme {
	case lexer.URLTopic:
		rule.Type = TypeTopic
		_, err = la.Accept()
	case lexer.URLService:
		rule.Type = TypeService
		_, err = la.Accept()
	}
	if err != nil {
		return err
	}

	matchStart := la.Index()
	if err := parseMatchName(la); err != nil {
		return err
	}
	rule.Match = la.Input()[matchStart:la.Index()]

	if _, err := la.Expect(lexer.Separator); err != nil {
		return err
	}

	// the replacement is the rest of the input and may hold substitutions,
	// which have no lexeme of their own
	replacementStart := la.Index()
	replacement := la.Text()
	if i := strings.IndexByte(replacement, '\\'); i >= 0 {
		return errors.NewAt(errors.CodeInvalidRemapRule, replacementStart+i, "back references are not implemented")
	}
	if err := names.ValidateTopicName(replacement); err != nil {
		return errors.NewAt(errors.CodeInvalidRemapRule, replacementStart+max(errors.IndexOf(err), 0),
			"replacement name is invalid: %s", err)
	}
	rule.Replacement = replacement
	return nil
}

// parseMatchName parses ["/" | "~/"] token {"/" token}.
func parseMatchName(la *lexer.Lookahead) error {
	lexeme, err := la.Peek()
	if err != nil {
		return err
	}
	if lexeme == lexer.ForwardSlash || lexeme == lexer.TildeSlash {
		if _, err := la.Accept(); err != nil {
			return err
		}
	}

	for {
		if err := parseNameToken(la); err != nil {
			return err
		}
		lexeme, err := la.Peek()
		if err != nil {
			return err
		}
		if lexeme != lexer.ForwardSlash {
			return nil
		}
		if _, err := la.Accept(); err != nil {
			return err
		}
	}
}

func parseNameToken(la *lexer.Lookahead) error {
	lexeme, err := la.Peek()
	if err != nil {
		return err
	}
	switch {
	case lexeme == lexer.Token:
		_, err = la.Accept()
		return err
	case lexeme.IsWildcard():
		return errors.NewAt(errors.CodeInvalidRemapRule, la.Index(), "wildcards are not implemented")
	case lexeme.IsBackReference():
		return errors.NewAt(errors.CodeInvalidRemapRule, la.Index(), "back references are not implemented")
	}
	return errors.NewAt(errors.CodeWrongLexeme, la.Index(), "expecting token or wildcard, got (%s) at %d", lexeme, la.Index())
}
