package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/lexer"
	"github.com/c360/semrcl/names"
	"github.com/c360/semrcl/rcl"
	"github.com/c360/semrcl/remap"
)

func runLex(env *environment, args []string) error {
	flagSet := newCommandFlags(env, "lex")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	text, err := oneArg(flagSet, "text")
	if err != nil {
		return err
	}

	offset := 0
	for {
		lexeme, length, err := lexer.Analyze(text[offset:])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(env.stdout, "%4d  %-14s %q\n", offset, lexeme, text[offset:offset+length])
		switch lexeme {
		case lexer.EOF:
			return nil
		case lexer.None:
			return errors.NewAt(errors.CodeError, offset, "no lexeme matches at offset %d", offset)
		}
		offset += length
	}
}

func runExpand(env *environment, args []string) error {
	flagSet := newCommandFlags(env, "expand")
	node := flagSet.StringP("node", "n", "node", "node name used for ~ and {node}")
	namespace := flagSet.String("namespace", "/", "node namespace used for relative names and {ns}")
	subs := flagSet.StringToString("sub", nil, "extra substitution as key=value, may be repeated")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	name, err := oneArg(flagSet, "name")
	if err != nil {
		return err
	}

	substitutions := names.DefaultSubstitutions()
	for k, v := range *subs {
		substitutions[k] = v
	}
	expanded, err := names.ExpandTopicName(name, *node, *namespace, substitutions)
	if err != nil {
		return describe(err, name)
	}
	_, _ = fmt.Fprintln(env.stdout, expanded)
	return nil
}

func runValidate(env *environment, args []string) error {
	flagSet := newCommandFlags(env, "validate")
	kind := flagSet.StringP("kind", "k", "topic", "what to validate: topic, full-topic, node, namespace")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	name, err := oneArg(flagSet, "name")
	if err != nil {
		return err
	}

	var validate func(string) error
	switch strings.ToLower(*kind) {
	case "topic":
		validate = names.ValidateTopicName
	case "full-topic", "full":
		validate = names.ValidateFullTopicName
	case "node":
		validate = names.ValidateNodeName
	case "namespace", "ns":
		validate = names.ValidateNamespace
	default:
		return fmt.Errorf("unknown kind %q, expected topic, full-topic, node or namespace", *kind)
	}
	if err := validate(name); err != nil {
		return describe(err, name)
	}
	_, _ = fmt.Fprintf(env.stdout, "%s: valid %s\n", name, *kind)
	return nil
}

func runRemapCheck(env *environment, args []string) error {
	flagSet := newCommandFlags(env, "remap-check")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() == 0 {
		return fmt.Errorf("expected at least one remap rule")
	}

	for _, text := range flagSet.Args() {
		rule, err := remap.ParseRule(text)
		if err != nil {
			return describe(err, text)
		}
		_, _ = fmt.Fprintf(env.stdout, "%s\n  type:        %s\n", text, rule.Type)
		if rule.NodeName != "" {
			_, _ = fmt.Fprintf(env.stdout, "  node:        %s\n", rule.NodeName)
		}
		if rule.Match != "" {
			_, _ = fmt.Fprintf(env.stdout, "  match:       %s\n", rule.Match)
		}
		_, _ = fmt.Fprintf(env.stdout, "  replacement: %s\n", rule.Replacement)
	}
	return nil
}

func runResolve(env *environment, args []string) error {
	before, rosArgs := splitROSArgs(args)

	flagSet := newCommandFlags(env, "resolve")
	node := flagSet.StringP("node", "n", "node", "name of the resolving node")
	namespace := flagSet.String("namespace", "/", "namespace of the resolving node")
	service := flagSet.BoolP("service", "s", false, "resolve as a service name")
	onlyExpand := flagSet.Bool("only-expand", false, "expand without applying remap rules")
	if err := flagSet.Parse(before); err != nil {
		return err
	}
	name, err := oneArg(flagSet, "name")
	if err != nil {
		return err
	}

	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(env.stderr, cfg.Logging.Level, cfg.Logging.Format)

	s, err := startSession(context.Background(), cfg, logger, sessionArgs(cfg, rosArgs))
	if err != nil {
		return err
	}
	defer s.close()

	n := &rcl.Node{}
	if err := n.Init(s.context, *node, *namespace, nil); err != nil {
		return err
	}
	defer func() { _ = n.Fini() }()

	resolved, err := n.ResolveName(name, *service, *onlyExpand)
	if err != nil {
		return describe(err, name)
	}
	_, _ = fmt.Fprintln(env.stdout, resolved)
	return nil
}

// describe points at the offending byte of input when err carries an
// offset.
func describe(err error, input string) error {
	idx := errors.IndexOf(err)
	if idx < 0 || idx > len(input) {
		return err
	}
	return fmt.Errorf("%w\n  %s\n  %s^", err, input, strings.Repeat(" ", idx))
}
