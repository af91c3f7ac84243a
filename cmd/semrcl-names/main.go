// Package main implements semrcl-names, a command line tool for working
// with ROS names: it tokenizes, expands, validates and resolves names and
// remap rules, and can run a loopback publisher/subscriber over the
// configured transport.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/c360/semrcl/config"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "semrcl-names"
)

// command is one subcommand of the tool.
type command struct {
	summary string
	usage   string
	run     func(env *environment, args []string) error
}

// environment carries what every subcommand shares.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	global globalFlags
}

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

var commands = map[string]command{
	"lex":         {"Print the lexemes of a name or remap rule", "lex <text>", runLex},
	"expand":      {"Expand a topic or service name for a node", "expand [flags] <name>", runExpand},
	"validate":    {"Validate a topic name, node name or namespace", "validate [flags] <name>", runValidate},
	"remap-check": {"Parse remap rules and print their structure", "remap-check <rule>...", runRemapCheck},
	"resolve":     {"Expand, remap and validate a name as a node would", "resolve [flags] <name> [--ros-args ...]", runResolve},
	"loopback":    {"Publish and receive messages through the configured transport", "loopback [flags] [--ros-args ...]", runLoopback},
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	env := &environment{stdout: stdout, stderr: stderr}

	flagSet := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&env.global.configPath, "config", "c", os.Getenv(config.EnvConfigPath),
		"path to YAML configuration file (env: "+config.EnvConfigPath+")")
	flagSet.StringVar(&env.global.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flagSet.StringVar(&env.global.logFormat, "log-format", "", "log format: text, json (overrides config)")
	showVersion := flagSet.BoolP("version", "v", false, "show version information")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if *showVersion {
		_, _ = fmt.Fprintf(stdout, "%s %s\n", appName, Version)
		return nil
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(stderr, flagSet)
		return nil
	}

	name := flagSet.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, run %s --help", name, appName)
	}
	return cmd.run(env, flagSet.Args()[1:])
}

// loadConfig loads the file given with --config, or the defaults, and
// applies the logging flags.
func (env *environment) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if env.global.configPath != "" {
		cfg, err = config.Load(env.global.configPath)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}
	if env.global.logLevel != "" {
		cfg.Logging.Level = env.global.logLevel
	}
	if env.global.logFormat != "" {
		cfg.Logging.Format = env.global.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - ROS name tooling

Usage:
  %s [global flags] <command> [flags] [args]

Commands:
`, appName, appName)

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}

	_, _ = fmt.Fprintf(w, "\nGlobal flags:\n%s", flagSet.FlagUsages())
	_, _ = fmt.Fprintf(w, `
Examples:
  %[1]s lex 'talker:rostopic://chatter:=news'
  %[1]s expand --node talker --namespace /robot '~/state'
  %[1]s resolve --node talker chatter --ros-args -r chatter:=news
  %[1]s --config semrcl.yaml loopback --count 5
`, appName)
}

// newCommandFlags returns the flag set of a subcommand.
func newCommandFlags(env *environment, name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(appName+" "+name, pflag.ContinueOnError)
	flagSet.SetOutput(env.stderr)
	flagSet.Usage = func() {
		_, _ = fmt.Fprintf(env.stderr, "Usage:\n  %s %s\n\n%s", appName, commands[name].usage, flagSet.FlagUsages())
	}
	return flagSet
}

// splitROSArgs separates the arguments before --ros-args from the ROS
// arguments themselves.
func splitROSArgs(args []string) (before, ros []string) {
	for i, arg := range args {
		if arg == "--ros-args" {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

func oneArg(flagSet *pflag.FlagSet, what string) (string, error) {
	if flagSet.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s, got %d arguments: %s",
			what, flagSet.NArg(), strings.Join(flagSet.Args(), " "))
	}
	return flagSet.Arg(0), nil
}
