package remap

import (
	"github.com/c360/semrcl/errors"
)

// Command line flags understood inside a --ros-args section.
const (
	ROSArgsFlag      = "--ros-args"
	ROSArgsEndFlag   = "--"
	RemapFlag        = "--remap"
	ShortRemapFlag   = "-r"
	EnclaveFlag      = "--enclave"
	ShortEnclaveFlag = "-e"
)

// Arguments is the parsed form of a command line. Non-ROS arguments are
// kept by index so callers can strip the ROS ones.
type Arguments struct {
	// Rules holds remap rules in command line order.
	Rules []Rule
	// Enclave is the last enclave given, or empty.
	Enclave string
	// Unparsed holds the indices of arguments outside any --ros-args section.
	Unparsed []int
	// UnparsedROS holds the indices of unrecognised arguments inside a
	// --ros-args section.
	UnparsedROS []int
}

// ParseArguments parses argv. Arguments between --ros-args and -- (or the
// end of argv) are ROS arguments; everything else is left for the
// application. A flag missing its value or a remap rule that does not
// parse fails with CodeInvalidROSArgs.
func ParseArguments(argv []string) (*Arguments, error) {
	args := &Arguments{}

	inROS := false
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if !inROS {
			if arg == ROSArgsFlag {
				inROS = true
				continue
			}
			args.Unparsed = append(args.Unparsed, i)
			continue
		}

		switch arg {
		case ROSArgsFlag:
			// a repeated --ros-args is a no-op
		case ROSArgsEndFlag:
			inROS = false
		case RemapFlag, ShortRemapFlag:
			if i+1 >= len(argv) {
				return nil, errors.NewAt(errors.CodeInvalidROSArgs, i, "argument %d %q must be followed by a remap rule", i, arg)
			}
			i++
			rule, err := ParseRule(argv[i])
			if err != nil {
				return nil, errors.Wrapf(errors.CodeInvalidROSArgs, err, "argument %d is not a valid remap rule", i)
			}
			args.Rules = append(args.Rules, rule)
		case EnclaveFlag, ShortEnclaveFlag:
			if i+1 >= len(argv) {
				return nil, errors.NewAt(errors.CodeInvalidROSArgs, i, "argument %d %q must be followed by an enclave name", i, arg)
			}
			i++
			args.Enclave = argv[i]
		default:
			args.UnparsedROS = append(args.UnparsedROS, i)
		}
	}
	return args, nil
}

// RemoveROSArgs returns the arguments of argv that are not ROS arguments,
// in their original order.
func (a *Arguments) RemoveROSArgs(argv []string) []string {
	out := make([]string, 0, len(a.Unparsed))
	for _, i := range a.Unparsed {
		if i < len(argv) {
			out = append(out, argv[i])
		}
	}
	return out
}

// Copy returns a deep copy of the arguments.
func (a *Arguments) Copy() *Arguments {
	if a == nil {
		return nil
	}
	return &Arguments{
		Rules:       append([]Rule(nil), a.Rules...),
		Enclave:     a.Enclave,
		Unparsed:    append([]int(nil), a.Unparsed...),
		UnparsedROS: append([]int(nil), a.UnparsedROS...),
	}
}
