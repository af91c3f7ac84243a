// Package names validates ROS node names, namespaces and topic or
// service names, and expands relative names into fully qualified ones.
package names

import (
	"github.com/c360/semrcl/errors"
)

// Length limits applied to fully qualified names.
const (
	MaxNodeNameLength  = 255
	MaxTopicNameLength = 247
	MaxNamespaceLength = MaxTopicNameLength - 2
)

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func invalidTopic(index int, format string, args ...any) error {
	return errors.NewAt(errors.CodeTopicNameInvalid, index, format, args...)
}

// ValidateTopicName checks a topic or service name before expansion. The
// name may be relative and may contain a leading "~" and "{key}"
// substitutions. The returned error carries CodeTopicNameInvalid and the
// offset of the first offending byte.
func ValidateTopicName(name string) error {
	if name == "" {
		return invalidTopic(0, "topic name must not be empty")
	}
	if isDigit(name[0]) {
		return invalidTopic(0, "topic name must not start with a number")
	}
	if len(name) > 1 && name[len(name)-1] == '/' {
		return invalidTopic(len(name)-1, "topic name must not end with a forward slash")
	}

	inSubstitution := false
	substitutionStart := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '~':
			if i != 0 {
				return invalidTopic(i, "'~' must only appear at the start of a topic name")
			}
			if len(name) > 1 && name[1] != '/' {
				return invalidTopic(1, "'~' must be followed by a forward slash")
			}
		case c == '{':
			if inSubstitution {
				return invalidTopic(i, "nested '{' in topic name")
			}
			inSubstitution = true
			substitutionStart = i
		case c == '}':
			if !inSubstitution {
				return invalidTopic(i, "unmatched '}' in topic name")
			}
			if i == substitutionStart+1 {
				return invalidTopic(i, "empty substitution in topic name")
			}
			inSubstitution = false
		case inSubstitution:
			if !isAlnum(c) && c != '_' {
				return invalidTopic(i, "substitution contains invalid character '%c'", c)
			}
			if i == substitutionStart+1 && isDigit(c) {
				return invalidTopic(i, "substitution must not start with a number")
			}
		case c == '/':
			if i > 0 && name[i-1] == '/' {
				return invalidTopic(i, "topic name must not contain repeated forward slashes")
			}
		case c == '_' || isAlnum(c):
			if isDigit(c) && i > 0 && name[i-1] == '/' {
				return invalidTopic(i, "topic name tokens must not start with a number")
			}
		default:
			return invalidTopic(i, "topic name contains invalid character '%c'", c)
		}
	}
	if inSubstitution {
		return invalidTopic(substitutionStart, "unmatched '{' in topic name")
	}
	return nil
}

// ValidateFullTopicName checks a fully qualified, fully substituted topic
// or service name. It is stricter than ValidateTopicName: the name must be
// absolute and may only contain alphanumerics, '_' and '/'.
func ValidateFullTopicName(name string) error {
	if name == "" {
		return invalidTopic(0, "topic name must not be empty")
	}
	if name[0] != '/' {
		return invalidTopic(0, "topic name must be absolute, it must lead with a '/'")
	}
	if len(name) > 1 && name[len(name)-1] == '/' {
		return invalidTopic(len(name)-1, "topic name must not end with a forward slash")
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '/':
			if name[i-1] == '/' {
				return invalidTopic(i, "topic name must not contain repeated forward slashes")
			}
		case c == '_' || isAlnum(c):
			if isDigit(c) && name[i-1] == '/' {
				return invalidTopic(i, "topic name tokens must not start with a number")
			}
		default:
			return invalidTopic(i, "topic name contains invalid character '%c'", c)
		}
	}
	if len(name) > MaxTopicNameLength {
		return invalidTopic(MaxTopicNameLength, "topic name length must not exceed %d", MaxTopicNameLength)
	}
	return nil
}

// ValidateNodeName checks a node base name: a single non-empty token of
// alphanumerics and '_' that does not start with a number.
func ValidateNodeName(name string) error {
	if name == "" {
		return errors.NewAt(errors.CodeNodeInvalidName, 0, "node name must not be empty")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isAlnum(c) && c != '_' {
			return errors.NewAt(errors.CodeNodeInvalidName, i, "node name contains invalid character '%c'", c)
		}
	}
	if isDigit(name[0]) {
		return errors.NewAt(errors.CodeNodeInvalidName, 0, "node name must not start with a number")
	}
	if len(name) > MaxNodeNameLength {
		return errors.NewAt(errors.CodeNodeInvalidName, MaxNodeNameLength,
			"node name length must not exceed %d", MaxNodeNameLength)
	}
	return nil
}

// ValidateNamespace checks a node namespace: an absolute path of tokens
// separated by single forward slashes, or "/" itself.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return errors.NewAt(errors.CodeNodeInvalidNamespace, 0, "namespace must not be empty")
	}
	if err := ValidateFullTopicName(namespace); err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return errors.NewAt(errors.CodeNodeInvalidNamespace, e.Index, "invalid namespace: %s", e.Message)
		}
		return errors.Recode(err, errors.CodeNodeInvalidNamespace)
	}
	if len(namespace) > MaxNamespaceLength {
		return errors.NewAt(errors.CodeNodeInvalidNamespace, MaxNamespaceLength,
			"namespace length must not exceed %d", MaxNamespaceLength)
	}
	return nil
}
