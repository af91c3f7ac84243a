package names

import (
	"strings"

	"github.com/c360/semrcl/errors"
)

// ExpandTopicName turns a possibly relative topic or service name into an
// absolute one using the node's name and namespace:
//
//   - a leading "~" becomes the node's fully qualified name
//   - "{node}", "{ns}" and "{namespace}" are replaced from the node; these
//     built-ins win over entries in substitutions, and "{ns}/x" in the root
//     namespace becomes "/x"
//   - any other "{key}" is looked up in substitutions
//   - a result that is still relative is prefixed with the namespace
//
// The input is validated before anything is substituted, so a malformed
// name fails with CodeTopicNameInvalid even if it also names an unknown
// substitution. Invalid node names and namespaces fail with
// CodeNodeInvalidName and CodeNodeInvalidNamespace. An unknown key fails
// with CodeUnknownSubstitution whose message contains the "{key}" text.
func ExpandTopicName(input, nodeName, nodeNamespace string, substitutions map[string]string) (string, error) {
	if err := ValidateTopicName(input); err != nil {
		return "", err
	}
	if err := ValidateNodeName(nodeName); err != nil {
		return "", err
	}
	if err := ValidateNamespace(nodeNamespace); err != nil {
		return "", err
	}

	if input[0] == '/' && !strings.ContainsAny(input, "{~") {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input) + len(nodeNamespace) + len(nodeName) + 1)

	pos := 0
	if input[0] == '~' {
		b.WriteString(FullyQualifiedNodeName(nodeNamespace, nodeName))
		pos = 1
	}

	for pos < len(input) {
		open := strings.IndexByte(input[pos:], '{')
		if open < 0 {
			b.WriteString(input[pos:])
			break
		}
		open += pos
		b.WriteString(input[pos:open])

		end := open + strings.IndexByte(input[open:], '}')
		key := input[open+1 : end]

		value, ok := builtinSubstitution(key, nodeName, nodeNamespace)
		if !ok {
			value, ok = substitutions[key]
		}
		if !ok {
			return "", errors.NewAt(errors.CodeUnknownSubstitution, open,
				"unknown substitution: %s", input[open:end+1])
		}
		b.WriteString(value)
		pos = end + 1
		// The root namespace already ends in a separator.
		if value == "/" && pos < len(input) && input[pos] == '/' && isNamespaceKey(key) {
			pos++
		}
	}

	expanded := b.String()
	if expanded == "" || expanded[0] != '/' {
		if nodeNamespace == "/" {
			expanded = "/" + expanded
		} else {
			expanded = nodeNamespace + "/" + expanded
		}
	}
	return expanded, nil
}

func isNamespaceKey(key string) bool {
	return key == "ns" || key == "namespace"
}

func builtinSubstitution(key, nodeName, nodeNamespace string) (string, bool) {
	switch key {
	case "node":
		return nodeName, true
	case "ns", "namespace":
		return nodeNamespace, true
	}
	return "", false
}

// FullyQualifiedNodeName joins a namespace and a node name without
// doubling the separator when the namespace is "/".
func FullyQualifiedNodeName(namespace, nodeName string) string {
	if namespace == "/" || namespace == "" {
		return "/" + nodeName
	}
	return namespace + "/" + nodeName
}

// DefaultSubstitutions returns the substitutions applied when the caller
// supplies none. The built-ins are handled by ExpandTopicName itself.
func DefaultSubstitutions() map[string]string {
	return map[string]string{}
}
