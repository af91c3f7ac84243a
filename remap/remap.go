package remap

import (
	"github.com/c360/semrcl/names"
)

// firstMatch returns the first rule of the given kind that applies to the
// node and, for topic and service rules, whose expanded match equals name.
func firstMatch(rules []Rule, kind RuleType, name, nodeName, namespace string, subs map[string]string) (*Rule, error) {
	for i := range rules {
		rule := &rules[i]
		if rule.Type&kind == 0 || !rule.AppliesTo(nodeName) {
			continue
		}
		if kind&TypeTopicOrService != 0 {
			match, err := names.ExpandTopicName(rule.Match, nodeName, namespace, subs)
			if err != nil {
				return nil, err
			}
			if match != name {
				continue
			}
		}
		return rule, nil
	}
	return nil, nil
}

func remapName(local, global *Arguments, kind RuleType, name, nodeName, namespace string, subs map[string]string) (*Rule, error) {
	if local != nil {
		rule, err := firstMatch(local.Rules, kind, name, nodeName, namespace, subs)
		if err != nil || rule != nil {
			return rule, err
		}
	}
	if global != nil {
		return firstMatch(global.Rules, kind, name, nodeName, namespace, subs)
	}
	return nil, nil
}

func remapTopicOrService(local, global *Arguments, kind RuleType, name, nodeName, namespace string, subs map[string]string) (string, bool, error) {
	rule, err := remapName(local, global, kind, name, nodeName, namespace, subs)
	if err != nil || rule == nil {
		return "", false, err
	}
	remapped, err := names.ExpandTopicName(rule.Replacement, nodeName, namespace, subs)
	if err != nil {
		return "", false, err
	}
	return remapped, true, nil
}

// TopicName applies the first matching topic rule to the fully qualified
// name. Local rules are consulted before global ones; either set may be
// nil. The boolean result is false when no rule matched.
func TopicName(local, global *Arguments, name, nodeName, namespace string, subs map[string]string) (string, bool, error) {
	return remapTopicOrService(local, global, TypeTopic, name, nodeName, namespace, subs)
}

// ServiceName is TopicName for service rules.
func ServiceName(local, global *Arguments, name, nodeName, namespace string, subs map[string]string) (string, bool, error) {
	return remapTopicOrService(local, global, TypeService, name, nodeName, namespace, subs)
}

// NodeName returns the replacement node name for nodeName, if any rule
// renames it.
func NodeName(local, global *Arguments, nodeName string) (string, bool) {
	rule, _ := remapName(local, global, TypeNodeName, "", nodeName, "/", nil)
	if rule == nil {
		return "", false
	}
	return rule.Replacement, true
}

// NodeNamespace returns the replacement namespace for nodeName, if any
// rule moves it.
func NodeNamespace(local, global *Arguments, nodeName string) (string, bool) {
	rule, _ := remapName(local, global, TypeNamespace, "", nodeName, "/", nil)
	if rule == nil {
		return "", false
	}
	return rule.Replacement, true
}
