package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Access level constants
const (
	AccessReject = "REJECT"
	AccessAllow  = "ALLOW"
)

// EventRule decides whether a UI event arriving over a transport is accepted
type EventRule struct {
	Transport string `yaml:"transport"` // Pattern: literal string or /regexp/
	Event     string `yaml:"event"`     // Pattern: literal string or /regexp/
	Access    string `yaml:"access"`    // REJECT or ALLOW
}

// PatternMatcher matches strings either exactly or via regexp
type PatternMatcher interface {
	Match(s string) bool
}

// literalMatcher performs exact string matching
type literalMatcher string

func (m literalMatcher) Match(s string) bool {
	return string(m) == s
}

// regexpMatcher performs regex matching
type regexpMatcher struct {
	re *regexp.Regexp
}

func (m *regexpMatcher) Match(s string) bool {
	return m.re.MatchString(s)
}

// parsePattern returns a matcher for literal strings or /regexp/ patterns.
// Regexp patterns are auto-anchored to match the full string.
func parsePattern(pattern string) (PatternMatcher, error) {
	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		regexStr := "^(?:" + pattern[1:len(pattern)-1] + ")$"
		re, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, err
		}
		return &regexpMatcher{re: re}, nil
	}
	return literalMatcher(pattern), nil
}

type compiledRule struct {
	transport PatternMatcher
	event     PatternMatcher
	access    string
}

// EventValidator checks UI events against the configured rules.
// Rules are evaluated top to bottom; the first match wins and an event
// matching no rule is rejected.
type EventValidator struct {
	rules []compiledRule
}

// NewEventValidator compiles rules into an EventValidator
func NewEventValidator(rules []EventRule) (*EventValidator, error) {
	v := &EventValidator{rules: make([]compiledRule, 0, len(rules))}

	for i, rule := range rules {
		var err error
		compiled := compiledRule{access: rule.Access}

		compiled.transport, err = parsePattern(rule.Transport)
		if err != nil {
			return nil, fmt.Errorf("invalid transport pattern in rule %d: %w", i, err)
		}
		compiled.event, err = parsePattern(rule.Event)
		if err != nil {
			return nil, fmt.Errorf("invalid event pattern in rule %d: %w", i, err)
		}

		switch rule.Access {
		case AccessReject, AccessAllow:
		default:
			return nil, fmt.Errorf("invalid access level in rule %d: %q", i, rule.Access)
		}

		v.rules = append(v.rules, compiled)
	}

	return v, nil
}

// Check returns nil if event is accepted from transport.
// A nil validator accepts everything.
func (v *EventValidator) Check(transport, event string) error {
	if v == nil {
		return nil
	}
	for _, rule := range v.rules {
		if rule.transport.Match(transport) && rule.event.Match(event) {
			if rule.access == AccessAllow {
				return nil
			}
			break
		}
	}
	return fmt.Errorf("event %q rejected for transport %q", event, transport)
}
