package scope

import (
	"regexp"
	"strings"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
)

// NameMatcher decides whether a type or method name matches a pattern.
type NameMatcher interface {
	MatchName(name string) bool
}

// NewNameMatcher builds the matcher for s. The pattern of a MATCHES matcher
// must already have been validated.
func NewNameMatcher(s config.NameMatcherSettings) NameMatcher {
	switch s.MatcherMode {
	case "", config.EqualsFully:
		return exactMatcher(s.Name)
	case config.EqualsFullyIgnoreCase:
		return foldMatcher{pattern: strings.ToLower(s.Name), test: func(n, p string) bool { return n == p }}
	case config.StartsWith:
		return NewPrefixMatcher(s.Name)
	case config.StartsWithIgnoreCase:
		return foldMatcher{pattern: strings.ToLower(s.Name), test: strings.HasPrefix}
	case config.EndsWith:
		return suffixMatcher(s.Name)
	case config.EndsWithIgnoreCase:
		return foldMatcher{pattern: strings.ToLower(s.Name), test: strings.HasSuffix}
	case config.Contains:
		return containsMatcher(s.Name)
	case config.ContainsIgnoreCase:
		return foldMatcher{pattern: strings.ToLower(s.Name), test: strings.Contains}
	case config.Matches:
		return &regexMatcher{re: regexp.MustCompile("^(?:" + s.Name + ")$")}
	}
	panic("scope: unknown matcher mode " + string(s.MatcherMode))
}

type exactMatcher string

func (m exactMatcher) MatchName(name string) bool { return name == string(m) }

type suffixMatcher string

func (m suffixMatcher) MatchName(name string) bool { return strings.HasSuffix(name, string(m)) }

type containsMatcher string

func (m containsMatcher) MatchName(name string) bool { return strings.Contains(name, string(m)) }

type foldMatcher struct {
	test    func(name, pattern string) bool
	pattern string
}

func (m foldMatcher) MatchName(name string) bool {
	return m.test(strings.ToLower(name), m.pattern)
}

// regexMatcher requires the whole name to match.
type regexMatcher struct {
	re *regexp.Regexp
}

func (m *regexMatcher) MatchName(name string) bool {
	return m.re.MatchString(name)
}

// PrefixMatcher matches names starting with any of its prefixes.
type PrefixMatcher struct {
	Prefixes []string
}

// MatchName returns true if name starts with any prefix.
func (m PrefixMatcher) MatchName(name string) bool {
	for _, p := range m.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// NewPrefixMatcher creates a matcher for a set of prefixes.
func NewPrefixMatcher(prefixes ...string) PrefixMatcher {
	return PrefixMatcher{Prefixes: prefixes}
}
