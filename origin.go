// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import "regexp"

// WildcardOrigin is the literal "*", matching any origin. When the
// wildcard is among the allowed origins and the peer's learned concrete
// origin is the literal "null" (a sandboxed origin), outbound messages
// are targeted at "*" rather than failing.
const WildcardOrigin = "*"

// NullOrigin is the origin string browsers report for a sandboxed frame.
const NullOrigin = "null"

// OriginMatcher tests whether an inbound event's origin is allowed.
//
// Construct one with [NewExactOrigin] or [NewRegexpOrigin], or use the
// [WildcardOrigin] string directly in a [Config.AllowedOrigins] list built
// with [ParseOrigins].
type OriginMatcher interface {
	Match(origin string) bool

	// IsWildcard reports whether this matcher is the literal wildcard.
	IsWildcard() bool
}

// NewExactOrigin returns an [OriginMatcher] requiring an exact string match,
// except that the literal [WildcardOrigin] yields the wildcard matcher.
func NewExactOrigin(origin string) OriginMatcher {
	if origin == WildcardOrigin {
		return wildcardMatcher{}
	}
	return exactMatcher(origin)
}

// NewRegexpOrigin returns an [OriginMatcher] backed by a compiled regexp.
func NewRegexpOrigin(re *regexp.Regexp) OriginMatcher {
	return regexpMatcher{re}
}

type exactMatcher string

func (m exactMatcher) Match(origin string) bool { return string(m) == origin }
func (exactMatcher) IsWildcard() bool           { return false }

type regexpMatcher struct{ re *regexp.Regexp }

func (m regexpMatcher) Match(origin string) bool { return m.re.MatchString(origin) }
func (regexpMatcher) IsWildcard() bool           { return false }

type wildcardMatcher struct{}

func (wildcardMatcher) Match(string) bool { return true }
func (wildcardMatcher) IsWildcard() bool  { return true }

// ParseOrigins builds an [OriginMatcher] list from plain strings, treating
// "*" as [WildcardOrigin] and every other entry as an exact match. Use
// [NewRegexpOrigin] directly when a pattern is needed.
func ParseOrigins(origins ...string) []OriginMatcher {
	matchers := make([]OriginMatcher, 0, len(origins))
	for _, origin := range origins {
		matchers = append(matchers, NewExactOrigin(origin))
	}
	return matchers
}

// originAllowed reports whether origin matches any of matchers, and whether
// the wildcard is among them (needed for the null-origin outbound policy).
func originAllowed(matchers []OriginMatcher, origin string) (allowed, hasWildcard bool) {
	for _, m := range matchers {
		if m.IsWildcard() {
			hasWildcard = true
			allowed = true
			continue
		}
		if m.Match(origin) {
			allowed = true
		}
	}
	return allowed, hasWildcard
}
