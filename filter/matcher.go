package filter

import (
	"net/http"
	"slices"
	"strings"

	"github.com/jonwraymond/webguard/auth"
)

// Matcher decides whether a chain applies to a request.
type Matcher interface {
	Matches(r *http.Request) bool
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(r *http.Request) bool

// Matches calls f.
func (f MatcherFunc) Matches(r *http.Request) bool { return f(r) }

// AnyRequest matches every request.
func AnyRequest() Matcher {
	return MatcherFunc(func(*http.Request) bool { return true })
}

// NoRequest matches nothing.
func NoRequest() Matcher {
	return MatcherFunc(func(*http.Request) bool { return false })
}

// PathPrefix matches paths equal to prefix or below it on a segment boundary.
func PathPrefix(prefix string) Matcher {
	prefix = strings.TrimSuffix(prefix, "/")
	return MatcherFunc(func(r *http.Request) bool {
		p := r.URL.Path
		if prefix == "" {
			return true
		}
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	})
}

// PathPattern matches the path against an ant-style pattern: "/**"
// suffixes match a subtree, other segments use path.Match globs.
func PathPattern(pattern string) Matcher {
	return MatcherFunc(func(r *http.Request) bool {
		return auth.MatchPath(pattern, r.URL.Path)
	})
}

// Methods matches requests whose method is one of methods.
func Methods(methods ...string) Matcher {
	upper := make([]string, len(methods))
	for i, m := range methods {
		upper[i] = strings.ToUpper(m)
	}
	return MatcherFunc(func(r *http.Request) bool {
		return slices.Contains(upper, r.Method)
	})
}

// And matches when every matcher matches. And() matches everything.
func And(matchers ...Matcher) Matcher {
	return MatcherFunc(func(r *http.Request) bool {
		for _, m := range matchers {
			if !m.Matches(r) {
				return false
			}
		}
		return true
	})
}

// Or matches when any matcher matches. Or() matches nothing.
func Or(matchers ...Matcher) Matcher {
	return MatcherFunc(func(r *http.Request) bool {
		for _, m := range matchers {
			if m.Matches(r) {
				return true
			}
		}
		return false
	})
}

// Not inverts m.
func Not(m Matcher) Matcher {
	return MatcherFunc(func(r *http.Request) bool { return !m.Matches(r) })
}
