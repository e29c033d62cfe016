package filter

import "slices"

// Chain is a matcher plus an ordered, immutable list of filters.
// A Chain is safe for concurrent use once constructed.
type Chain struct {
	name    string
	matcher Matcher
	filters []Filter
}

// NewChain creates a chain. A nil matcher matches every request.
// The filters slice is copied.
func NewChain(matcher Matcher, filters ...Filter) *Chain {
	if matcher == nil {
		matcher = AnyRequest()
	}
	return &Chain{
		name:    "default",
		matcher: matcher,
		filters: slices.Clone(filters),
	}
}

// WithName returns a copy of the chain with the given name, used in logs
// and telemetry.
func (c *Chain) WithName(name string) *Chain {
	cp := *c
	cp.name = name
	return &cp
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Matcher returns the chain's request matcher.
func (c *Chain) Matcher() Matcher { return c.matcher }

// Filters returns a copy of the chain's filters.
func (c *Chain) Filters() []Filter { return slices.Clone(c.filters) }

// Process runs ex through the filters and then terminal. Before each
// stage the request context is checked; a cancelled request stops with
// the context error and nothing further runs.
func (c *Chain) Process(ex *Exchange, terminal Next) error {
	return c.stage(0, terminal)(ex)
}

func (c *Chain) stage(i int, terminal Next) Next {
	return func(ex *Exchange) error {
		if err := ex.Context().Err(); err != nil {
			return err
		}
		if i == len(c.filters) {
			return terminal(ex)
		}
		return c.filters[i].Filter(ex, c.stage(i+1, terminal))
	}
}
