package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver expands environment variables and resolves secret references
// through its providers.
type Resolver struct {
	providers map[string]Provider
	strict    bool
	noEnv     bool
}

// NewResolver creates a resolver. A strict resolver rejects empty secrets.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider under its name.
func (r *Resolver) Register(p Provider) {
	if p != nil {
		r.providers[p.Name()] = p
	}
}

// DisableEnvExpansion makes the resolver leave $VAR references alone, for
// values that were already expanded.
func (r *Resolver) DisableEnvExpansion() {
	r.noEnv = true
}

// Close closes every provider.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ParseSecretRef splits a whole-value reference "secretref:<provider>:<ref>".
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// ResolveValue expands environment variables in value, unless disabled, and then resolves
// secret references, either the whole value or references embedded in it.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded := value
	if !r.noEnv {
		var err error
		if expanded, err = ExpandEnvStrict(value); err != nil {
			return "", err
		}
	}
	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, provider, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveAny resolves every string inside v, descending into maps and
// slices as produced by YAML decoding. Other values are returned as is.
func (r *Resolver) ResolveAny(ctx context.Context, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return r.ResolveValue(ctx, val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := r.ResolveAny(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := r.ResolveAny(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *Resolver) resolve(ctx context.Context, providerName, ref string) (string, error) {
	p, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, providerName)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmpty, providerName, ref)
	}
	return v, nil
}

var inlineRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s@/]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	var resolveErr error
	out := inlineRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		if resolveErr != nil {
			return match
		}
		m := inlineRefPattern.FindStringSubmatch(match)
		v, err := r.resolve(ctx, m[1], m[2])
		if err != nil {
			resolveErr = err
			return match
		}
		return v
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return out, nil
}
