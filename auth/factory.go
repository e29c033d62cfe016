package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// AuthenticatorFactory creates an authenticator from configuration.
type AuthenticatorFactory func(cfg map[string]any) (Authenticator, error)

// AuthorizerFactory creates an authorizer from configuration.
type AuthorizerFactory func(cfg map[string]any) (Authorizer, error)

// ExtractorFactory creates a credential extractor from configuration.
type ExtractorFactory func(cfg map[string]any) (CredentialExtractor, error)

// Registry manages authenticator, authorizer and extractor factories.
type Registry struct {
	mu             sync.RWMutex
	authenticators map[string]AuthenticatorFactory
	authorizers    map[string]AuthorizerFactory
	extractors     map[string]ExtractorFactory
}

// NewRegistry creates a new auth registry.
func NewRegistry() *Registry {
	return &Registry{
		authenticators: make(map[string]AuthenticatorFactory),
		authorizers:    make(map[string]AuthorizerFactory),
		extractors:     make(map[string]ExtractorFactory),
	}
}

// RegisterAuthenticator adds an authenticator factory.
func (r *Registry) RegisterAuthenticator(name string, factory AuthenticatorFactory) error {
	if name == "" || factory == nil {
		return errors.New("invalid authenticator registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.authenticators[name]; exists {
		return fmt.Errorf("authenticator %q already registered", name)
	}

	r.authenticators[name] = factory
	return nil
}

// RegisterAuthorizer adds an authorizer factory.
func (r *Registry) RegisterAuthorizer(name string, factory AuthorizerFactory) error {
	if name == "" || factory == nil {
		return errors.New("invalid authorizer registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.authorizers[name]; exists {
		return fmt.Errorf("authorizer %q already registered", name)
	}

	r.authorizers[name] = factory
	return nil
}

// RegisterExtractor adds a credential extractor factory.
func (r *Registry) RegisterExtractor(name string, factory ExtractorFactory) error {
	if name == "" || factory == nil {
		return errors.New("invalid extractor registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extractors[name]; exists {
		return fmt.Errorf("extractor %q already registered", name)
	}

	r.extractors[name] = factory
	return nil
}

// CreateAuthenticator instantiates an authenticator by name.
func (r *Registry) CreateAuthenticator(name string, cfg map[string]any) (Authenticator, error) {
	r.mu.RLock()
	factory, ok := r.authenticators[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("authenticator %q not found", name)
	}

	return factory(cfg)
}

// CreateAuthorizer instantiates an authorizer by name.
func (r *Registry) CreateAuthorizer(name string, cfg map[string]any) (Authorizer, error) {
	r.mu.RLock()
	factory, ok := r.authorizers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("authorizer %q not found", name)
	}

	return factory(cfg)
}

// CreateExtractor instantiates a credential extractor by name.
func (r *Registry) CreateExtractor(name string, cfg map[string]any) (CredentialExtractor, error) {
	r.mu.RLock()
	factory, ok := r.extractors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("extractor %q not found", name)
	}

	return factory(cfg)
}

// ListAuthenticators returns registered authenticator names.
func (r *Registry) ListAuthenticators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.authenticators)
}

// ListAuthorizers returns registered authorizer names.
func (r *Registry) ListAuthorizers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.authorizers)
}

// ListExtractors returns registered extractor names.
func (r *Registry) ListExtractors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.extractors)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global auth registry with built-in factories.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.RegisterExtractor("basic", func(map[string]any) (CredentialExtractor, error) {
		return BasicExtractor{}, nil
	})
	_ = DefaultRegistry.RegisterExtractor("bearer", func(map[string]any) (CredentialExtractor, error) {
		return BearerExtractor{}, nil
	})

	// Stub authenticator: fixed identity, no verification
	_ = DefaultRegistry.RegisterAuthenticator("static", func(cfg map[string]any) (Authenticator, error) {
		a := &StaticAuthenticator{Principal: "user"}
		if principal, ok := cfg["principal"].(string); ok {
			a.Principal = principal
		}
		if use, ok := cfg["use_principal"].(bool); ok {
			a.UsePrincipal = use
		}
		a.Roles = stringSlice(cfg["roles"])
		return a, nil
	})

	// Credential store authenticator
	_ = DefaultRegistry.RegisterAuthenticator("user_store", func(cfg map[string]any) (Authenticator, error) {
		if store, ok := cfg["store"].(UserStore); ok {
			return NewUserStoreAuthenticator(NewCoalescingUserStore(store)), nil
		}

		store := NewMemoryUserStore()
		users, _ := cfg["users"].([]any)
		for _, u := range users {
			um, ok := u.(map[string]any)
			if !ok {
				continue
			}
			user := &UserDetails{}
			user.Username, _ = um["username"].(string)
			user.PasswordHash, _ = um["password_hash"].(string)
			user.TenantID, _ = um["tenant_id"].(string)
			user.Disabled, _ = um["disabled"].(bool)
			user.Locked, _ = um["locked"].(bool)
			user.Roles = stringSlice(um["roles"])
			if password, ok := um["password"].(string); ok && user.PasswordHash == "" {
				hash, err := HashPassword(password)
				if err != nil {
					return nil, err
				}
				user.PasswordHash = hash
			}
			if err := store.Add(user); err != nil {
				return nil, err
			}
		}
		return NewUserStoreAuthenticator(store), nil
	})

	// JWT bearer authenticator
	_ = DefaultRegistry.RegisterAuthenticator("jwt", func(cfg map[string]any) (Authenticator, error) {
		config := JWTConfig{}

		config.Issuer, _ = cfg["issuer"].(string)
		config.Audience, _ = cfg["audience"].(string)
		config.PrincipalClaim, _ = cfg["principal_claim"].(string)
		config.TenantClaim, _ = cfg["tenant_claim"].(string)
		config.RolesClaim, _ = cfg["roles_claim"].(string)
		if leeway, ok := cfg["leeway"].(string); ok {
			d, err := time.ParseDuration(leeway)
			if err != nil {
				return nil, fmt.Errorf("jwt leeway: %w", err)
			}
			config.Leeway = d
		}

		secret, _ := cfg["secret"].(string)
		if secret == "" {
			return nil, errors.New("jwt: secret is required")
		}

		return NewJWTAuthenticator(config, NewStaticKeyProvider([]byte(secret))), nil
	})

	_ = DefaultRegistry.RegisterAuthorizer("authenticated", func(map[string]any) (Authorizer, error) {
		return AuthenticatedAuthorizer{}, nil
	})
	_ = DefaultRegistry.RegisterAuthorizer("permit_all", func(map[string]any) (Authorizer, error) {
		return PermitAllAuthorizer{}, nil
	})
	_ = DefaultRegistry.RegisterAuthorizer("deny_all", func(map[string]any) (Authorizer, error) {
		return DenyAllAuthorizer{}, nil
	})
	_ = DefaultRegistry.RegisterAuthorizer("has_any_role", func(cfg map[string]any) (Authorizer, error) {
		roles := stringSlice(cfg["roles"])
		if len(roles) == 0 {
			return nil, errors.New("has_any_role: roles are required")
		}
		return HasAnyRole(roles...), nil
	})

	_ = DefaultRegistry.RegisterAuthorizer("rbac", func(cfg map[string]any) (Authorizer, error) {
		config := RBACConfig{
			Roles: make(map[string]RoleConfig),
		}

		config.DefaultRole, _ = cfg["default_role"].(string)
		config.AnonymousRole, _ = cfg["anonymous_role"].(string)

		if roles, ok := cfg["roles"].(map[string]any); ok {
			for roleName, roleData := range roles {
				roleConfig := RoleConfig{}
				if rd, ok := roleData.(map[string]any); ok {
					roleConfig.Permissions = stringSlice(rd["permissions"])
					roleConfig.Inherits = stringSlice(rd["inherits"])
					roleConfig.AllowedPaths = stringSlice(rd["allowed_paths"])
					roleConfig.DeniedPaths = stringSlice(rd["denied_paths"])
					roleConfig.AllowedMethods = stringSlice(rd["allowed_methods"])
				}
				config.Roles[roleName] = roleConfig
			}
		}

		return NewRBACAuthorizer(config), nil
	})
}

// stringSlice converts a decoded []any (or []string) into []string,
// dropping non-string elements.
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return append([]string(nil), vals...)
	case []any:
		out := make([]string, 0, len(vals))
		for _, e := range vals {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
