package auth

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim).
	Issuer string

	// Audience is the expected token audience (aud claim).
	Audience string

	// PrincipalClaim is the claim containing the user principal.
	// Default: "sub"
	PrincipalClaim string

	// TenantClaim is the claim containing the tenant ID.
	TenantClaim string

	// RolesClaim is the claim containing user roles.
	// Default: "roles"
	RolesClaim string

	// Leeway tolerates clock skew when checking exp/nbf/iat.
	Leeway time.Duration
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static HMAC signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if len(p.key) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTAuthenticator validates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	config      JWTConfig
	keyProvider KeyProvider
	parser      *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{
		config:      config,
		keyProvider: keyProvider,
		parser:      jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Authenticate validates the bearer token carried in creds.Secret.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	method := string(AuthMethodBearer)
	if creds == nil || creds.Secret == "" {
		return AuthFailure(ErrMissingCredentials, method), nil
	}
	if creds.Scheme != "" && creds.Scheme != SchemeBearer {
		return AuthFailure(ErrUnsupportedScheme, method), nil
	}

	var keyErr error
	token, err := a.parser.Parse(creds.Secret, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		key, err := a.keyProvider.GetKey(ctx, kid)
		if err != nil {
			keyErr = err
		}
		return key, err
	})

	switch {
	case keyErr != nil && !errors.Is(keyErr, ErrKeyNotFound):
		// Key lookup outages are internal errors, not bad credentials.
		return nil, keyErr
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(ErrTokenExpired, method), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return AuthFailure(ErrTokenMalformed, method), nil
	case err != nil || !token.Valid:
		return AuthFailure(ErrInvalidCredentials, method), nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AuthFailure(ErrTokenMalformed, method), nil
	}

	identity := a.buildIdentity(claims)
	if identity.Principal == "" {
		return AuthFailure(ErrInvalidCredentials, method), nil
	}
	return AuthSuccess(identity), nil
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{
		Method: AuthMethodBearer,
		Claims: make(map[string]any, len(claims)),
	}

	for k, v := range claims {
		identity.Claims[k] = v
	}

	if principal, ok := claims[a.config.PrincipalClaim].(string); ok {
		identity.Principal = principal
	}

	if a.config.TenantClaim != "" {
		if tenant, ok := claims[a.config.TenantClaim].(string); ok {
			identity.TenantID = tenant
		}
	}

	switch roles := claims[a.config.RolesClaim].(type) {
	case []any:
		identity.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok && !slices.Contains(identity.Roles, s) {
				identity.Roles = append(identity.Roles, s)
			}
		}
	case string:
		identity.Roles = []string{roles}
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		// ExpiresAt includes the leeway.
		identity.ExpiresAt = exp.Add(a.config.Leeway)
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}

	return identity
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
