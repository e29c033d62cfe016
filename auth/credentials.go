package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/textproto"
	"strings"
)

// Credential schemes understood by the built-in extractors.
const (
	SchemeBasic  = "Basic"
	SchemeBearer = "Bearer"
)

// AuthRequest contains the request information credential extractors and
// authorizers look at.
type AuthRequest struct {
	// Headers contains HTTP headers (Authorization, etc.)
	Headers map[string][]string

	// Method is the HTTP method of the request.
	Method string

	// Path is the URL path of the request.
	Path string

	// RemoteAddr is the network address of the client.
	RemoteAddr string
}

// NewAuthRequest captures the security relevant parts of r.
func NewAuthRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{
		Headers:    r.Header,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
	}
}

// GetHeader returns the first value for a header, or empty string.
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	values, ok := r.Headers[textproto.CanonicalMIMEHeaderKey(key)]
	if !ok {
		values = r.Headers[key]
	}
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Credentials are what a client presented to prove its identity.
// They live for a single request and must never be logged.
type Credentials struct {
	// Scheme is the authentication scheme (SchemeBasic, SchemeBearer).
	Scheme string

	// Principal is the claimed username. Empty for token schemes.
	Principal string

	// Secret is the password or token.
	Secret string
}

// CredentialExtractor pulls credentials out of a request.
//
// Contract:
//   - Returns (nil, nil) when the request carries no credentials it understands.
//   - Returns ErrMalformedCredentials (possibly wrapped) when they are present
//     but cannot be decoded.
type CredentialExtractor interface {
	Extract(ctx context.Context, req *AuthRequest) (*Credentials, error)
}

// ExtractorFunc is an adapter to allow use of ordinary functions as extractors.
type ExtractorFunc func(ctx context.Context, req *AuthRequest) (*Credentials, error)

// Extract calls the function.
func (f ExtractorFunc) Extract(ctx context.Context, req *AuthRequest) (*Credentials, error) {
	return f(ctx, req)
}

// BasicExtractor decodes HTTP Basic credentials from the Authorization header.
type BasicExtractor struct{}

// Name returns "basic".
func (BasicExtractor) Name() string {
	return "basic"
}

// Extract parses "Authorization: Basic base64(username:password)".
func (BasicExtractor) Extract(_ context.Context, req *AuthRequest) (*Credentials, error) {
	value, ok := cutScheme(req.GetHeader("Authorization"), SchemeBasic)
	if !ok {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, ErrMalformedCredentials
	}
	defer clear(decoded)

	user, pass, found := bytes.Cut(decoded, []byte{':'})
	if !found {
		return nil, ErrMalformedCredentials
	}

	return &Credentials{
		Scheme:    SchemeBasic,
		Principal: string(user),
		Secret:    string(pass),
	}, nil
}

// BearerExtractor reads bearer tokens from the Authorization header.
type BearerExtractor struct{}

// Name returns "bearer".
func (BearerExtractor) Name() string {
	return "bearer"
}

// Extract parses "Authorization: Bearer <token>".
func (BearerExtractor) Extract(_ context.Context, req *AuthRequest) (*Credentials, error) {
	value, ok := cutScheme(req.GetHeader("Authorization"), SchemeBearer)
	if !ok {
		return nil, nil
	}
	token := strings.TrimSpace(value)
	if token == "" || strings.ContainsAny(token, " \t") {
		return nil, ErrMalformedCredentials
	}
	return &Credentials{Scheme: SchemeBearer, Secret: token}, nil
}

// FirstExtractor tries extractors in order and returns the first credentials found.
type FirstExtractor []CredentialExtractor

// Extract runs each extractor until one finds credentials or fails.
func (f FirstExtractor) Extract(ctx context.Context, req *AuthRequest) (*Credentials, error) {
	for _, ext := range f {
		creds, err := ext.Extract(ctx, req)
		if err != nil || creds != nil {
			return creds, err
		}
	}
	return nil, nil
}

// cutScheme strips a case-insensitive "<scheme> " prefix from an
// Authorization header value.
func cutScheme(header, scheme string) (string, bool) {
	if len(header) <= len(scheme) || header[len(scheme)] != ' ' {
		return "", false
	}
	if !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	return header[len(scheme)+1:], true
}

var (
	_ CredentialExtractor = BasicExtractor{}
	_ CredentialExtractor = BearerExtractor{}
	_ CredentialExtractor = FirstExtractor(nil)
	_ CredentialExtractor = ExtractorFunc(nil)
)
