package auth

import (
	"context"
	"errors"
	"fmt"
)

// Authorizer determines if an identity may access a resource.
type Authorizer interface {
	// Authorize checks if the request is permitted.
	// Returns nil if authorized, or an error (typically *AuthzError) if denied.
	Authorize(ctx context.Context, req *AuthzRequest) error
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request. Nil for anonymous requests.
	Subject *Identity

	// Resource is the target resource (the URL path for HTTP requests).
	Resource string

	// Action is the requested action (the HTTP method for HTTP requests).
	Action string
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Deny rejects the request.
	Deny Decision = iota
	// Allow lets the request through.
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// DecisionOf maps the error returned by Authorize to a Decision.
func DecisionOf(err error) Decision {
	if err == nil {
		return Allow
	}
	return Deny
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	// Subject is the identity that was denied.
	Subject string

	// Resource is the resource that was denied access to.
	Resource string

	// Action is the action that was denied.
	Action string

	// Reason explains why access was denied.
	Reason string

	// Cause is the underlying error if any.
	Cause error
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q resource=%q action=%q reason=%q",
		e.Subject, e.Resource, e.Action, e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthzError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// IsDenied reports whether err is an authorization denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func deny(req *AuthzRequest, reason string) *AuthzError {
	subject := ""
	if req.Subject != nil {
		subject = req.Subject.Principal
	}
	return &AuthzError{
		Subject:  subject,
		Resource: req.Resource,
		Action:   req.Action,
		Reason:   reason,
	}
}

// AuthenticatedAuthorizer permits any request made by an authenticated,
// non-anonymous identity, regardless of its roles.
type AuthenticatedAuthorizer struct{}

// Authorize denies nil, anonymous and expired subjects.
func (AuthenticatedAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject.IsAnonymous() {
		return deny(req, "authentication required")
	}
	if req.Subject.IsExpired() {
		return deny(req, "identity expired")
	}
	return nil
}

// Name returns "authenticated".
func (AuthenticatedAuthorizer) Name() string {
	return "authenticated"
}

// PermitAllAuthorizer permits all requests, including anonymous ones.
type PermitAllAuthorizer struct{}

// Authorize always returns nil (permitted).
func (PermitAllAuthorizer) Authorize(_ context.Context, _ *AuthzRequest) error {
	return nil
}

// Name returns "permit_all".
func (PermitAllAuthorizer) Name() string {
	return "permit_all"
}

// DenyAllAuthorizer denies all requests.
type DenyAllAuthorizer struct{}

// Authorize always returns an error (denied).
func (DenyAllAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	return deny(req, "all requests denied")
}

// Name returns "deny_all".
func (DenyAllAuthorizer) Name() string {
	return "deny_all"
}

// AnyRoleAuthorizer permits authenticated identities holding one of Roles.
type AnyRoleAuthorizer struct {
	Roles []string
}

// HasAnyRole creates an AnyRoleAuthorizer.
func HasAnyRole(roles ...string) AnyRoleAuthorizer {
	return AnyRoleAuthorizer{Roles: roles}
}

// Authorize checks the subject's roles.
func (a AnyRoleAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject.IsAnonymous() {
		return deny(req, "authentication required")
	}
	if !req.Subject.HasAnyRole(a.Roles...) {
		return deny(req, fmt.Sprintf("requires one of roles %v", a.Roles))
	}
	return nil
}

// Name returns "has_any_role".
func (AnyRoleAuthorizer) Name() string {
	return "has_any_role"
}

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func" for function-based authorizers.
func (f AuthorizerFunc) Name() string {
	return "func"
}

var (
	_ Authorizer = AuthenticatedAuthorizer{}
	_ Authorizer = PermitAllAuthorizer{}
	_ Authorizer = DenyAllAuthorizer{}
	_ Authorizer = AnyRoleAuthorizer{}
	_ Authorizer = AuthorizerFunc(nil)
)
