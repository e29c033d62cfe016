package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthzError_Error(t *testing.T) {
	err := &AuthzError{
		Subject:  "user",
		Resource: "/reports",
		Action:   "GET",
		Reason:   "permission denied",
	}

	expected := `authorization denied: subject="user" resource="/reports" action="GET" reason="permission denied"`
	if got := err.Error(); got != expected {
		t.Errorf("AuthzError.Error() = %v, want %v", got, expected)
	}
}

func TestAuthzError_Is(t *testing.T) {
	var err error = &AuthzError{Subject: "user", Reason: "denied"}

	if !errors.Is(err, ErrForbidden) {
		t.Error("errors.Is(AuthzError, ErrForbidden) = false, want true")
	}
	if !IsDenied(err) {
		t.Error("IsDenied() = false, want true")
	}
	if IsDenied(ErrInvalidCredentials) {
		t.Error("IsDenied(ErrInvalidCredentials) = true, want false")
	}
}

func TestAuthzError_Unwrap(t *testing.T) {
	cause := errors.New("policy store unavailable")
	err := &AuthzError{Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestDecision(t *testing.T) {
	if DecisionOf(nil) != Allow {
		t.Error("DecisionOf(nil) should be Allow")
	}
	if DecisionOf(&AuthzError{}) != Deny {
		t.Error("DecisionOf(AuthzError) should be Deny")
	}
	if Allow.String() != "allow" || Deny.String() != "deny" {
		t.Errorf("String() = %q/%q", Allow.String(), Deny.String())
	}
}

func TestAuthenticatedAuthorizer(t *testing.T) {
	tests := []struct {
		name    string
		subject *Identity
		wantErr bool
	}{
		{name: "nil subject", subject: nil, wantErr: true},
		{name: "anonymous", subject: AnonymousIdentity(), wantErr: true},
		{name: "empty principal", subject: &Identity{Method: AuthMethodBasic}, wantErr: true},
		{name: "authenticated without roles", subject: &Identity{Principal: "user", Method: AuthMethodBasic}},
		{name: "authenticated with roles", subject: &Identity{Principal: "user", Roles: []string{"ROLE_USER"}}},
		{
			name:    "expired",
			subject: &Identity{Principal: "user", ExpiresAt: time.Now().Add(-time.Minute)},
			wantErr: true,
		},
	}

	a := AuthenticatedAuthorizer{}
	if a.Name() != "authenticated" {
		t.Errorf("Name() = %v, want authenticated", a.Name())
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(context.Background(), &AuthzRequest{Subject: tt.subject, Resource: "/", Action: "GET"})
			if (err != nil) != tt.wantErr {
				t.Errorf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrForbidden) {
				t.Errorf("Authorize() error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestPermitAllAuthorizer(t *testing.T) {
	a := PermitAllAuthorizer{}

	if a.Name() != "permit_all" {
		t.Errorf("Name() = %v, want permit_all", a.Name())
	}

	if err := a.Authorize(context.Background(), &AuthzRequest{Resource: "/"}); err != nil {
		t.Errorf("PermitAllAuthorizer.Authorize() error = %v", err)
	}
}

func TestDenyAllAuthorizer(t *testing.T) {
	a := DenyAllAuthorizer{}

	if a.Name() != "deny_all" {
		t.Errorf("Name() = %v, want deny_all", a.Name())
	}

	req := &AuthzRequest{
		Subject:  &Identity{Principal: "user"},
		Resource: "/",
		Action:   "GET",
	}

	err := a.Authorize(context.Background(), req)
	if err == nil {
		t.Fatal("DenyAllAuthorizer.Authorize() should return error")
	}

	var authzErr *AuthzError
	if !errors.As(err, &authzErr) {
		t.Fatalf("error should be *AuthzError, got %T", err)
	}
	if authzErr.Subject != "user" {
		t.Errorf("Subject = %v, want user", authzErr.Subject)
	}
}

func TestAnyRoleAuthorizer(t *testing.T) {
	a := HasAnyRole("ROLE_ADMIN", "ROLE_OPS")

	tests := []struct {
		name    string
		subject *Identity
		wantErr bool
	}{
		{name: "anonymous", subject: nil, wantErr: true},
		{name: "missing role", subject: &Identity{Principal: "u", Roles: []string{"ROLE_USER"}}, wantErr: true},
		{name: "first role", subject: &Identity{Principal: "u", Roles: []string{"ROLE_ADMIN"}}},
		{name: "second role", subject: &Identity{Principal: "u", Roles: []string{"ROLE_USER", "ROLE_OPS"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(context.Background(), &AuthzRequest{Subject: tt.subject})
			if (err != nil) != tt.wantErr {
				t.Errorf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizerFunc(t *testing.T) {
	called := false
	a := AuthorizerFunc(func(ctx context.Context, req *AuthzRequest) error {
		called = true
		return nil
	})

	if a.Name() != "func" {
		t.Errorf("Name() = %v, want func", a.Name())
	}

	if err := a.Authorize(context.Background(), &AuthzRequest{}); err != nil {
		t.Errorf("AuthorizerFunc.Authorize() error = %v", err)
	}
	if !called {
		t.Error("AuthorizerFunc should call the underlying function")
	}
}
