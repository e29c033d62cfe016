package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

// UserDetails is an account record held by a UserStore.
type UserDetails struct {
	// Username is the login name.
	Username string

	// PasswordHash is the bcrypt hash of the password.
	PasswordHash string

	// TenantID is the tenant this account belongs to.
	TenantID string

	// Roles are the authorities granted to the account.
	Roles []string

	// Disabled accounts cannot authenticate.
	Disabled bool

	// Locked accounts cannot authenticate.
	Locked bool
}

// UserStore provides storage for user accounts.
type UserStore interface {
	// FindByUsername retrieves an account. Returns (nil, nil) if not found.
	FindByUsername(ctx context.Context, username string) (*UserDetails, error)
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// UserStoreAuthenticator verifies username/password credentials against a UserStore.
type UserStoreAuthenticator struct {
	store     UserStore
	dummyHash []byte
}

// NewUserStoreAuthenticator creates an authenticator backed by store.
func NewUserStoreAuthenticator(store UserStore) *UserStoreAuthenticator {
	// Compared against when the user does not exist so that unknown and
	// known usernames take the same time.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("webguard-dummy-password"), bcrypt.DefaultCost)
	return &UserStoreAuthenticator{store: store, dummyHash: dummy}
}

// Name returns "user_store".
func (a *UserStoreAuthenticator) Name() string {
	return "user_store"
}

// Authenticate looks up the user and compares the password hash.
func (a *UserStoreAuthenticator) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	method := string(AuthMethodBasic)
	if creds == nil || creds.Principal == "" {
		return AuthFailure(ErrMissingCredentials, method), nil
	}

	user, err := a.store.FindByUsername(ctx, creds.Principal)
	if err != nil {
		return nil, fmt.Errorf("user store lookup: %w", err)
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(creds.Secret))
		return AuthFailure(ErrInvalidCredentials, method), nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Secret)); err != nil {
		return AuthFailure(ErrInvalidCredentials, method), nil
	}

	if user.Disabled {
		return AuthFailure(ErrAccountDisabled, method), nil
	}
	if user.Locked {
		return AuthFailure(ErrAccountLocked, method), nil
	}

	return AuthSuccess(&Identity{
		Principal: user.Username,
		TenantID:  user.TenantID,
		Roles:     append([]string(nil), user.Roles...),
		Method:    AuthMethodBasic,
		Claims:    make(map[string]any),
	}), nil
}

// MemoryUserStore is an in-memory user store.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*UserDetails
}

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*UserDetails),
	}
}

// FindByUsername retrieves a copy of the account.
func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*UserDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	cp := *user
	cp.Roles = append([]string(nil), user.Roles...)
	return &cp, nil
}

// Add adds or replaces an account.
func (s *MemoryUserStore) Add(user *UserDetails) error {
	if user == nil || user.Username == "" {
		return errors.New("user store: username is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

// AddUser hashes password and stores the account.
func (s *MemoryUserStore) AddUser(username, password string, roles ...string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.Add(&UserDetails{Username: username, PasswordHash: hash, Roles: roles})
}

// Remove removes an account.
func (s *MemoryUserStore) Remove(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

// Len returns the number of accounts.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// CoalescingUserStore collapses concurrent lookups of the same username
// into a single call to the wrapped store.
type CoalescingUserStore struct {
	next  UserStore
	group singleflight.Group
}

// NewCoalescingUserStore wraps next.
func NewCoalescingUserStore(next UserStore) *CoalescingUserStore {
	return &CoalescingUserStore{next: next}
}

// FindByUsername delegates to the wrapped store, sharing in-flight results.
func (s *CoalescingUserStore) FindByUsername(ctx context.Context, username string) (*UserDetails, error) {
	// The shared lookup outlives any single caller; callers stop waiting on
	// their own cancellation.
	ch := s.group.DoChan(username, func() (any, error) {
		return s.next.FindByUsername(context.WithoutCancel(ctx), username)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	user, _ := res.Val.(*UserDetails)
	if user == nil {
		return nil, nil
	}
	cp := *user
	cp.Roles = append([]string(nil), user.Roles...)
	return &cp, nil
}

var (
	_ Authenticator = (*UserStoreAuthenticator)(nil)
	_ UserStore     = (*MemoryUserStore)(nil)
	_ UserStore     = (*CoalescingUserStore)(nil)
)
