package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *MemoryUserStore {
	t.Helper()
	store := NewMemoryUserStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	users := []*UserDetails{
		{Username: "user", PasswordHash: string(hash), TenantID: "acme", Roles: []string{"ROLE_USER"}},
		{Username: "disabled", PasswordHash: string(hash), Disabled: true},
		{Username: "locked", PasswordHash: string(hash), Locked: true},
	}
	for _, u := range users {
		if err := store.Add(u); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	return store
}

func TestUserStoreAuthenticator_Authenticate(t *testing.T) {
	auth := NewUserStoreAuthenticator(newTestStore(t))

	if auth.Name() != "user_store" {
		t.Errorf("Name() = %v, want user_store", auth.Name())
	}

	tests := []struct {
		name     string
		creds    *Credentials
		wantAuth bool
		wantErr  error
	}{
		{name: "valid", creds: &Credentials{Scheme: SchemeBasic, Principal: "user", Secret: "password"}, wantAuth: true},
		{name: "wrong password", creds: &Credentials{Scheme: SchemeBasic, Principal: "user", Secret: "nope"}, wantErr: ErrInvalidCredentials},
		{name: "unknown user", creds: &Credentials{Scheme: SchemeBasic, Principal: "ghost", Secret: "password"}, wantErr: ErrInvalidCredentials},
		{name: "disabled", creds: &Credentials{Scheme: SchemeBasic, Principal: "disabled", Secret: "password"}, wantErr: ErrAccountDisabled},
		{name: "locked", creds: &Credentials{Scheme: SchemeBasic, Principal: "locked", Secret: "password"}, wantErr: ErrAccountLocked},
		{name: "disabled with wrong password", creds: &Credentials{Scheme: SchemeBasic, Principal: "disabled", Secret: "nope"}, wantErr: ErrInvalidCredentials},
		{name: "empty principal", creds: &Credentials{Scheme: SchemeBasic, Secret: "password"}, wantErr: ErrMissingCredentials},
		{name: "nil credentials", creds: nil, wantErr: ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := auth.Authenticate(context.Background(), tt.creds)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Authenticated != tt.wantAuth {
				t.Fatalf("Authenticated = %v, want %v (err %v)", result.Authenticated, tt.wantAuth, result.Error)
			}
			if tt.wantErr != nil && !errors.Is(result.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", result.Error, tt.wantErr)
			}
			if tt.wantAuth {
				id := result.Identity
				if id.Principal != "user" || id.TenantID != "acme" || !id.HasRole("ROLE_USER") {
					t.Errorf("Identity = %+v", id)
				}
				if id.Method != AuthMethodBasic {
					t.Errorf("Method = %v, want basic", id.Method)
				}
			}
		})
	}
}

type errUserStore struct{ err error }

func (s errUserStore) FindByUsername(context.Context, string) (*UserDetails, error) {
	return nil, s.err
}

func TestUserStoreAuthenticator_StoreError(t *testing.T) {
	down := errors.New("connection refused")
	auth := NewUserStoreAuthenticator(errUserStore{err: down})

	result, err := auth.Authenticate(context.Background(), &Credentials{Principal: "user", Secret: "password"})
	if !errors.Is(err, down) {
		t.Errorf("Authenticate() error = %v, want wrapped store error", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on internal error", result)
	}
}

func TestMemoryUserStore(t *testing.T) {
	store := NewMemoryUserStore()

	if err := store.Add(&UserDetails{}); err == nil {
		t.Error("Add() without username should fail")
	}
	if err := store.AddUser("user", "password", "ROLE_USER"); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}

	got, err := store.FindByUsername(context.Background(), "user")
	if err != nil || got == nil {
		t.Fatalf("FindByUsername() = %v, %v", got, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("password")) != nil {
		t.Error("AddUser() should store a bcrypt hash of the password")
	}

	// Mutating the returned copy must not affect the store.
	got.Roles[0] = "ROLE_ADMIN"
	again, _ := store.FindByUsername(context.Background(), "user")
	if again.Roles[0] != "ROLE_USER" {
		t.Error("FindByUsername() returned shared role slice")
	}

	missing, err := store.FindByUsername(context.Background(), "ghost")
	if missing != nil || err != nil {
		t.Errorf("FindByUsername(ghost) = %v, %v, want nil, nil", missing, err)
	}

	store.Remove("user")
	if store.Len() != 0 {
		t.Errorf("Len() after Remove = %d, want 0", store.Len())
	}
}

type slowUserStore struct {
	calls   atomic.Int32
	release chan struct{}
	user    *UserDetails
}

func (s *slowUserStore) FindByUsername(context.Context, string) (*UserDetails, error) {
	s.calls.Add(1)
	<-s.release
	return s.user, nil
}

func TestCoalescingUserStore_SharesInFlightLookups(t *testing.T) {
	slow := &slowUserStore{
		release: make(chan struct{}),
		user:    &UserDetails{Username: "user", Roles: []string{"ROLE_USER"}},
	}
	store := NewCoalescingUserStore(slow)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*UserDetails, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = store.FindByUsername(context.Background(), "user")
		}(i)
	}

	// Give the callers time to join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)
	close(slow.release)
	wg.Wait()

	if n := slow.calls.Load(); n >= callers {
		t.Errorf("backing store called %d times, want coalesced lookups", n)
	}
	for i, u := range results {
		if u == nil || u.Username != "user" {
			t.Fatalf("caller %d got %v", i, u)
		}
	}
	results[0].Roles[0] = "ROLE_ADMIN"
	if results[1].Roles[0] != "ROLE_USER" {
		t.Error("coalesced callers must receive independent copies")
	}
}

func TestCoalescingUserStore_CallerCancellation(t *testing.T) {
	slow := &slowUserStore{release: make(chan struct{}), user: &UserDetails{Username: "user"}}
	defer close(slow.release)
	store := NewCoalescingUserStore(slow)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := store.FindByUsername(ctx, "user")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FindByUsername() error = %v, want deadline exceeded", err)
	}
}

func TestCoalescingUserStore_NotFound(t *testing.T) {
	store := NewCoalescingUserStore(NewMemoryUserStore())
	got, err := store.FindByUsername(context.Background(), "ghost")
	if got != nil || err != nil {
		t.Errorf("FindByUsername() = %v, %v, want nil, nil", got, err)
	}
}
