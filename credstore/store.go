package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/resilience"
)

// Dialect identifies the database behind a DSN.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DetectDialect returns DialectPostgres for postgres:// and postgresql://
// URLs and DialectSQLite for everything else.
func DetectDialect(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

type userRow struct {
	bun.BaseModel `bun:"table:webguard_users"`

	Username     string    `bun:"username,pk"`
	PasswordHash string    `bun:"password_hash,notnull"`
	TenantID     string    `bun:"tenant_id,notnull"`
	Roles        string    `bun:"roles,notnull"`
	Disabled     bool      `bun:"disabled,notnull"`
	Locked       bool      `bun:"locked,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func rowOf(u *auth.UserDetails) *userRow {
	return &userRow{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		TenantID:     u.TenantID,
		Roles:        strings.Join(u.Roles, ","),
		Disabled:     u.Disabled,
		Locked:       u.Locked,
	}
}

func (r *userRow) details() *auth.UserDetails {
	var roles []string
	if r.Roles != "" {
		roles = strings.Split(r.Roles, ",")
	}
	return &auth.UserDetails{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		TenantID:     r.TenantID,
		Roles:        roles,
		Disabled:     r.Disabled,
		Locked:       r.Locked,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithCircuitBreaker guards FindByUsername with cb.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *Store) { s.breaker = cb }
}

// WithConnectRetry retries the initial ping of Open with r, for databases
// that start alongside the proxy.
func WithConnectRetry(r *resilience.Retry) Option {
	return func(s *Store) { s.connect = r }
}

// Store is a SQL-backed auth.UserStore. It is safe for concurrent use.
type Store struct {
	db      *bun.DB
	dialect Dialect
	breaker *resilience.CircuitBreaker
	connect *resilience.Retry
	now     func() time.Time
}

// Open connects to the database named by dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	dialect := DetectDialect(dsn)

	var db *bun.DB
	switch dialect {
	case DialectPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One connection: SQLite has a single writer and every
		// :memory: connection is a separate database.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	s := &Store{db: db, dialect: dialect, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	ping := s.db.PingContext
	if s.connect != nil {
		ping = func(ctx context.Context) error { return s.connect.Execute(ctx, s.db.PingContext) }
	}
	if err := ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return s, nil
}

// Dialect returns the database dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// EnsureSchema creates the users table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*userRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// CreateUser inserts a new account. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, user *auth.UserDetails) error {
	if user == nil || user.Username == "" || user.PasswordHash == "" {
		return ErrInvalidUser
	}
	row := rowOf(user)
	row.CreatedAt = s.now().UTC()

	res, err := s.db.NewInsert().Model(row).On("CONFLICT (username) DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUserExists, user.Username)
	}
	return nil
}

// UpdateUser replaces the stored fields of an existing account.
func (s *Store) UpdateUser(ctx context.Context, user *auth.UserDetails) error {
	if user == nil || user.Username == "" || user.PasswordHash == "" {
		return ErrInvalidUser
	}
	res, err := s.db.NewUpdate().
		Model(rowOf(user)).
		Column("password_hash", "tenant_id", "roles", "disabled", "locked").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return affected(res, user.Username)
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.NewDelete().
		Model((*userRow)(nil)).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affected(res, username)
}

// FindByUsername implements auth.UserStore. A missing user is (nil, nil).
func (s *Store) FindByUsername(ctx context.Context, username string) (*auth.UserDetails, error) {
	if s.breaker == nil {
		return s.find(ctx, username)
	}

	var user *auth.UserDetails
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.find(ctx, username)
		return err
	})
	return user, err
}

func (s *Store) find(ctx context.Context, username string) (*auth.UserDetails, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("username = ?", username).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.details(), nil
}

// ListUsers returns every account ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]*auth.UserDetails, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("username ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*auth.UserDetails, len(rows))
	for i := range rows {
		out[i] = rows[i].details()
	}
	return out, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func affected(res sql.Result, username string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return nil
}

var _ auth.UserStore = (*Store)(nil)
