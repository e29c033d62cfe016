// Package credstore keeps user accounts in SQL databases for
// auth.UserStoreAuthenticator.
//
// Two databases are supported, chosen by DSN:
//
//	postgres://... or postgresql://...   PostgreSQL through the pgx driver
//	anything else (file path, :memory:)  SQLite through modernc.org/sqlite
//
// Lookups can be guarded by a resilience.CircuitBreaker so that a failing
// database is not hammered by every incoming request.
package credstore
