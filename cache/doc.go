// Package cache remembers successful authentications for a short time so
// that repeated requests with the same credentials skip password hashing
// and credential store lookups.
//
// Entries are keyed by an HMAC of the credentials under a per-process key,
// so neither usernames nor secrets appear in the cache. Failures are never
// cached.
package cache
