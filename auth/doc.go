// Package auth provides authentication and authorization primitives for
// HTTP security filter chains.
//
// Credentials are pulled out of a request by a CredentialExtractor (HTTP
// Basic, Bearer), resolved into an Identity by an Authenticator (static stub,
// bcrypt user store, JWT), and checked by an Authorizer (authenticated,
// role based, RBAC). The authenticated Identity travels with the request's
// context.Context. The package is transport-agnostic; package filter wires
// it into net/http.
package auth
