package auth

import (
	"context"
	"path"
	"strings"
)

// RBACConfig configures the role-based authorizer.
type RBACConfig struct {
	// Roles defines role configurations.
	Roles map[string]RoleConfig

	// DefaultRole is assigned to identities without explicit roles.
	DefaultRole string

	// AnonymousRole is used for requests without an identity. Empty means
	// anonymous requests are always denied.
	AnonymousRole string
}

// RoleConfig defines what a role may access.
type RoleConfig struct {
	// Permissions are "<method>:<path pattern>" strings (e.g., "GET:/reports/**").
	// A bare pattern allows every method.
	Permissions []string

	// Inherits lists roles this role inherits from.
	Inherits []string

	// AllowedPaths are path patterns this role can access.
	AllowedPaths []string

	// DeniedPaths are path patterns this role cannot access.
	DeniedPaths []string

	// AllowedMethods is a list of HTTP methods this role can use.
	AllowedMethods []string
}

// RBACAuthorizer provides role-based access control over request paths.
type RBACAuthorizer struct {
	config RBACConfig
}

// NewRBACAuthorizer creates a new RBAC authorizer.
func NewRBACAuthorizer(config RBACConfig) *RBACAuthorizer {
	return &RBACAuthorizer{config: config}
}

// Name returns "rbac".
func (a *RBACAuthorizer) Name() string {
	return "rbac"
}

// Authorize checks if the identity is allowed to perform the action.
func (a *RBACAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	var start []string
	switch {
	case req.Subject.IsAnonymous():
		if a.config.AnonymousRole == "" {
			return deny(req, "no identity provided")
		}
		start = []string{a.config.AnonymousRole}
	case len(req.Subject.Roles) == 0 && a.config.DefaultRole != "":
		start = []string{a.config.DefaultRole}
	default:
		start = req.Subject.Roles
	}

	for _, roleName := range a.collectRoles(start) {
		role, ok := a.config.Roles[roleName]
		if !ok {
			continue
		}
		if rolePermits(role, req) {
			return nil
		}
	}

	return deny(req, "no role permits this action")
}

// collectRoles expands roles breadth-first through Inherits, skipping cycles.
func (a *RBACAuthorizer) collectRoles(roles []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(roles))

	queue := append([]string{}, roles...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		if role, ok := a.config.Roles[current]; ok {
			for _, inherited := range role.Inherits {
				if !seen[inherited] {
					queue = append(queue, inherited)
				}
			}
		}
	}

	return result
}

func rolePermits(role RoleConfig, req *AuthzRequest) bool {
	// Deny takes precedence
	for _, denied := range role.DeniedPaths {
		if MatchPath(denied, req.Resource) {
			return false
		}
	}

	if len(role.AllowedMethods) > 0 && !methodAllowed(role.AllowedMethods, req.Action) {
		return false
	}

	for _, perm := range role.Permissions {
		if matchPermission(perm, req) {
			return true
		}
	}

	for _, allowed := range role.AllowedPaths {
		if MatchPath(allowed, req.Resource) {
			return true
		}
	}

	return false
}

func methodAllowed(methods []string, method string) bool {
	for _, m := range methods {
		if m == "*" || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// matchPermission checks a "<method>:<pattern>" or "<pattern>" permission.
func matchPermission(perm string, req *AuthzRequest) bool {
	method, pattern, found := strings.Cut(perm, ":")
	if !found {
		return MatchPath(method, req.Resource)
	}
	return methodAllowed([]string{method}, req.Action) && MatchPath(pattern, req.Resource)
}

// MatchPath matches a request path against a pattern.
//
// "*" and "/**" match everything, a trailing "/**" matches the prefix and
// anything below it, other patterns use path.Match glob syntax.
func MatchPath(pattern, p string) bool {
	switch {
	case pattern == "*" || pattern == "/**":
		return true
	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	ok, err := path.Match(pattern, p)
	return err == nil && ok
}

var _ Authorizer = (*RBACAuthorizer)(nil)
