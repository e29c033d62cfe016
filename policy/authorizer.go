package policy

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/jonwraymond/webguard/auth"
)

//go:embed model.conf
var modelText string

// Subject namespaces. Principals and roles never share a subject, so a
// user named after a role does not inherit its policies.
const (
	PrefixUser = "user:"
	PrefixRole = "role:"

	// AnonymousSubject is checked for every request, with or without an
	// identity.
	AnonymousSubject = "anonymous"
)

// UserSubject returns the Casbin subject for a principal.
func UserSubject(principal string) string { return PrefixUser + principal }

// RoleSubject returns the Casbin subject for a role.
func RoleSubject(role string) string { return PrefixRole + role }

// ErrInvalidPolicy indicates a policy line that cannot be parsed.
var ErrInvalidPolicy = errors.New("policy: invalid policy line")

// Config configures a CasbinAuthorizer.
type Config struct {
	// PolicyFile is a Casbin CSV policy file. Optional.
	PolicyFile string

	// Policies are inline policy lines added after PolicyFile is loaded.
	Policies []string
}

// CasbinAuthorizer implements auth.Authorizer on a Casbin enforcer.
// Access is granted when the principal or any of its roles is permitted.
type CasbinAuthorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewCasbinAuthorizer builds the enforcer and loads cfg's policies.
func NewCasbinAuthorizer(cfg Config) (*CasbinAuthorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyFile != "" {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyFile))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	if err := checkLoaded(enforcer); err != nil {
		return nil, err
	}

	// Inline policies stay in memory; never write them back to the file.
	enforcer.EnableAutoSave(false)
	enforcer.AddFunction("methodMatch", methodMatchFunc)

	a := &CasbinAuthorizer{enforcer: enforcer}
	for _, line := range cfg.Policies {
		if err := a.AddPolicyLine(line); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Name returns "casbin".
func (a *CasbinAuthorizer) Name() string {
	return "casbin"
}

// AddPolicyLine adds one "p, sub, obj, act" or "g, member, role" line.
// Policy subjects are "user:<name>", "role:<name>" or "anonymous"; grouping
// members are users or roles and groups are roles. Blank lines and lines
// starting with # are ignored.
func (a *CasbinAuthorizer) AddPolicyLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var err error
	switch {
	case fields[0] == "p" && len(fields) == 4 && validPolicy(fields[1:]):
		_, err = a.enforcer.AddPolicy(fields[1], fields[2], fields[3])
	case fields[0] == "g" && len(fields) == 3 && validGrouping(fields[1:]):
		_, err = a.enforcer.AddGroupingPolicy(fields[1], fields[2])
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, line)
	}
	if err != nil {
		return fmt.Errorf("add policy %q: %w", line, err)
	}
	return nil
}

func hasSubjectPrefix(sub, prefix string) bool {
	return strings.HasPrefix(sub, prefix) && len(sub) > len(prefix)
}

func validPolicy(rule []string) bool {
	sub := rule[0]
	return sub == AnonymousSubject || hasSubjectPrefix(sub, PrefixUser) || hasSubjectPrefix(sub, PrefixRole)
}

func validGrouping(rule []string) bool {
	member, group := rule[0], rule[1]
	return (hasSubjectPrefix(member, PrefixUser) || hasSubjectPrefix(member, PrefixRole)) &&
		hasSubjectPrefix(group, PrefixRole)
}

// checkLoaded validates the rules a policy file brought in.
func checkLoaded(e *casbin.SyncedEnforcer) error {
	policies, err := e.GetPolicy()
	if err != nil {
		return fmt.Errorf("read casbin policies: %w", err)
	}
	for _, rule := range policies {
		if len(rule) != 3 || !validPolicy(rule) {
			return fmt.Errorf("%w: p, %s", ErrInvalidPolicy, strings.Join(rule, ", "))
		}
	}
	groupings, err := e.GetGroupingPolicy()
	if err != nil {
		return fmt.Errorf("read casbin grouping policies: %w", err)
	}
	for _, rule := range groupings {
		if len(rule) != 2 || !validGrouping(rule) {
			return fmt.Errorf("%w: g, %s", ErrInvalidPolicy, strings.Join(rule, ", "))
		}
	}
	return nil
}

// MethodMatch reports whether method is one of the "|"-separated methods
// in pattern. "*" matches any method.
func MethodMatch(method, pattern string) bool {
	for _, m := range strings.Split(pattern, "|") {
		m = strings.TrimSpace(m)
		if m == "*" || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func methodMatchFunc(args ...any) (any, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("methodMatch: expected 2 arguments, got %d", len(args))
	}
	method, ok1 := args[0].(string)
	pattern, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return false, errors.New("methodMatch: arguments must be strings")
	}
	return MethodMatch(method, pattern), nil
}

// Authorize checks the principal, then each role, then AnonymousSubject.
func (a *CasbinAuthorizer) Authorize(_ context.Context, req *auth.AuthzRequest) error {
	var subjects []string
	if !req.Subject.IsAnonymous() {
		if req.Subject.IsExpired() {
			return denied(req, "identity expired", nil)
		}
		subjects = append(subjects, UserSubject(req.Subject.Principal))
		for _, role := range req.Subject.Roles {
			subjects = append(subjects, RoleSubject(role))
		}
	}
	// Paths open to anonymous requests are open to everyone.
	subjects = append(subjects, AnonymousSubject)

	for _, sub := range subjects {
		ok, err := a.enforcer.Enforce(sub, req.Resource, req.Action)
		if err != nil {
			return denied(req, "policy evaluation failed", err)
		}
		if ok {
			return nil
		}
	}
	return denied(req, "no matching policy", nil)
}

func denied(req *auth.AuthzRequest, reason string, cause error) *auth.AuthzError {
	subject := ""
	if req.Subject != nil {
		subject = req.Subject.Principal
	}
	return &auth.AuthzError{
		Subject:  subject,
		Resource: req.Resource,
		Action:   req.Action,
		Reason:   reason,
		Cause:    cause,
	}
}

var _ auth.Authorizer = (*CasbinAuthorizer)(nil)
