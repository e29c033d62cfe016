// Package policy authorizes requests with Casbin RBAC policies.
//
// Policies are CSV lines in Casbin's format. A "p" line grants a subject an
// action on a path pattern; a "g" line assigns a user or role to a role.
// Subjects are namespaced: "user:<principal>", "role:<role>", or
// "anonymous":
//
//	p, role:ROLE_ADMIN, /admin/*, *
//	p, role:ROLE_USER, /reports/:id, GET|HEAD
//	p, anonymous, /public/*, GET
//	g, user:alice, role:ROLE_ADMIN
//
// Paths use keyMatch2 patterns. Actions are "|"-separated HTTP methods or
// "*" for any method. Policies for "anonymous" apply to every request.
package policy
