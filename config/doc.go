// Package config loads a webguard YAML file and builds the security proxy
// it describes.
//
// Load expands ${VAR} references strictly, resolves secretref:<provider>:<ref>
// values inside component configs, applies defaults and validates. Build
// turns the result into a Runtime holding the proxy, the health aggregator
// and everything that must be closed on shutdown.
//
// Write "$$" for a literal "$", as in bcrypt password hashes.
//
// A minimal file:
//
//	chains:
//	  - name: api
//	    match:
//	      paths: ["/api/**"]
//	    authenticator:
//	      type: user_store
//	      config:
//	        users:
//	          - username: user
//	            password: secretref:env:USER_PASSWORD
//	            roles: [ROLE_USER]
package config
