// Package filter implements the request security filter chain.
//
// A Proxy is an http.Handler holding an ordered list of Chains. For each
// request the first Chain whose Matcher accepts it runs its Filters in
// order; requests no chain matches go straight to the downstream handler.
//
// A Filter either passes the exchange on by calling next, or responds and
// returns without calling it. Failures travel back up the chain as error
// values:
//
//	AuthenticationFilter        extract credentials, authenticate, bind identity
//	ExceptionTranslationFilter  map security errors to 401 or 403 responses
//	AuthorizationFilter         allow, or return an *auth.AuthzError
//	downstream handler
//
// NewSecurityChain assembles that canonical sequence:
//
//	chain, err := filter.NewSecurityChain(filter.SecurityConfig{
//	    Extractor:     auth.BasicExtractor{},
//	    Authenticator: auth.NewUserStoreAuthenticator(store),
//	    Authorizer:    auth.AuthenticatedAuthorizer{},
//	})
//	if err != nil {
//	    return err
//	}
//	proxy := filter.NewProxy(app, []*filter.Chain{chain})
//	http.ListenAndServe(":8080", proxy)
//
// The authenticated identity is carried on the request context; downstream
// handlers read it with auth.IdentityFromContext.
package filter
