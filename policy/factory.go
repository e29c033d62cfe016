package policy

import "github.com/jonwraymond/webguard/auth"

// Registers the "casbin" authorizer with auth.DefaultRegistry. Accepted
// keys: policy_file (string) and policies (list of policy lines).
func init() {
	_ = auth.DefaultRegistry.RegisterAuthorizer("casbin", func(cfg map[string]any) (auth.Authorizer, error) {
		var c Config
		c.PolicyFile, _ = cfg["policy_file"].(string)
		switch lines := cfg["policies"].(type) {
		case []string:
			c.Policies = lines
		case []any:
			for _, l := range lines {
				if s, ok := l.(string); ok {
					c.Policies = append(c.Policies, s)
				}
			}
		}
		return NewCasbinAuthorizer(c)
	})
}
