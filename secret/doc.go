// Package secret resolves credentials referenced from configuration, such
// as JWT signing keys and database DSNs, so they never appear in config
// files.
//
// Configuration values go through strict environment expansion and then
// secret reference resolution:
//
//	dsn: ${WEBGUARD_DSN}                      environment, error if unset
//	key: secretref:env:JWT_SIGNING_KEY         EnvProvider
//	key: secretref:file:jwt.key                FileProvider, relative to its Dir
//	dsn: postgres://app:secretref:file:db_pw@db/app   inline reference
//
// Providers are registered by name in a Registry and held by a Resolver.
package secret
