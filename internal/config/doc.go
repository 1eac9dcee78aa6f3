// Package config provides configuration types and loading for the
// gym gateway.
//
// This package defines the configuration model, YAML loading with
// environment variable substitution, the built-in default route and
// security tables, and validation.
//
// # Features
//
//   - YAML configuration file loading layered over DefaultConfig
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Configuration validation with detailed error reporting
//   - Route, service, authentication, authorization, circuit breaker
//     and observability config
//
// # Configuration Loading
//
// Load configuration from a YAML file:
//
//	cfg, err := config.LoadConfig("gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
// Values may reference the environment:
//
//	issuer: ${GATEWAY_JWT_ISSUER:-http://keycloak:8080/realms/gimnasio}
//
// Write $$ for a literal dollar sign, as in rewrite templates:
//
//	replacement: /$${segment}
//
// # Hot Reload
//
// Watcher observes the file with fsnotify and hands every valid new
// document to a callback:
//
//	w, err := config.NewWatcher("gateway.yaml", apply)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = w.Start(ctx)
package config
