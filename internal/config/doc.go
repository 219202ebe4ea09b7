// Package config provides configuration types and loading for the
// insurance services.
//
// A Config is built once at process start and passed by pointer to the
// components that need it. It is never reloaded.
//
// # Sources
//
// Values are layered in the following order, later sources winning:
//
//   - compiled-in defaults (DefaultConfig)
//   - an optional YAML file named by CONFIG_FILE, with ${VAR:-default}
//     substitution
//   - an optional .env file
//   - process environment variables
//
// # Loading
//
//	cfg, err := config.Load(config.ServicePricing)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
