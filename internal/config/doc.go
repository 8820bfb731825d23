// Package config handles configuration loading for modeladmin.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from MODELADMIN_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/modeladmin/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${MODELADMIN_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  session_ttl: "12h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Database (one driver, its own connection fields):
//
//	database:
//	  driver: "sqlite"            # sqlite, postgres, mongo, memory
//	  path: "./modeladmin.db"     # sqlite
//	  dsn: "postgres://..."       # postgres
//	  uri: "mongodb://..."        # mongo
//	  name: "modeladmin"          # mongo database name
//
// Admin pages:
//
//	admin:
//	  name: "admin"
//	  page_size: 25
//	  include_pk: false
//	  intro: "School records. **Handle with care.**"
//
// Login wall:
//
//	auth:
//	  enabled: true
//	  username: "admin"
//	  password_hash: "${MODELADMIN_PASSWORD_HASH}"  # bcrypt
//	  jwt_secret: "${MODELADMIN_JWT_SECRET}"
//	  session_ttl: "12h"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "modeladmin"
//	  auth_key: "${TS_AUTHKEY}"
//	  state_dir: "./tsstate"
//	  ephemeral: false
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Server address present unless Tailscale carries the listener
//   - Driver name and its required connection fields
//   - Login wall credentials when auth is enabled
//   - Duration format validity
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/modeladmin/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
