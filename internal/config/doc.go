// Package config handles configuration loading for chat-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation; defaults for optional values
// are applied by the consumers.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from CHAT_GATEWAY_CONFIG environment variable
//  2. ~/.config/chat-gateway/config.yaml (or $XDG_CONFIG_HOME)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	completion:
//	  api_key: "${GROQ_API_KEY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "localhost:8080"
//
// Database:
//
//	database:
//	  driver: "sqlite"   # sqlite (default) or bolt
//	  path: "/var/lib/chat-gateway/conversations.db"
//
// Completion service:
//
//	completion:
//	  base_url: "https://api.groq.com/openai/v1"  # default
//	  api_key: "${GROQ_API_KEY}"                  # required
//	  model: "llama-3.1-8b-instant"               # default
//
// CORS:
//
//	cors:
//	  allowed_origins:
//	    - "https://app.example.com"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "chat-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: false
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
//   - An HTTP listen address (unless tailscale serving is enabled)
//   - A tailscale hostname when tailscale is enabled
//   - The database path and a known driver name
//   - A non-empty completion API key
package config
