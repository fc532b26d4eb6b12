// Package gateway orchestrates the chat-gateway server components.
//
// # Overview
//
// The gateway package is the central coordinator of the chat-gateway server.
// It owns and manages all major components: the conversation store, the
// completion client, the conversation service, and the HTTP server.
//
// # Gateway Struct
//
// The Gateway struct is the main entry point:
//
//	type Gateway struct {
//	    config       *config.Config
//	    store        store.Store
//	    conversation *conversation.Service
//	    httpServer   *http.Server
//	    tsnetServer  *tsnet.Server
//	    logger       *slog.Logger
//	}
//
// New selects the store backend from config (sqlite or bolt), builds the
// completion client and conversation service around it, and registers the
// HTTP routes.
//
// # HTTP API
//
// The gateway exposes HTTP endpoints in api.go:
//
//   - POST /chat/ - Run one chat exchange and return the assistant reply
//   - GET /conversations/{id} - Fetch a conversation transcript
//   - DELETE /conversations/{id} - Remove a conversation
//   - GET /health - Liveness check
//
// Error responses use a {"error": "..."} JSON body. Service errors map to
// status codes: missing conversations are 404, chat against an ended session
// is 400, and upstream or store failures are 500 with the cause in the
// message.
//
// # CORS
//
// When cors.allowed_origins is configured, a middleware reflects matching
// origins onto Access-Control headers and answers preflight requests. Without
// configured origins the middleware is not installed.
//
// # Listeners
//
// By default the server binds a TCP listener on server.http_addr. With
// tailscale.enabled the gateway joins a tailnet via tsnet instead and serves
// on the tailnet hostname, optionally with TLS (cert_file/key_file) or a
// public Funnel.
//
// # Lifecycle
//
// Start the gateway:
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	go gw.Run(ctx)
//
// Graceful shutdown:
//
//	cancel()
//
// Run shuts the HTTP server down with a 5 second grace period and closes the
// store before returning.
//
// # Key Files
//
//   - gateway.go: Gateway struct, initialization, Run/Shutdown, listeners
//   - api.go: HTTP handlers and error mapping
//   - cors.go: CORS middleware
package gateway
