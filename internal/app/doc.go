// Package app assembles the relay-gateway server from configuration.
//
// # Overview
//
// The app package is the composition root. It wires the channel HTTP
// server, the relay orchestrator, the session registry, the backend
// activity-exchange client, the optional silent sign-in handler, and the
// optional SQLite ledger into a single runnable App.
//
// # Lifecycle
//
// Start the gateway:
//
//	a, err := app.New(cfg, logger)
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	err = a.Run(ctx)
//
// Run blocks until the context is canceled or the server fails, then
// shuts down the HTTP server, the replay cache, the ledger, and the
// tailscale node (when enabled) with a 5 second grace period.
//
// # Listeners
//
// By default the App listens on server.http_addr. When tailscale.enabled
// is set, it instead joins the tailnet as its own node via tsnet and
// serves on tailnet port 80; server.http_addr is ignored.
//
// # Key Files
//
//   - app.go: App struct, wiring, Run and shutdown
//   - ledger.go: session recording decorator around the turn handler
package app
