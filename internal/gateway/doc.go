// Package gateway orchestrates the framegate server components.
//
// # Overview
//
// The Gateway owns the two listeners and all shared relay state:
//
//	type Gateway struct {
//	    config   *config.Config
//	    registry *agent.Registry
//	    table    *correlate.Table
//	    relay    *relay.Relay
//	    // HTTP + WebSocket servers
//	}
//
// Registry and correlation table are constructor-held fields rather than
// package globals, so tests can run independent gateway instances in one
// process.
//
// # HTTP API
//
// The gateway exposes HTTP endpoints in api.go:
//
//   - GET  /                - service summary, defaults, endpoint map
//   - GET  /status          - connected panel count, ports, defaults
//   - POST /create-project  - dispatch a creation command and await the reply
//   - GET  /health          - liveness check
//   - GET  /health/ready    - readiness check (ready iff >=1 panel connected)
//
// # Request flow
//
// POST /create-project runs the relay's whole correlation cycle:
//
//  1. 503 immediately when no panel is registered
//  2. Mint a monotonically increasing request id
//  3. Substitute configured defaults for omitted fields
//  4. Register a waiter and broadcast the command to every live panel
//  5. Await the first correlated reply, bounded by the reply timeout
//  6. Render 200 (success), 500 (panel error or timeout)
//
// Every response body carries a success boolean; failures add an error
// string. Callers branch on those two fields alone.
//
// # Lifecycle
//
// Start the gateway:
//
//	gw := gateway.New(cfg, logger)
//	err := gw.Run(ctx)
//
// Run blocks until the context is canceled and then shuts both servers down
// gracefully. Only unrecoverable startup failures (unbindable ports) abort
// Run; per-request and per-panel failures are absorbed and logged.
package gateway
