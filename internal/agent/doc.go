// Package agent manages connections to host-application panels.
//
// # Registry
//
// The Registry tracks all connected panels:
//
//	reg := agent.NewRegistry(logger)
//
// Key operations:
//
//   - Register(conn): Add a newly accepted panel connection
//   - Unregister(id): Remove a panel (idempotent)
//   - Count(): Number of live panels, used to fail fast with zero panels
//   - ForEachLive(fn): Apply a send action to every open connection
//
// # Connection
//
// Connection wraps one panel's WebSocket. Sends are serialized with a mutex
// because the socket allows only a single concurrent writer; reads happen
// from the relay's per-connection read loop. Close is idempotent and flips
// the liveness flag checked by ForEachLive.
//
// The registry exclusively owns the live-connection set. A panel is added on
// accept and removed on disconnect or send failure; nothing outside the
// registry holds the set.
package agent
