// ABOUTME: Gateway orchestrator that coordinates the HTTP API and WebSocket relay.
// ABOUTME: Manages listeners, lifecycle, and graceful shutdown of both servers.

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"

	"github.com/framegate/framegate/internal/agent"
	"github.com/framegate/framegate/internal/config"
	"github.com/framegate/framegate/internal/correlate"
	"github.com/framegate/framegate/internal/relay"
)

// ServiceName identifies the gateway in the root endpoint and logs.
const ServiceName = "framegate"

// Gateway orchestrates the framegate server components: the caller-facing
// HTTP API and the panel-facing WebSocket relay. All shared state (registry,
// correlation table) is constructor-held, so independent Gateway instances
// never interfere and tests can spin up several side by side.
type Gateway struct {
	config   *config.Config
	registry *agent.Registry
	table    *correlate.Table
	relay    *relay.Relay

	httpServer *http.Server
	wsServer   *http.Server
	logger     *slog.Logger
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Gateway {
	registry := agent.NewRegistry(logger.With("component", "registry"))
	table := correlate.NewTable()
	rly := relay.New(registry, table, logger.With("component", "relay"))

	g := &Gateway{
		config:   cfg,
		registry: registry,
		table:    table,
		relay:    rly,
		logger:   logger.With("component", "gateway"),
	}

	api := mux.NewRouter()
	api.HandleFunc("/", g.handleRoot).Methods(http.MethodGet)
	api.HandleFunc("/status", g.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/create-project", g.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/health/ready", g.handleReady).Methods(http.MethodGet)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", rly.HandleWS)
	g.wsServer = &http.Server{
		Addr:    cfg.Server.WSAddr,
		Handler: wsMux,
	}

	return g
}

// setupListeners creates TCP listeners for both servers. A port that cannot
// be bound is an unrecoverable startup failure.
func (g *Gateway) setupListeners() (httpLn, wsLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"http_addr", g.config.Server.HTTPAddr,
		"ws_addr", g.config.Server.WSAddr,
	)

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	wsLn, err = net.Listen("tcp", g.config.Server.WSAddr)
	if err != nil {
		_ = httpLn.Close()
		return nil, nil, fmt.Errorf("listening on WebSocket address: %w", err)
	}

	return httpLn, wsLn, nil
}

// startServers starts HTTP and WebSocket servers in goroutines, returning an
// error channel.
func (g *Gateway) startServers(httpLn, wsLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("HTTP API listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	go func() {
		g.logger.Info("WebSocket relay listening", "addr", wsLn.Addr().String())
		if err := g.wsServer.Serve(wsLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("WebSocket server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or a server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run starts the gateway servers and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if a server fails. A failed
// request, disconnected panel, or malformed message never ends Run; only
// listener failures do.
func (g *Gateway) Run(ctx context.Context) error {
	httpListener, wsListener, err := g.setupListeners()
	if err != nil {
		return err
	}

	errCh := g.startServers(httpListener, wsListener)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops both servers and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs *multierror.Error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := g.wsServer.Shutdown(ctx); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("WebSocket shutdown: %w", err))
	}

	return errs.ErrorOrNil()
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if at least one panel is connected.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	count := g.registry.Count()
	if count == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no panels connected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d panels)", count)
}

// portOf extracts the numeric port from a listen address, or 0 if it has none.
func portOf(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
