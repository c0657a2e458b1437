// ABOUTME: Wires configuration into a running relay gateway.
// ABOUTME: Owns listener setup, HTTP serving, and graceful shutdown.

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/relay-gateway/internal/channel"
	"github.com/2389/relay-gateway/internal/config"
	"github.com/2389/relay-gateway/internal/directline"
	"github.com/2389/relay-gateway/internal/relay"
	"github.com/2389/relay-gateway/internal/session"
	"github.com/2389/relay-gateway/internal/silentauth"
	"github.com/2389/relay-gateway/internal/store"
)

// App holds the assembled gateway: the channel-facing HTTP server and
// every collaborator behind it.
type App struct {
	config *config.Config
	logger *slog.Logger

	httpServer    *http.Server
	channelServer *channel.Server
	ledger        store.Store   // nil when database.path is empty
	tsnetServer   *tsnet.Server // nil unless tailscale is enabled
}

// New assembles an App from configuration. The backend token is not
// fetched here; the first conversation open performs it.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		config: cfg,
		logger: logger,
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	bot := directline.NewBotService(
		cfg.BotService.Name,
		cfg.BotService.BotID,
		cfg.BotService.TenantID,
		cfg.BotService.TokenEndpoint,
		httpClient,
		logger,
	)

	baseURL := cfg.DirectLine.BaseURL
	if baseURL == "" {
		baseURL = directline.DefaultBaseURL
	}
	backend := directline.NewClient(baseURL, httpClient, logger)

	sessions := session.NewRegistry(directline.NewOpener(bot, backend), logger)

	var recorder relay.Recorder
	if cfg.Database.Path != "" {
		ledger, err := store.NewSQLiteStore(cfg.Database.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		a.ledger = ledger
		recorder = store.NewTurnRecorder(ledger)
	}

	var auth relay.AuthHandler
	if cfg.SilentAuth.Enabled {
		tokens := silentauth.NewPasswordTokenSource(
			cfg.SilentAuth.TokenURL,
			cfg.SilentAuth.ClientID,
			cfg.SilentAuth.Username,
			cfg.SilentAuth.Password,
			cfg.SilentAuth.Scopes,
			httpClient,
		)
		auth = silentauth.NewHandler(tokens, backend, logger)
	}

	connector := channel.NewConnector(httpClient, logger)

	orchestrator := relay.New(sessions, backend, connector, cfg.BotService.Name, relay.Options{
		Auth:         auth,
		Recorder:     recorder,
		MaxWait:      cfg.Relay.MaxWait,
		PollInterval: cfg.Relay.PollInterval,
		Logger:       logger,
	})

	var turns channel.TurnHandler = orchestrator
	if a.ledger != nil {
		turns = newLedgerTurns(orchestrator, sessions, a.ledger, logger)
	}

	var verifier channel.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = channel.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	} else {
		logger.Warn("auth.jwt_secret not set, channel endpoint is unauthenticated")
	}

	a.channelServer = channel.NewServer(turns, connector, verifier, logger)

	a.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           a.channelServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the gateway server and blocks until the context is canceled
// or the server fails. Returns nil on graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	ln, err := a.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := a.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		a.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		a.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := a.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListener creates the listener based on configuration (Tailscale or
// plain TCP).
func (a *App) setupListener(ctx context.Context) (net.Listener, error) {
	if a.config.Tailscale.Enabled {
		if a.config.Server.HTTPAddr != "" {
			a.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", a.config.Server.HTTPAddr,
			)
		}
		return a.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", a.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (a *App) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	a.channelServer.Close()
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing ledger: %w", err))
		}
	}
	if a.tsnetServer != nil {
		if err := a.tsnetServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing tailscale node: %w", err))
		}
	}
	return errors.Join(errs...)
}

// resolveTailscaleStateDir returns the state directory, using default if
// not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "relay-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable (get one at https://login.tailscale.com/admin/settings/keys)")
	}
	return authKey, nil
}

// setupTailscaleListener creates a tsnet node and listens on it.
func (a *App) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := a.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	a.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	a.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := a.tsnetServer.Up(ctx)
	if err != nil {
		_ = a.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	a.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := a.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = a.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

func (a *App) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		a.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	a.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}
