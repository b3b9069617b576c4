package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"keychat/auth"
	"keychat/domain"
	"keychat/infrastructure/grpc/server"
	"keychat/infrastructure/stacks"
	"keychat/infrastructure/ws"
	"keychat/internal"
	"keychat/observability"
	"keychat/repositories"
	"keychat/runtime"
	"keychat/runtime/workers"
	"keychat/services"
	"keychat/sink"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// recentSessions bounds the audit records attached to /stats.
const recentSessions = 20

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// statsDocument is served on /stats when STATS_ENABLED is set.
type statsDocument struct {
	observability.Snapshot
	RecentSessions []repositories.AuditRecord `json:"recent_sessions"`
}

// run wires every component, blocks until a shutdown signal and lets deferred cleanup
// (the audit database) happen before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	network, err := stacks.ParseNetwork(config.StacksNetwork)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Audit database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) && config.AuditBadgerFilepath != "" && config.InspectorPort > 0 {
		endpoint := "/inspect"
		url := fmt.Sprintf("http://localhost:%d%s", config.InspectorPort, endpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(db, config.InspectorPort, endpoint, AuditMapper)
	}

	// 4. Events & Stats
	stats := observability.NewStats()
	auditRepository := repositories.NewAuditRepository(db, logger, config.AuditRetention)
	fanout := workers.NewEventFanout(logger, config.EventBufferSize, config.SinkTimeout,
		sink.NewStatsSink(stats),
		sink.NewAuditSink(auditRepository, logger),
	)

	// 5. Authentication & Relay
	challenge := domain.Challenge(config.ChallengeMessage)
	oracle := stacks.NewContractOracle(logger, &http.Client{Timeout: config.OracleTimeout}, stacks.ContractConfig{
		NodeURL:         config.StacksNodeURL,
		ContractAddress: config.ContractAddress,
		ContractName:    config.ContractName,
		FunctionName:    config.FunctionName,
	})
	authenticator := auth.NewAuthenticator(
		logger, challenge,
		stacks.NewSignatureVerifier(),
		stacks.NewAddressDeriver(network),
		oracle,
		config.OracleTimeout,
	)
	registry := runtime.NewRegistry()
	relay := services.NewRelayService(logger, challenge, authenticator, registry, fanout, config.OutboxSize)

	snapshot := func() observability.Snapshot {
		return stats.Snapshot(relay.Rooms())
	}
	var statsProvider ws.StatsProvider
	if config.StatsEnabled {
		statsProvider = func() any {
			recent, err := auditRepository.Recent(recentSessions)
			if err != nil {
				logger.Warn("Failed to read audit trail", "error", err)
			}
			return statsDocument{Snapshot: snapshot(), RecentSessions: recent}
		}
	}

	wsServer := ws.NewServer(logger, relay, ws.Options{
		AllowedOrigins: config.Origins(),
		Conn: ws.ConnOptions{
			MaxMessageSize: int64(config.MaxMessageSize),
			WriteTimeout:   config.WriteTimeout,
			PongTimeout:    config.PongTimeout,
		},
	}, statsProvider)

	// 6. Supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		fanout,
		workers.NewTelemetryWorker(logger, config.TelemetryInterval, snapshot,
			workers.NamedChannel{Name: "session_events", Channel: fanout.Events()},
		),
		workers.NewHTTPServerWorker(logger, config.Address(), wsServer.Handler()),
	)
	if config.GrpcHealthPort > 0 {
		sup.Add(server.NewHealthServerWorker(logger, config.GrpcHealthAddress()))
	}

	logger.Info("Starting relay",
		"address", config.Address(),
		"network", network,
		"contract", fmt.Sprintf("%s.%s::%s", config.ContractAddress, config.ContractName, config.FunctionName),
		"stats", config.StatsEnabled,
	)

	// 7. Run until a signal cancels ctx, then wait for every worker to return.
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// buildBadgerOpts keeps the audit trail in memory unless a path is configured.
func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.AuditBadgerFilepath)
	if config.AuditBadgerFilepath == "" {
		options = options.WithInMemory(true)
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
