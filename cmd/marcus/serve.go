package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/marcus-mcp/marcus/internal/ai"
	"github.com/marcus-mcp/marcus/internal/assignment"
	"github.com/marcus-mcp/marcus/internal/config"
	"github.com/marcus-mcp/marcus/internal/dashboard"
	"github.com/marcus-mcp/marcus/internal/events"
	"github.com/marcus-mcp/marcus/internal/instance"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/ledger"
	"github.com/marcus-mcp/marcus/internal/lifecycle"
	"github.com/marcus-mcp/marcus/internal/mcpserver"
	"github.com/marcus-mcp/marcus/internal/monitor"
	"github.com/marcus-mcp/marcus/internal/notify"
	"github.com/marcus-mcp/marcus/internal/reconcile"
	"github.com/marcus-mcp/marcus/internal/registry"
	"github.com/marcus-mcp/marcus/internal/resilience"
	"github.com/marcus-mcp/marcus/internal/server"
	"github.com/marcus-mcp/marcus/internal/snapshot"
)

// version is overridden at release build time via -ldflags.
var version = "dev"

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("marcus: loading config: %w", err)
	}

	if err := os.MkdirAll("data", 0o755); err != nil {
		return fmt.Errorf("marcus: creating data directory: %w", err)
	}

	instanceMgr := instance.NewManager(filepath.Join("data", "marcus.pid"), cfg.Server.Port)
	existing, err := instanceMgr.CheckExistingInstance()
	if err != nil {
		return fmt.Errorf("marcus: checking for an existing instance: %w", err)
	}
	if existing != nil && existing.IsRunning {
		resolver := instance.NewConflictResolver(instanceMgr, instance.IsInteractive())
		if err := resolver.Resolve(existing); err != nil {
			return fmt.Errorf("marcus: resolving instance conflict: %w", err)
		}
		cfg.Server.Port = instanceMgr.GetPort()
	}

	if err := instanceMgr.AcquireLock(); err != nil {
		return fmt.Errorf("marcus: acquiring instance lock: %w", err)
	}
	defer instanceMgr.ReleaseLock()

	provider, err := buildKanbanProvider(cfg)
	if err != nil {
		return err
	}
	if err := provider.Connect(context.Background()); err != nil {
		logger.Printf("marcus: kanban provider connect: %v", err)
	}
	defer provider.Disconnect(context.Background())

	led := ledger.New(cfg.Ledger.Path)
	if err := led.Load(); err != nil {
		return fmt.Errorf("marcus: loading ledger: %w", err)
	}

	reg := registry.New()
	aiAdapter := buildAIAdapter(cfg)

	retrier := resilience.NewRetrier(cfg.ToRetryConfig())
	breaker := resilience.NewBreaker("kanban:"+cfg.Kanban.Provider, cfg.ToBreakerConfig())

	aiProvider := cfg.AI.Provider
	if aiProvider == "" {
		aiProvider = "noop"
	}
	aiRetrier := resilience.NewRetrier(cfg.ToRetryConfig())
	aiBreaker := resilience.NewBreaker("ai:"+aiProvider, cfg.ToBreakerConfig())

	realtime, err := events.NewJSONLWriter(filepath.Join("data", "events.jsonl"))
	if err != nil {
		return fmt.Errorf("marcus: opening event log: %w", err)
	}

	eventsDB, err := sql.Open("sqlite", filepath.Join("data", "events.db"))
	if err != nil {
		return fmt.Errorf("marcus: opening event database: %w", err)
	}
	defer eventsDB.Close()
	eventStore, err := events.NewSQLiteStore(eventsDB)
	if err != nil {
		return fmt.Errorf("marcus: initializing event store schema: %w", err)
	}

	bus := events.NewBus(eventStore, realtime)
	recorder := events.NewRecorder(bus)

	errMonitor := monitor.New(cfg.ToMonitorConfig(), logger, buildNotifyRouter(cfg, logger, recorder))

	reconciler := reconcile.New(provider, led, reg, recorder, cfg.ToReconcileConfig(), logger)
	aggregator := snapshot.New(provider, 5*time.Minute, logger)

	engine := assignment.New(provider, led, reg, aiAdapter, cfg.ToScoringConfig(), retrier, breaker, aiRetrier, aiBreaker, logger)
	lifecycleMgr := lifecycle.New(provider, led, reg, aiAdapter, retrier, breaker, aiRetrier, aiBreaker, logger)

	deps := &mcpserver.Dependencies{
		Provider:   provider,
		Engine:     engine,
		Lifecycle:  lifecycleMgr,
		Registry:   reg,
		Reconciler: reconciler,
		Aggregator: aggregator,
		AI:         aiAdapter,
		AIRetrier:  aiRetrier,
		AIBreaker:  aiBreaker,
		Events:     recorder,
		Logger:     logger,
	}

	mcpSrv := mcpserver.NewServer()
	mcpserver.RegisterTools(mcpSrv, deps)

	srv := server.NewServer(mcpSrv, aggregator, errMonitor, cfg.Server.Port, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go aggregator.Run(ctx)
	go reconciler.Run(ctx)

	var embedded *dashboard.EmbeddedServer
	var bridge *dashboard.Bridge
	if cfg.Dashboard.Enabled {
		embedded, bridge, err = startDashboard(cfg, bus, logger)
		if err != nil {
			logger.Printf("marcus: dashboard not started: %v", err)
		}
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	if !waitForReady(cfg.Server.Port, serverErr) {
		return fmt.Errorf("marcus: server did not become ready on port %d", cfg.Server.Port)
	}
	logger.Printf("marcus: ready at http://localhost:%d (mcp at /mcp)", cfg.Server.Port)

	if err := instanceMgr.WritePIDFile(version); err != nil {
		logger.Printf("marcus: warning: failed to write PID file: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Printf("marcus: server error: %v", err)
		}
	case <-shutdown:
		logger.Println("marcus: shutting down (signal received)")
	case <-srv.ShutdownChan:
		logger.Println("marcus: shutting down (API request)")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if bridge != nil {
		bridge.Stop()
	}
	if embedded != nil {
		embedded.Shutdown()
	}

	instanceMgr.RemovePIDFile()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("marcus: shutdown error: %v", err)
	}

	logger.Println("marcus: goodbye")
	return nil
}

func buildKanbanProvider(cfg *config.Config) (kanban.Provider, error) {
	switch cfg.Kanban.Provider {
	case "", "memory":
		return kanban.NewMemoryProvider(), nil
	default:
		return &kanban.StubProvider{Name: cfg.Kanban.Provider}, nil
	}
}

func buildAIAdapter(cfg *config.Config) ai.Adapter {
	if cfg.AI.Provider != "anthropic" || cfg.AI.APIKey == "" {
		return ai.NoopAdapter{}
	}
	return ai.NewClaudeAdapter(cfg.AI.APIKey, anthropic.Model(cfg.AI.Model))
}

func buildNotifyRouter(cfg *config.Config, logger *log.Logger, extra monitor.Notifier) *notify.Router {
	channels := []monitor.Notifier{extra}
	if cfg.Notify.SlackWebhookURL != "" {
		channels = append(channels, notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL, cfg.Notify.SlackChannel, cfg.Notify.SlackUsername))
	}
	if cfg.Notify.ToastEnabled {
		channels = append(channels, notify.NewToastNotifier("marcus", cfg.Notify.DashboardURL))
	}
	return notify.NewRouter(logger, channels...)
}

func startDashboard(cfg *config.Config, bus *events.Bus, logger *log.Logger) (*dashboard.EmbeddedServer, *dashboard.Bridge, error) {
	embedded, err := dashboard.NewEmbeddedServer(dashboard.EmbeddedServerConfig{
		Port:      cfg.Dashboard.Port,
		JetStream: cfg.Dashboard.JetStream,
		DataDir:   cfg.Dashboard.DataDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building embedded NATS server: %w", err)
	}
	if err := embedded.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting embedded NATS server: %w", err)
	}

	client, err := dashboard.NewClient(embedded.URL())
	if err != nil {
		embedded.Shutdown()
		return nil, nil, fmt.Errorf("connecting dashboard bridge client: %w", err)
	}

	bridge := dashboard.NewBridge(bus, client, logger)
	logger.Printf("marcus: dashboard event bridge listening on %s", embedded.URL())
	return embedded, bridge, nil
}

// waitForReady polls the health endpoint until it answers or the
// server goroutine reports an error, for up to 5 seconds.
func waitForReady(port int, serverErr <-chan error) bool {
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		select {
		case err := <-serverErr:
			if err != nil {
				fmt.Fprintf(os.Stderr, "marcus: server failed to start: %v\n", err)
			}
			return false
		default:
		}
		if instance.HealthCheck(port) == nil {
			return true
		}
	}
	return false
}
