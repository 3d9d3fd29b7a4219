// Package main runs the harvest scenarios against a backend and persists the
// verdicts.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vault-harvest-lab/internal/chainrpc"
	"vault-harvest-lab/internal/config"
	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/harness"
	"vault-harvest-lab/internal/observability"
	"vault-harvest-lab/internal/scenario"
	"vault-harvest-lab/internal/storage"
	chstore "vault-harvest-lab/internal/storage/clickhouse"
	"vault-harvest-lab/internal/storage/memory"
	"vault-harvest-lab/internal/storage/migrations"
	pgstore "vault-harvest-lab/internal/storage/postgres"
	"vault-harvest-lab/internal/vaultsim"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	scenarioList := flag.String("scenarios", "", "Comma-separated scenario IDs (overrides config)")
	backendKind := flag.String("backend", "", "Backend to run against: sim or node (overrides config)")
	flag.Parse()

	conf, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *backendKind != "" {
		conf.Backend.Kind = *backendKind
	}
	if *scenarioList != "" {
		conf.Scenarios.Run = strings.Split(*scenarioList, ",")
	}
	if err := conf.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(conf.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling", zap.String("signal", sig.String()))
		cancel()
	}()

	if conf.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			if err := http.ListenAndServe(conf.Metrics.Listen, mux); err != nil {
				logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
		logger.Info("metrics endpoint listening", zap.String("addr", conf.Metrics.Listen))
	}

	backend, err := buildBackend(conf)
	if err != nil {
		logger.Fatal("building backend", zap.Error(err))
	}
	defer backend.Close()

	if conf.Backend.Kind == "node" && conf.Backend.WSEndpoint != "" {
		closeWS, err := watchHarvests(ctx, conf.Backend.WSEndpoint, logger)
		if err != nil {
			logger.Warn("harvest subscription unavailable", zap.Error(err))
		} else {
			defer closeWS()
		}
	}

	runStore, violationStore, snapshotStore, closeStores, err := buildStores(ctx, conf, logger)
	if err != nil {
		logger.Fatal("building stores", zap.Error(err))
	}
	defer closeStores()

	runner := scenario.NewRunner(scenario.RunnerOptions{
		Backend:        backend,
		RunStore:       runStore,
		ViolationStore: violationStore,
		SnapshotStore:  snapshotStore,
	})

	configs := selectScenarios(conf)
	failed := 0
	for _, cfg := range configs {
		run, err := runner.Run(ctx, cfg)
		if err != nil {
			logger.Error("scenario runner failed",
				zap.String("scenario", cfg.ScenarioID), zap.Error(err))
			failed++
			continue
		}

		duration := float64(run.FinishedAt-run.StartedAt) / 1000
		observability.RecordScenarioRun(run.ScenarioID, run.Backend, string(run.Status), duration)
		observability.RecordSteps(run.StepCount)
		observability.RecordViolations(run.Violations)

		fields := []zap.Field{
			zap.String("run_id", run.RunID),
			zap.String("scenario", run.ScenarioID),
			zap.String("backend", run.Backend),
			zap.String("status", string(run.Status)),
			zap.Int("steps", run.StepCount),
			zap.Int("violations", run.Violations),
		}
		switch run.Status {
		case domain.RunStatusPassed:
			observability.RecordSuccessfulRun(float64(time.Now().Unix()))
			logger.Info("scenario passed", fields...)
		case domain.RunStatusUnsupported:
			logger.Warn("scenario unsupported", append(fields, zap.Stringp("detail", run.Detail))...)
		default:
			logger.Error("scenario did not pass", append(fields, zap.Stringp("detail", run.Detail))...)
			failed++
		}
	}

	logger.Info("all scenarios finished",
		zap.Int("total", len(configs)), zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Configuration, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadConfiguration(path)
}

// buildBackend creates the scenario target the configuration selects. The
// simulator backends are fresh per process; a node backend attaches to an
// already running lab chain.
func buildBackend(conf *config.Configuration) (harness.Backend, error) {
	switch conf.Backend.Kind {
	case "sim":
		vault := vaultsim.New(vaultsim.Config{
			Decimals:     conf.Backend.Decimals,
			YieldBpsDay:  conf.Backend.YieldBpsDay,
			ResidualDust: conf.Backend.ResidualDust,
		})
		return harness.NewSimBackend(vault), nil
	case "node":
		client := chainrpc.NewHTTPClient(conf.Backend.RPCEndpoint)
		return chainrpc.NewBackend(client), nil
	default:
		return nil, fmt.Errorf("unknown backend kind: %s", conf.Backend.Kind)
	}
}

// watchHarvests streams harvest notifications from the node while scenarios
// run, so node-side reports can be correlated with run records.
func watchHarvests(ctx context.Context, endpoint string, logger *zap.Logger) (func(), error) {
	ws, err := chainrpc.NewWSClient(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	notifications, err := ws.SubscribeHarvests(ctx)
	if err != nil {
		ws.Close()
		return nil, err
	}

	go func() {
		for n := range notifications {
			observability.RecordHarvestObserved()
			logger.Info("harvest reported",
				zap.Int64("block", n.Block),
				zap.String("profit", n.Profit),
				zap.String("loss", n.Loss),
				zap.String("extra", n.Extra),
			)
		}
	}()
	return func() { ws.Close() }, nil
}

// buildStores connects the configured databases, applying migrations, and
// falls back to memory stores when a DSN is absent.
func buildStores(ctx context.Context, conf *config.Configuration, logger *zap.Logger) (
	storage.ScenarioRunStore,
	storage.ViolationStore,
	storage.StepSnapshotStore,
	func(),
	error,
) {
	var (
		runStore       storage.ScenarioRunStore
		violationStore storage.ViolationStore
		snapshotStore  storage.StepSnapshotStore
		closers        []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if conf.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, conf.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			closeAll()
			return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		runStore = pgstore.NewScenarioRunStore(pool)
		violationStore = pgstore.NewViolationStore(pool)
	} else {
		logger.Info("no postgres DSN configured, run records stay in memory")
		runStore = memory.NewScenarioRunStore()
		violationStore = memory.NewViolationStore()
	}

	if conf.Storage.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, conf.Storage.ClickHouseDSN)
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		snapshotStore = chstore.NewStepSnapshotStore(conn)
	} else {
		logger.Info("no clickhouse DSN configured, step snapshots stay in memory")
		snapshotStore = memory.NewStepSnapshotStore()
	}

	return runStore, violationStore, snapshotStore, closeAll, nil
}

// selectScenarios maps the configured scenario IDs onto their predefined
// configurations, applying the configured accounting mode.
func selectScenarios(conf *config.Configuration) []domain.ScenarioConfig {
	predefined := map[string]domain.ScenarioConfig{
		domain.ScenarioLiquidatePosition: domain.ScenarioConfigLiquidatePosition,
		domain.ScenarioRekt:              domain.ScenarioConfigRekt,
		domain.ScenarioEmptyStrategy:     domain.ScenarioConfigEmptyStrategy,
		domain.ScenarioNoProfit:          domain.ScenarioConfigNoProfit,
		domain.ScenarioLockedFunds:       {ScenarioID: domain.ScenarioLockedFunds},
	}
	order := []string{
		domain.ScenarioLiquidatePosition,
		domain.ScenarioRekt,
		domain.ScenarioEmptyStrategy,
		domain.ScenarioNoProfit,
		domain.ScenarioLockedFunds,
	}

	selected := conf.Scenarios.Run
	if len(selected) == 0 {
		selected = order
	}

	mode := conf.AccountingMode()
	var configs []domain.ScenarioConfig
	for _, id := range selected {
		id = strings.TrimSpace(id)
		cfg, ok := predefined[id]
		if !ok {
			// Unknown and unsupported IDs flow through to the runner, which
			// reports them instead of silently skipping.
			cfg = domain.ScenarioConfig{ScenarioID: id}
		}
		cfg.Mode = mode
		cfg.ResidualDust = conf.Backend.ResidualDust
		configs = append(configs, cfg)
	}
	return configs
}
