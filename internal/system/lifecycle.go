package system

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/KevinKickass/AlarmConfigurator/internal/api/grpcapi"
	"github.com/KevinKickass/AlarmConfigurator/internal/api/rest"
	"github.com/KevinKickass/AlarmConfigurator/internal/api/websocket"
	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/config"
	"github.com/KevinKickass/AlarmConfigurator/internal/interfaces"
	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/quote"
	"github.com/KevinKickass/AlarmConfigurator/internal/selection"
	"github.com/KevinKickass/AlarmConfigurator/internal/storage"
)

type LifecycleManager struct {
	config   *config.Config
	storage  *storage.PostgresClient
	provider *catalog.Provider
	watcher  *catalog.Watcher
	sessions *selection.Manager
	quotes   *quote.Service
	wsHub    *websocket.Hub
	logger   *zap.Logger

	restServer *rest.Server
	grpcServer *grpc.Server
	hubRunning bool

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    error

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager loads the catalog and wires every component. db may
// be nil; quotes are then kept in memory.
func NewLifecycleManager(db *storage.PostgresClient, cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	opts, err := catalog.OptionsFromConfig(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	basePrice, err := pricing.ParseBasePrice(cfg.Pricing.BasePrice)
	if err != nil {
		return nil, fmt.Errorf("invalid pricing.base_price: %w", err)
	}

	loader, err := catalog.NewLoader(cfg.Catalog.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog loader: %w", err)
	}
	provider := catalog.NewProvider(loader, catalog.NewNormalizer(opts, logger), logger)

	// Katalog laden
	if _, err := provider.Reload(); err != nil {
		return nil, err
	}

	sessions, err := selection.NewManager(provider, selection.Options{
		Limits:        cfg.Limits,
		BasePrice:     basePrice,
		IdleTimeout:   cfg.Sessions.IdleTimeout,
		SweepSchedule: cfg.Sessions.SweepSchedule,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	var repo quote.Repository = quote.NewMemoryRepository()
	if db != nil {
		repo = db
	}
	if !cfg.Quotes.IsProductionReady() {
		logger.Warn("Quote signing secret is not production ready",
			zap.String("env", cfg.Quotes.SigningSecretEnv))
	}
	signer := quote.NewTokenSigner(cfg.Quotes.SigningSecret(), cfg.Quotes.TokenTTL)

	wsHub := websocket.NewHub(sessions, logger)
	wsHub.SetAllowedOrigins(cfg.Server.CORSOrigins)

	// Order matters: sessions are rebound before subscribers are notified
	sessions.OnChange(wsHub.OnSessionChange)
	provider.OnReload(wsHub.OnCatalogReload)

	return &LifecycleManager{
		config:       cfg,
		storage:      db,
		provider:     provider,
		sessions:     sessions,
		quotes:       quote.NewService(repo, signer, logger),
		wsHub:        wsHub,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the entire system
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting AlarmConfigurator")

	if lm.storage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := lm.storage.Migrate(ctx, lm.logger); err != nil {
			lm.setError(fmt.Errorf("failed to migrate database: %w", err))
			return err
		}
		lm.recordCatalogLoad(lm.provider.Current())
		lm.provider.OnReload(lm.recordCatalogLoad)
	}

	if lm.config.Catalog.Watch {
		if err := lm.startWatcher(); err != nil {
			lm.logger.Warn("Catalog watcher not started", zap.Error(err))
			// Continue anyway, reloads remain available via the API
		}
	}

	if err := lm.sessions.Start(); err != nil {
		lm.setError(err)
		return err
	}

	go lm.wsHub.Run()
	lm.hubRunning = true

	// Start gRPC Server
	if err := lm.startGRPCServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start gRPC: %w", err))
		return err
	}

	// Start REST API Server
	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.setState(StateRunning)

	snap := lm.provider.Current()
	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("catalog_version", snap.Version()),
		zap.Int("catalog_addons", snap.Len()),
		zap.Bool("storage_enabled", lm.storage != nil))

	return nil
}

func (lm *LifecycleManager) startWatcher() error {
	w, err := catalog.NewWatcher(lm.provider, lm.logger)
	if err != nil {
		return err
	}
	if err := w.Start(lm.config.Catalog.SearchPaths); err != nil {
		w.Stop()
		return err
	}
	lm.watcher = w
	return nil
}

func (lm *LifecycleManager) recordCatalogLoad(snap *catalog.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := lm.storage.RecordCatalogLoad(ctx, snap.Version(), snap.Len(), snap.Warnings()); err != nil {
		lm.logger.Warn("Failed to record catalog load", zap.Error(err))
	}
}

// ReloadCatalog re-reads the catalog documents. Sessions and WebSocket
// subscribers follow through the provider's reload listeners.
func (lm *LifecycleManager) ReloadCatalog() (*catalog.Snapshot, error) {
	lm.stateMu.Lock()
	if lm.currentState != StateRunning {
		state := lm.currentState
		lm.stateMu.Unlock()
		return nil, fmt.Errorf("cannot reload catalog: system is %s", state)
	}
	lm.currentState = StateReloading
	lm.stateMu.Unlock()

	snap, err := lm.provider.Reload()

	lm.setState(StateRunning)
	if err != nil {
		lm.logger.Error("Catalog reload failed", zap.Error(err))
		return nil, err
	}
	return snap, nil
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)

		close(lm.shutdownChan)
	})

	return shutdownErr
}

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 4)

	// 1. Stop catalog watcher
	if lm.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.watcher.Stop()
		}()
	}

	// 2. Stop session sweeper
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := lm.sessions.Stop(ctx); err != nil {
			errChan <- fmt.Errorf("session sweeper stop failed: %w", err)
		}
	}()

	// 3. REST API Server graceful shutdown
	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	// 4. gRPC Server graceful stop
	if lm.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.logger.Info("Stopping gRPC server")
			lm.grpcServer.GracefulStop()
		}()
	}

	// Wait for all shutdowns
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		lm.logger.Info("Graceful shutdown completed")
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		if lm.grpcServer != nil {
			lm.grpcServer.Stop()
		}
		err = fmt.Errorf("shutdown timeout exceeded")
	case err = <-errChan:
	}

	// WebSocket clients last, REST no longer accepts upgrades
	if lm.hubRunning {
		lm.wsHub.Stop()
	}
	return err
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	lm.grpcServer = grpc.NewServer()

	svc := grpcapi.NewService(lm.provider, lm.config.Limits, lm.sessions.BasePrice(), lm.logger)
	grpcapi.RegisterConfiguratorServer(lm.grpcServer, svc)

	go func() {
		lm.logger.Info("gRPC server listening",
			zap.Int("port", lm.config.Server.GRPCPort),
			zap.String("services", grpcapi.ServiceName))
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub)
	return lm.restServer.Start()
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))

	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	lm.currentState = StateError
	lm.lastError = err
}

// State returns the current lifecycle state.
func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state, lastErr := lm.currentState, lm.lastError
	lm.stateMu.RUnlock()

	status := interfaces.SystemStatus{
		State:          state.String(),
		ActiveSessions: lm.sessions.Count(),
		StorageEnabled: lm.storage != nil,
	}
	if lastErr != nil {
		status.Error = lastErr.Error()
	}
	if snap := lm.provider.Current(); snap != nil {
		status.CatalogVersion = snap.Version()
		status.CatalogAddons = snap.Len()
	}
	return status
}

// Storage returns the storage client, nil when quotes live in memory
func (lm *LifecycleManager) Storage() *storage.PostgresClient {
	return lm.storage
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

func (lm *LifecycleManager) Catalog() *catalog.Provider {
	return lm.provider
}

func (lm *LifecycleManager) Sessions() *selection.Manager {
	return lm.sessions
}

func (lm *LifecycleManager) Quotes() *quote.Service {
	return lm.quotes
}
