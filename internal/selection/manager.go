package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/rules"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one customer's configurator state.
type Session struct {
	ID        uuid.UUID
	Store     *Store
	CreatedAt time.Time

	lastActive atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Evaluation is everything a client renders for a session: the selection,
// its validation and its price.
type Evaluation struct {
	SessionID      uuid.UUID              `json:"session_id"`
	CatalogVersion string                 `json:"catalog_version"`
	Context        types.PropertyContext  `json:"context"`
	Selection      []types.SelectionEntry `json:"selection"`
	Validation     types.ValidationResult `json:"validation"`
	Estimate       *pricing.Estimate      `json:"estimate"`
	Version        uint64                 `json:"version"`
}

// Options configure a Manager.
type Options struct {
	Limits        types.SystemLimits
	BasePrice     pricing.BasePrice
	IdleTimeout   time.Duration
	SweepSchedule string
}

// Manager is the registry of live sessions. All sessions share the rules
// engine built for the current catalog snapshot.
type Manager struct {
	provider *catalog.Provider
	opts     Options

	engine atomic.Pointer[rules.Engine]

	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex

	listenersMu sync.RWMutex
	listeners   []func(*Session)

	cron   *cron.Cron
	logger *zap.Logger
}

func NewManager(provider *catalog.Provider, opts Options, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider.Current() == nil {
		return nil, fmt.Errorf("catalog provider has no snapshot loaded")
	}
	if opts.SweepSchedule == "" {
		opts.SweepSchedule = "@every 1m"
	}

	m := &Manager{
		provider: provider,
		opts:     opts,
		sessions: make(map[uuid.UUID]*Session),
		cron:     cron.New(),
		logger:   logger,
	}
	m.rebind(provider.Current())
	provider.OnReload(m.rebind)

	return m, nil
}

// rebind builds the engine for snap and hands it to every session.
func (m *Manager) rebind(snap *catalog.Snapshot) {
	engine := rules.NewEngine(snap, m.opts.Limits, m.logger)
	m.engine.Store(engine)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.Store.SetGate(engine)
	}

	m.logger.Info("Sessions rebound to catalog",
		zap.String("version", snap.Version()),
		zap.Int("sessions", len(m.sessions)))
}

// Engine returns the rules engine of the current catalog.
func (m *Manager) Engine() *rules.Engine {
	return m.engine.Load()
}

func (m *Manager) Limits() types.SystemLimits {
	return m.opts.Limits
}

func (m *Manager) BasePrice() pricing.BasePrice {
	return m.opts.BasePrice
}

// OnChange registers fn to be called after every applied mutation.
func (m *Manager) OnChange(fn func(*Session)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(s *Session) {
	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()
	for _, fn := range m.listeners {
		fn(s)
	}
}

// Create opens a session priced in ctx. An empty ctx means residential.
func (m *Manager) Create(ctx types.PropertyContext) (*Session, error) {
	if ctx != "" && !ctx.Valid() {
		return nil, fmt.Errorf("unsupported property context: %q", ctx)
	}

	now := time.Now()
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: now,
	}
	s.touch(now)

	// The engine is read under m.mu so a concurrent rebind either sees
	// the session or has already published the engine we pick up here.
	m.mu.Lock()
	store := NewStore(m.Engine())
	if ctx != "" {
		store.SetContext(ctx)
	}
	s.Store = store
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("session_id", s.ID.String()),
		zap.String("context", string(store.Context())))

	return s, nil
}

// Get returns the session and marks it active.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch(time.Now())
	return s, nil
}

// Lookup returns the session without marking it active.
func (m *Manager) Lookup(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Mutate runs op against the session's store and notifies listeners when
// the store changed.
func (m *Manager) Mutate(id uuid.UUID, op func(*Store) MutationResult) (MutationResult, error) {
	s, err := m.Get(id)
	if err != nil {
		return MutationResult{}, err
	}

	res := op(s.Store)
	if res.Applied {
		m.notify(s)
	}
	return res, nil
}

func (m *Manager) Increment(id uuid.UUID, addonID string) (MutationResult, error) {
	return m.Mutate(id, func(s *Store) MutationResult { return s.Increment(addonID) })
}

func (m *Manager) Decrement(id uuid.UUID, addonID string) (MutationResult, error) {
	return m.Mutate(id, func(s *Store) MutationResult { return s.Decrement(addonID) })
}

func (m *Manager) SetQuantity(id uuid.UUID, addonID string, qty int) (MutationResult, error) {
	return m.Mutate(id, func(s *Store) MutationResult { return s.SetQuantity(addonID, qty) })
}

func (m *Manager) Remove(id uuid.UUID, addonID string) (MutationResult, error) {
	return m.Mutate(id, func(s *Store) MutationResult { return s.Remove(addonID) })
}

func (m *Manager) SetContext(id uuid.UUID, ctx types.PropertyContext) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := s.Store.SetContext(ctx); err != nil {
		return err
	}
	m.notify(s)
	return nil
}

// CanIncrement answers the gate query for the session's current quantity.
func (m *Manager) CanIncrement(id uuid.UUID, addonID string) (rules.Decision, error) {
	s, err := m.Get(id)
	if err != nil {
		return rules.Decision{}, err
	}
	sel := s.Store.Selection()
	return m.Engine().CanIncrement(sel, addonID, capacity.QuantityOf(sel, addonID)), nil
}

// Evaluate validates and prices the session's selection.
func (m *Manager) Evaluate(id uuid.UUID) (*Evaluation, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return m.evaluate(s)
}

func (m *Manager) evaluate(s *Session) (*Evaluation, error) {
	engine := m.Engine()
	sel := s.Store.Selection()
	ctx := s.Store.Context()

	res := engine.Validate(sel)
	est, err := pricing.BuildEstimate(engine.Catalog(), sel, res.AutoAppendedItems, ctx, m.opts.BasePrice)
	if err != nil {
		return nil, fmt.Errorf("failed to price session %s: %w", s.ID, err)
	}

	version := ""
	if snap, ok := engine.Catalog().(*catalog.Snapshot); ok {
		version = snap.Version()
	}

	return &Evaluation{
		SessionID:      s.ID,
		CatalogVersion: version,
		Context:        ctx,
		Selection:      sel,
		Validation:     res,
		Estimate:       est,
		Version:        s.Store.Version(),
	}, nil
}

// EvaluateSession is Evaluate for a session already in hand. It does not
// count as activity.
func (m *Manager) EvaluateSession(s *Session) (*Evaluation, error) {
	return m.evaluate(s)
}

// Sweep evicts sessions idle since before now minus the idle timeout and
// returns how many were evicted.
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}

	if evicted > 0 {
		m.logger.Info("Idle sessions evicted",
			zap.Int("evicted", evicted),
			zap.Int("remaining", len(m.sessions)))
	}
	return evicted
}

// Start schedules the idle sweeper.
func (m *Manager) Start() error {
	if m.opts.IdleTimeout <= 0 {
		m.logger.Info("Session sweeper disabled")
		return nil
	}

	if _, err := m.cron.AddFunc(m.opts.SweepSchedule, func() {
		m.Sweep(time.Now())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", m.opts.SweepSchedule, err)
	}

	m.cron.Start()
	m.logger.Info("Session sweeper started",
		zap.String("schedule", m.opts.SweepSchedule),
		zap.Duration("idle_timeout", m.opts.IdleTimeout))
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish.
func (m *Manager) Stop(ctx context.Context) error {
	stopped := m.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
