package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Provider owns the current catalog snapshot. Reloads swap the pointer
// atomically; readers never see a partially built catalog.
type Provider struct {
	loader     *Loader
	normalizer *Normalizer
	logger     *zap.Logger

	current atomic.Pointer[Snapshot]

	reloadMu  sync.Mutex
	listeners []func(*Snapshot)
}

func NewProvider(loader *Loader, normalizer *Normalizer, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		loader:     loader,
		normalizer: normalizer,
		logger:     logger,
	}
}

// NewStaticProvider serves a fixed snapshot. Reload is a no-op.
func NewStaticProvider(s *Snapshot) *Provider {
	p := &Provider{logger: zap.NewNop()}
	p.current.Store(s)
	return p
}

// Current returns the latest snapshot, or nil before the first load.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// OnReload registers fn to be called with every newly loaded snapshot.
func (p *Provider) OnReload(fn func(*Snapshot)) {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Reload reads, normalizes and publishes the catalog. On failure the
// previous snapshot stays in place.
func (p *Provider) Reload() (*Snapshot, error) {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	if p.loader == nil {
		return p.Current(), nil
	}

	products, err := p.loader.LoadProducts()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	res := p.normalizer.Normalize(products)

	snap, err := NewSnapshot(res.Addons, res.Warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog snapshot: %w", err)
	}

	p.current.Store(snap)

	p.logger.Info("Catalog loaded",
		zap.String("version", snap.Version()),
		zap.Int("addons", snap.Len()),
		zap.Int("data_warnings", len(res.Warnings)))

	for _, fn := range p.listeners {
		fn(snap)
	}

	return snap, nil
}
