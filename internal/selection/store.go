// Package selection owns the mutable addon selection of configurator
// sessions. Every mutation passes the rules gate first.
package selection

import (
	"fmt"
	"sync"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/rules"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// Gate decides whether a quantity change may be applied.
type Gate interface {
	CanIncrement(selection []types.SelectionEntry, id string, currentQuantity int) rules.Decision
	CanSetQuantity(selection []types.SelectionEntry, id string, target int) rules.Decision
	CanDecrement(id string, currentQuantity int) rules.Decision
	NextQuantity(id string, current int) (int, bool)
}

// MutationResult reports the outcome of one mutation. Quantity is the
// addon's quantity after the call, whether or not it was applied.
type MutationResult struct {
	Applied  bool   `json:"applied"`
	Reason   string `json:"reason,omitempty"`
	Quantity int    `json:"quantity"`
}

// Store holds one selection. Mutations are serialized; a rejected mutation
// leaves the selection untouched and carries the gate's reason.
type Store struct {
	mu      sync.Mutex
	gate    Gate
	entries []types.SelectionEntry
	context types.PropertyContext
	version uint64
}

func NewStore(gate Gate) *Store {
	return &Store{
		gate:    gate,
		entries: make([]types.SelectionEntry, 0),
		context: types.ContextResidential,
	}
}

// SetGate swaps the rules gate, e.g. after a catalog reload. The selection
// is kept as is; entries the new catalog lacks become stale.
func (s *Store) SetGate(gate Gate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
}

func (s *Store) Increment(id string) MutationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := capacity.QuantityOf(s.entries, id)
	if d := s.gate.CanIncrement(s.entries, id, current); !d.Allowed {
		return MutationResult{Reason: d.Reason, Quantity: current}
	}

	next, _ := s.gate.NextQuantity(id, current)
	return s.apply(id, next)
}

func (s *Store) Decrement(id string) MutationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := capacity.QuantityOf(s.entries, id)
	if current == 0 {
		return MutationResult{Reason: fmt.Sprintf("Addon not selected: %s", id)}
	}
	if d := s.gate.CanDecrement(id, current); !d.Allowed {
		return MutationResult{Reason: d.Reason, Quantity: current}
	}

	return s.apply(id, current-1)
}

func (s *Store) SetQuantity(id string, qty int) MutationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := capacity.QuantityOf(s.entries, id)
	if qty == current {
		return MutationResult{Applied: true, Quantity: current}
	}
	if d := s.gate.CanSetQuantity(s.entries, id, qty); !d.Allowed {
		return MutationResult{Reason: d.Reason, Quantity: current}
	}

	return s.apply(id, qty)
}

// Remove drops id regardless of its minimum. Auto-appended addons are owned
// by the rules engine and cannot be removed.
func (s *Store) Remove(id string) MutationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := capacity.QuantityOf(s.entries, id)
	if current == 0 {
		return MutationResult{Reason: fmt.Sprintf("Addon not selected: %s", id)}
	}
	if d := s.gate.CanSetQuantity(s.entries, id, 0); !d.Allowed {
		return MutationResult{Reason: d.Reason, Quantity: current}
	}

	return s.apply(id, 0)
}

func (s *Store) apply(id string, qty int) MutationResult {
	s.entries = capacity.WithQuantity(s.entries, id, qty)
	s.version++
	return MutationResult{Applied: true, Quantity: qty}
}

// Selection returns a copy of the current entries in insertion order.
func (s *Store) Selection() []types.SelectionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.SelectionEntry(nil), s.entries...)
}

func (s *Store) SetContext(ctx types.PropertyContext) error {
	if !ctx.Valid() {
		return fmt.Errorf("unsupported property context: %q", ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.context != ctx {
		s.context = ctx
		s.version++
	}
	return nil
}

func (s *Store) Context() types.PropertyContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context
}

// Version increases with every applied change.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
