// Package catalog turns external product records into the canonical addon
// catalog and keeps the current catalog snapshot available to sessions.
package catalog

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KevinKickass/AlarmConfigurator/internal/types"
	"golang.org/x/crypto/blake2b"
)

// Snapshot is an immutable addon catalog. A session keeps the snapshot it
// was created with even after the provider reloads.
type Snapshot struct {
	addons   []types.AddonDefinition
	index    map[string]int
	version  string
	loadedAt time.Time
	warnings []string
}

// NewSnapshot indexes addons. It rejects empty or duplicate ids and
// inverted quantity bounds; the normalizer never produces either.
func NewSnapshot(addons []types.AddonDefinition, warnings []string) (*Snapshot, error) {
	s := &Snapshot{
		addons:   make([]types.AddonDefinition, len(addons)),
		index:    make(map[string]int, len(addons)),
		loadedAt: time.Now(),
		warnings: append([]string(nil), warnings...),
	}
	copy(s.addons, addons)

	for i, a := range s.addons {
		if a.ID == "" {
			return nil, fmt.Errorf("addon at position %d has no id", i)
		}
		if _, dup := s.index[a.ID]; dup {
			return nil, fmt.Errorf("duplicate addon id: %s", a.ID)
		}
		if a.QuantityMin > a.QuantityMax {
			return nil, fmt.Errorf("addon %s: quantity_min %d exceeds quantity_max %d",
				a.ID, a.QuantityMin, a.QuantityMax)
		}
		s.index[a.ID] = i
	}

	version, err := fingerprint(s.addons)
	if err != nil {
		return nil, err
	}
	s.version = version

	return s, nil
}

// MustSnapshot is NewSnapshot for fixed, known-good catalogs.
func MustSnapshot(addons ...types.AddonDefinition) *Snapshot {
	s, err := NewSnapshot(addons, nil)
	if err != nil {
		panic(err)
	}
	return s
}

func fingerprint(addons []types.AddonDefinition) (string, error) {
	data, err := json.Marshal(addons)
	if err != nil {
		return "", fmt.Errorf("failed to marshal catalog: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

// Lookup returns the addon with the given id.
func (s *Snapshot) Lookup(id string) (types.AddonDefinition, bool) {
	i, ok := s.index[id]
	if !ok {
		return types.AddonDefinition{}, false
	}
	return s.addons[i], true
}

// All returns every addon, including auto-appended ones, in catalog order.
func (s *Snapshot) All() []types.AddonDefinition {
	out := make([]types.AddonDefinition, len(s.addons))
	copy(out, s.addons)
	return out
}

// Selectable returns the addons a customer may pick.
func (s *Snapshot) Selectable() []types.AddonDefinition {
	out := make([]types.AddonDefinition, 0, len(s.addons))
	for _, a := range s.addons {
		if !a.IsAutoAppended {
			out = append(out, a)
		}
	}
	return out
}

func (s *Snapshot) Len() int            { return len(s.addons) }
func (s *Snapshot) Version() string     { return s.version }
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Warnings are the data warnings raised while normalizing this catalog.
func (s *Snapshot) Warnings() []string {
	return append([]string(nil), s.warnings...)
}
