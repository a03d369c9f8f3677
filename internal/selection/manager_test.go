package selection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	opts.Limits = testLimits()
	m, err := NewManager(catalog.NewStaticProvider(testSnapshot()), opts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManager_SessionLifecycle(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, Options{})

	s, err := m.Create(types.ContextRetail)
	if err != nil {
		t.Fatal(err)
	}
	if s.Store.Context() != types.ContextRetail {
		t.Errorf("context = %s", s.Store.Context())
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d", m.Count())
	}

	if err := m.Delete(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second delete = %v", err)
	}

	if _, err := m.Create("garage"); err == nil {
		t.Error("expected error for unsupported context")
	}
}

func TestManager_MutationsNotify(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, Options{})
	s, _ := m.Create("")

	var mu sync.Mutex
	notified := 0
	m.OnChange(func(*Session) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	if res, err := m.Increment(s.ID, "keypad"); err != nil || !res.Applied {
		t.Fatalf("increment = %+v, %v", res, err)
	}
	m.Increment(s.ID, "keypad")
	if res, _ := m.Increment(s.ID, "keypad"); res.Applied {
		t.Error("third keypad should be rejected")
	}
	if err := m.SetContext(s.ID, types.ContextOffice); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if notified != 3 {
		t.Errorf("notified %d times, want 3", notified)
	}

	if _, err := m.Increment(uuid.New(), "keypad"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown session = %v", err)
	}
}

func TestManager_CanIncrement(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, Options{})
	s, _ := m.Create("")
	m.SetQuantity(s.ID, "keypad", 2)

	d, err := m.CanIncrement(s.ID, "keypad")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Reason != "Keypad limit reached (2)" {
		t.Errorf("decision = %+v", d)
	}
}

func TestManager_Evaluate(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, Options{BasePrice: pricing.FlatBase(decimal.NewFromInt(1000))})
	s, _ := m.Create("")
	m.SetQuantity(s.ID, "motion", 9)

	ev, err := m.Evaluate(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ev.Validation.IsValid {
		t.Errorf("violations: %v", ev.Validation.Violations)
	}
	if len(ev.Validation.AutoAppendedItems) != 1 {
		t.Errorf("auto items = %v", ev.Validation.AutoAppendedItems)
	}
	if ev.CatalogVersion == "" || ev.Version != 1 {
		t.Errorf("version info = %q / %d", ev.CatalogVersion, ev.Version)
	}
	if !ev.Estimate.Total.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("unpriced catalog total = %s, want base 1000", ev.Estimate.Total)
	}
	if len(ev.Estimate.LineItems) != 2 {
		t.Errorf("line items = %+v", ev.Estimate.LineItems)
	}
}

func TestManager_Sweep(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, Options{IdleTimeout: time.Minute})
	idle, _ := m.Create("")
	active, _ := m.Create("")

	idle.touch(time.Now().Add(-2 * time.Minute))

	// Lookup is not activity
	if got, err := m.Lookup(idle.ID); err != nil || got != idle {
		t.Fatalf("Lookup = %v, %v", got, err)
	}

	if n := m.Sweep(time.Now()); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if _, err := m.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session survived")
	}
	if _, err := m.Get(active.ID); err != nil {
		t.Error("active session evicted")
	}
}

func TestManager_StartStop(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, Options{IdleTimeout: time.Minute, SweepSchedule: "@every 1s"})
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Errorf("Stop = %v", err)
	}

	bad := newTestManager(t, Options{IdleTimeout: time.Minute, SweepSchedule: "whenever"})
	if err := bad.Start(); err == nil {
		t.Error("expected schedule parse error")
	}
}

func TestManager_RebindsOnCatalogReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	write := func(max int) {
		doc := `{"products": [{"slug": "lcd-keypad", "name": "LCD Keypad", "price": 120,
			"meta_data": [{"key": "category", "value": "keypad"}, {"key": "quantity_max", "value": ` +
			strconv.Itoa(max) + `}]}]}`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(1)

	loader, err := catalog.NewLoader([]string{dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	provider := catalog.NewProvider(loader, catalog.NewNormalizer(catalog.DefaultOptions(), nil), nil)
	if _, err := provider.Reload(); err != nil {
		t.Fatal(err)
	}

	limits := testLimits()
	limits.MaxKeypads = 4
	m, err := NewManager(provider, Options{Limits: limits}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := m.Create("")
	m.Increment(s.ID, "keypad")
	if res, _ := m.Increment(s.ID, "keypad"); res.Applied {
		t.Fatal("quantity max 1 should block the second keypad")
	}

	write(3)
	if _, err := provider.Reload(); err != nil {
		t.Fatal(err)
	}

	if res, _ := m.Increment(s.ID, "keypad"); !res.Applied {
		t.Errorf("reloaded catalog should allow a second keypad: %+v", res)
	}
}

func TestManager_CreateDuringReloadUsesCurrentEngine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := `{"products": [{"slug": "lcd-keypad", "name": "LCD Keypad", "price": 120}]}`
	if err := os.WriteFile(filepath.Join(dir, "catalog.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	loader, err := catalog.NewLoader([]string{dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	provider := catalog.NewProvider(loader, catalog.NewNormalizer(catalog.DefaultOptions(), nil), nil)
	if _, err := provider.Reload(); err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(provider, Options{Limits: testLimits()}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	sessions := make([]*Session, 50)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range sessions {
			sessions[i], _ = m.Create(types.ContextOffice)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			provider.Reload()
		}
	}()
	wg.Wait()

	current := m.Engine()
	for i, s := range sessions {
		s.Store.mu.Lock()
		gate := s.Store.gate
		s.Store.mu.Unlock()
		if gate != current {
			t.Fatalf("session %d holds a stale rules engine", i)
		}
		if s.Store.Context() != types.ContextOffice {
			t.Errorf("session %d context = %s", i, s.Store.Context())
		}
	}

	if _, err := m.Create("garage"); err == nil {
		t.Error("expected error for unsupported context")
	}
}

func TestNewManager_RequiresSnapshot(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(catalog.NewProvider(nil, nil, nil), Options{}, nil); err == nil {
		t.Error("expected error without a loaded catalog")
	}
}
