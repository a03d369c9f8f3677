package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/selection"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

func newTestManager(t *testing.T) *selection.Manager {
	t.Helper()

	snap := catalog.MustSnapshot(
		types.AddonDefinition{ID: "smoke", Name: "Smoke Detector", Category: types.CategorySensor, ConsumesInputZone: true, QuantityMax: 20,
			UnitPriceByContext: map[types.PropertyContext]decimal.Decimal{types.ContextResidential: decimal.NewFromInt(180)}},
		types.AddonDefinition{ID: "keypad", Name: "LCD Keypad", Category: types.CategoryKeypad, QuantityMax: 4},
		types.AddonDefinition{ID: types.AddonInputExpander, Name: "Input Expander", Category: types.CategoryExpander, IsAutoAppended: true, QuantityMax: 2,
			UnitPriceByContext: map[types.PropertyContext]decimal.Decimal{types.ContextResidential: decimal.NewFromInt(95)}},
	)

	m, err := selection.NewManager(catalog.NewStaticProvider(snap), selection.Options{
		Limits:    types.SystemLimits{MaxInputZones: 16, InputZoneSoftThreshold: 8, MaxPowerMilliAmps: 1000, MaxKeypads: 1, MaxTouchscreens: 1, TouchscreenSoftThreshold: 1},
		BasePrice: pricing.FlatBase(decimal.NewFromInt(1295)),
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepository(), NewTokenSigner("test-secret", time.Hour), zaptest.NewLogger(t))
}

func evaluate(t *testing.T, m *selection.Manager, id uuid.UUID) *selection.Evaluation {
	t.Helper()
	ev, err := m.Evaluate(id)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestService_SubmitIsIdempotent(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	svc := newTestService(t)
	ctx := context.Background()

	s, _ := m.Create("")
	m.SetQuantity(s.ID, "smoke", 9)

	customer := Customer{Name: "Dana Example", Email: " Dana@Example.com "}
	first, err := svc.Submit(ctx, evaluate(t, m, s.ID), customer)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Created || first.Token == "" {
		t.Errorf("first submit = %+v", first)
	}
	if first.Quote.Customer.Email != "dana@example.com" {
		t.Errorf("email not normalized: %q", first.Quote.Customer.Email)
	}

	// 1295 + 9*180 + 95
	if !first.Quote.Total.Equal(decimal.NewFromInt(3010)) {
		t.Errorf("total = %s, want 3010", first.Quote.Total)
	}
	if len(first.Quote.LineItems) != 2 || !first.Quote.LineItems[1].AutoAppended {
		t.Errorf("line items = %+v", first.Quote.LineItems)
	}

	second, err := svc.Submit(ctx, evaluate(t, m, s.ID), customer)
	if err != nil {
		t.Fatal(err)
	}
	if second.Created || second.Quote.ID != first.Quote.ID {
		t.Errorf("resubmit created a new quote: %+v", second.Quote)
	}

	m.Increment(s.ID, "smoke")
	third, err := svc.Submit(ctx, evaluate(t, m, s.ID), customer)
	if err != nil {
		t.Fatal(err)
	}
	if !third.Created || third.Quote.ID == first.Quote.ID {
		t.Error("changed selection must yield a new quote")
	}
}

func TestService_SubmitRejectsInvalid(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	svc := newTestService(t)
	s, _ := m.Create("")

	ev := evaluate(t, m, s.ID)
	ev.Validation.IsValid = false
	ev.Validation.Violations = []string{"Keypad capacity exceeded (2/1)"}

	_, err := svc.Submit(context.Background(), ev, Customer{Name: "Dana"})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
	var invalid *InvalidConfigurationError
	if !errors.As(err, &invalid) || len(invalid.Violations) != 1 {
		t.Errorf("violations not carried: %v", err)
	}

	if _, err := svc.Submit(context.Background(), evaluate(t, m, s.ID), Customer{}); !errors.Is(err, ErrInvalidCustomer) {
		t.Errorf("err = %v, want ErrInvalidCustomer", err)
	}
}

func TestService_VerifyToken(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	svc := newTestService(t)
	ctx := context.Background()

	s, _ := m.Create("")
	m.Increment(s.ID, "smoke")
	sub, err := svc.Submit(ctx, evaluate(t, m, s.ID), Customer{Email: "a@b.c"})
	if err != nil {
		t.Fatal(err)
	}

	claims, q, err := svc.VerifyToken(ctx, sub.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.QuoteID != sub.Quote.ID.String() || claims.Total != "1475.00" || q.ID != sub.Quote.ID {
		t.Errorf("claims = %+v", claims)
	}

	other := NewService(NewMemoryRepository(), NewTokenSigner("other-secret", time.Hour), nil)
	if _, _, err := other.VerifyToken(ctx, sub.Token); err == nil {
		t.Error("token signed with another secret must not verify")
	}

	expired := NewTokenSigner("test-secret", -time.Minute)
	token, err := expired.Sign(sub.Quote)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.VerifyToken(ctx, token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestService_GetAndList(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Alice Alarm", "Bob Burglar", "Carol Camera"} {
		s, _ := m.Create("")
		m.Increment(s.ID, "smoke")
		if _, err := svc.Submit(ctx, evaluate(t, m, s.ID), Customer{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	all, total, err := svc.List(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("list = %d/%d", len(all), total)
	}

	page, total, _ := svc.List(ctx, ListOptions{Limit: 2, Offset: 2})
	if total != 3 || len(page) != 1 {
		t.Errorf("page = %d/%d", len(page), total)
	}

	found, total, _ := svc.List(ctx, ListOptions{Search: "burglar"})
	if total != 1 || found[0].Customer.Name != "Bob Burglar" {
		t.Errorf("search = %+v", found)
	}

	got, err := svc.Get(ctx, found[0].ID)
	if err != nil || got.ID != found[0].ID {
		t.Errorf("Get = %v, %v", got, err)
	}
	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) = %v", err)
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	a, _ := Fingerprint(id, "v1", types.ContextOffice,
		[]types.SelectionEntry{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}}, Customer{Email: "X@y.z"})
	b, _ := Fingerprint(id, "v1", types.ContextOffice,
		[]types.SelectionEntry{{ID: "b", Quantity: 2}, {ID: "a", Quantity: 1}}, Customer{Email: "x@y.z "})
	c, _ := Fingerprint(id, "v1", types.ContextRetail,
		[]types.SelectionEntry{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}}, Customer{Email: "x@y.z"})

	if a != b {
		t.Error("fingerprint depends on entry order or email case")
	}
	if a == c {
		t.Error("fingerprint ignores context")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d", len(a))
	}
}
