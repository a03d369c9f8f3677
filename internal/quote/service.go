package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/selection"
)

// Submission is the result of a submit: the stored quote and its token.
type Submission struct {
	Quote   *Quote `json:"quote"`
	Token   string `json:"token"`
	Created bool   `json:"created"`
}

type Service struct {
	repo   Repository
	signer *TokenSigner
	logger *zap.Logger
}

func NewService(repo Repository, signer *TokenSigner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		signer: signer,
		logger: logger,
	}
}

// Submit freezes an evaluated session into a quote. The evaluation must be
// fresh: a configuration with violations is refused.
func (s *Service) Submit(ctx context.Context, ev *selection.Evaluation, customer Customer) (*Submission, error) {
	customer = customer.normalized()
	if customer.Name == "" && customer.Email == "" {
		return nil, ErrInvalidCustomer
	}

	if !ev.Validation.IsValid {
		return nil, &InvalidConfigurationError{Violations: ev.Validation.Violations}
	}

	priced := pricing.Union(ev.Selection, ev.Validation.AutoAppendedItems)

	fp, err := Fingerprint(ev.SessionID, ev.CatalogVersion, ev.Context, priced, customer)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		ID:             uuid.New(),
		SessionID:      ev.SessionID,
		Fingerprint:    fp,
		CatalogVersion: ev.CatalogVersion,
		Context:        ev.Context,
		Customer:       customer,
		Selection:      priced,
		LineItems:      ev.Estimate.LineItems,
		BasePrice:      ev.Estimate.BasePrice,
		Total:          ev.Estimate.Total,
		CreatedAt:      time.Now().UTC(),
	}

	stored, created, err := s.repo.SaveQuote(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to save quote: %w", err)
	}

	token, err := s.signer.Sign(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to sign quote: %w", err)
	}

	if created {
		s.logger.Info("Quote created",
			zap.String("quote_id", stored.ID.String()),
			zap.String("session_id", stored.SessionID.String()),
			zap.String("total", stored.Total.StringFixed(2)))
	} else {
		s.logger.Debug("Quote resubmitted",
			zap.String("quote_id", stored.ID.String()))
	}

	return &Submission{Quote: stored, Token: token, Created: created}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Quote, error) {
	return s.repo.GetQuote(ctx, id)
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Quote, int, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 50
	}
	return s.repo.ListQuotes(ctx, opts)
}

// VerifyToken checks the token signature and that it still matches the
// stored quote.
func (s *Service) VerifyToken(ctx context.Context, token string) (*QuoteClaims, *Quote, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, nil, err
	}

	id, err := uuid.Parse(claims.QuoteID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid quote id in token: %w", err)
	}

	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if q.Fingerprint != claims.Fingerprint || q.Total.StringFixed(2) != claims.Total {
		return nil, nil, fmt.Errorf("token does not match quote %s", id)
	}

	return claims, q, nil
}
