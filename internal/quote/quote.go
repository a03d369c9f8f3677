// Package quote turns a valid session configuration into a persisted,
// signed quote for hand-off to the estimate/CRM system.
package quote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

var (
	ErrNotFound             = errors.New("quote not found")
	ErrInvalidConfiguration = errors.New("configuration is not valid")
	ErrInvalidCustomer      = errors.New("customer name or email required")
)

// InvalidConfigurationError carries the violations that blocked a submit.
type InvalidConfigurationError struct {
	Violations []string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfiguration, strings.Join(e.Violations, "; "))
}

func (e *InvalidConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func (c Customer) normalized() Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Notes = strings.TrimSpace(c.Notes)
	return c
}

// Quote is a priced, validated configuration frozen at submit time.
type Quote struct {
	ID             uuid.UUID              `json:"id"`
	SessionID      uuid.UUID              `json:"session_id"`
	Fingerprint    string                 `json:"fingerprint"`
	CatalogVersion string                 `json:"catalog_version"`
	Context        types.PropertyContext  `json:"context"`
	Customer       Customer               `json:"customer"`
	Selection      []types.SelectionEntry `json:"selection"`
	LineItems      []pricing.LineItem     `json:"line_items"`
	BasePrice      decimal.Decimal        `json:"base_price"`
	Total          decimal.Decimal        `json:"total"`
	CreatedAt      time.Time              `json:"created_at"`
}

type ListOptions struct {
	Limit  int
	Offset int
	Search string
}
