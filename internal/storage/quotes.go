package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/KevinKickass/AlarmConfigurator/internal/quote"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

const quoteColumns = `id, session_id, fingerprint, catalog_version, context, customer,
	selection, line_items, base_price::text, total::text, created_at`

// SaveQuote inserts q unless a quote with the same fingerprint exists, in
// which case the stored quote is returned with created=false.
func (p *PostgresClient) SaveQuote(ctx context.Context, q *quote.Quote) (*quote.Quote, bool, error) {
	customerJSON, err := json.Marshal(q.Customer)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal customer: %w", err)
	}
	selectionJSON, err := json.Marshal(q.Selection)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal selection: %w", err)
	}
	lineItemsJSON, err := json.Marshal(q.LineItems)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal line items: %w", err)
	}

	tag, err := p.pool.Exec(ctx, `
		INSERT INTO quotes (id, session_id, fingerprint, catalog_version, context, customer,
			selection, line_items, base_price, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11)
		ON CONFLICT (fingerprint) DO NOTHING
	`, q.ID, q.SessionID, q.Fingerprint, q.CatalogVersion, string(q.Context), customerJSON,
		selectionJSON, lineItemsJSON, q.BasePrice.StringFixed(2), q.Total.StringFixed(2), q.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert quote: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return q, true, nil
	}

	existing, err := p.scanQuote(p.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE fingerprint = $1`, q.Fingerprint))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (p *PostgresClient) GetQuote(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	return p.scanQuote(p.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
}

// ListQuotes returns newest first. Search matches customer name or email.
func (p *PostgresClient) ListQuotes(ctx context.Context, opts quote.ListOptions) ([]*quote.Quote, int, error) {
	const filter = `WHERE $1 = '' OR customer->>'name' ILIKE '%' || $1 || '%'
		OR customer->>'email' ILIKE '%' || $1 || '%'`

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotes `+filter, opts.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count quotes: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes `+filter+`
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, opts.Search, limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]*quote.Quote, 0)
	for rows.Next() {
		q, err := p.scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, q)
	}

	return quotes, total, rows.Err()
}

func (p *PostgresClient) scanQuote(row pgx.Row) (*quote.Quote, error) {
	var q quote.Quote
	var propertyContext string
	var customerJSON, selectionJSON, lineItemsJSON []byte
	var basePrice, total string

	err := row.Scan(
		&q.ID,
		&q.SessionID,
		&q.Fingerprint,
		&q.CatalogVersion,
		&propertyContext,
		&customerJSON,
		&selectionJSON,
		&lineItemsJSON,
		&basePrice,
		&total,
		&q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quote.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan quote: %w", err)
	}

	if err := json.Unmarshal(customerJSON, &q.Customer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
	}
	if err := json.Unmarshal(selectionJSON, &q.Selection); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection: %w", err)
	}
	if err := json.Unmarshal(lineItemsJSON, &q.LineItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
	}

	if q.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
		return nil, fmt.Errorf("invalid base price %q: %w", basePrice, err)
	}
	if q.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total %q: %w", total, err)
	}
	q.Context = types.PropertyContext(propertyContext)

	return &q, nil
}
