package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// RecordCatalogLoad appends a catalog reload to the audit trail.
func (p *PostgresClient) RecordCatalogLoad(ctx context.Context, version string, addons int, warnings []string) error {
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO catalog_loads (version, addons, warnings)
		VALUES ($1, $2, $3)
	`, version, addons, warningsJSON)
	if err != nil {
		return fmt.Errorf("failed to record catalog load: %w", err)
	}
	return nil
}

// ListCatalogLoads returns the most recent reloads, newest first.
func (p *PostgresClient) ListCatalogLoads(ctx context.Context, limit int) ([]*CatalogLoad, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, version, addons, warnings, loaded_at
		FROM catalog_loads
		ORDER BY loaded_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog loads: %w", err)
	}
	defer rows.Close()

	loads := make([]*CatalogLoad, 0)
	for rows.Next() {
		var l CatalogLoad
		var warningsJSON []byte
		if err := rows.Scan(&l.ID, &l.Version, &l.Addons, &warningsJSON, &l.LoadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog load: %w", err)
		}
		if err := json.Unmarshal(warningsJSON, &l.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
		loads = append(loads, &l)
	}

	return loads, rows.Err()
}
