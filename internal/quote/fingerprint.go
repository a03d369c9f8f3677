package quote

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

type fingerprintInput struct {
	SessionID      uuid.UUID              `json:"session_id"`
	CatalogVersion string                 `json:"catalog_version"`
	Context        types.PropertyContext  `json:"context"`
	Selection      []types.SelectionEntry `json:"selection"`
	Email          string                 `json:"email"`
	Name           string                 `json:"name"`
}

// Fingerprint identifies a submission. Resubmitting the same session with
// the same priced selection and customer yields the same fingerprint.
func Fingerprint(sessionID uuid.UUID, catalogVersion string, ctx types.PropertyContext, priced []types.SelectionEntry, customer Customer) (string, error) {
	sel := append([]types.SelectionEntry(nil), priced...)
	sort.Slice(sel, func(i, j int) bool { return sel[i].ID < sel[j].ID })

	c := customer.normalized()
	data, err := json.Marshal(fingerprintInput{
		SessionID:      sessionID,
		CatalogVersion: catalogVersion,
		Context:        ctx,
		Selection:      sel,
		Email:          c.Email,
		Name:           c.Name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal fingerprint input: %w", err)
	}

	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
