package quote

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Repository persists quotes. SaveQuote is idempotent on the fingerprint:
// saving a known fingerprint returns the stored quote and created=false.
type Repository interface {
	SaveQuote(ctx context.Context, q *Quote) (stored *Quote, created bool, err error)
	GetQuote(ctx context.Context, id uuid.UUID) (*Quote, error)
	ListQuotes(ctx context.Context, opts ListOptions) ([]*Quote, int, error)
}

// MemoryRepository keeps quotes in process memory.
type MemoryRepository struct {
	mu            sync.RWMutex
	quotes        map[uuid.UUID]*Quote
	byFingerprint map[string]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		quotes:        make(map[uuid.UUID]*Quote),
		byFingerprint: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) SaveQuote(ctx context.Context, q *Quote) (*Quote, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.byFingerprint[q.Fingerprint]; exists {
		return r.quotes[id], false, nil
	}

	stored := *q
	r.quotes[q.ID] = &stored
	r.byFingerprint[q.Fingerprint] = q.ID
	return &stored, true, nil
}

func (r *MemoryRepository) GetQuote(ctx context.Context, id uuid.UUID) (*Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, exists := r.quotes[id]
	if !exists {
		return nil, ErrNotFound
	}
	return q, nil
}

// ListQuotes returns newest first. Search matches customer name or email.
func (r *MemoryRepository) ListQuotes(ctx context.Context, opts ListOptions) ([]*Quote, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(opts.Search))
	matched := make([]*Quote, 0, len(r.quotes))
	for _, q := range r.quotes {
		if search != "" &&
			!strings.Contains(strings.ToLower(q.Customer.Name), search) &&
			!strings.Contains(q.Customer.Email, search) {
			continue
		}
		matched = append(matched, q)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= total {
		return []*Quote{}, total, nil
	}
	end := total
	if opts.Limit > 0 && opts.Offset+opts.Limit < total {
		end = opts.Offset + opts.Limit
	}
	return matched[opts.Offset:end], total, nil
}
