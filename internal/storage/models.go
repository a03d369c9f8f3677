package storage

import (
	"time"
)

// CatalogLoad is one row of the catalog reload audit trail.
type CatalogLoad struct {
	ID       int64     `json:"id"`
	Version  string    `json:"version"`
	Addons   int       `json:"addons"`
	Warnings []string  `json:"warnings"`
	LoadedAt time.Time `json:"loaded_at"`
}
