package interfaces

import (
	"context"

	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/config"
	"github.com/KevinKickass/AlarmConfigurator/internal/quote"
	"github.com/KevinKickass/AlarmConfigurator/internal/selection"
	"github.com/KevinKickass/AlarmConfigurator/internal/storage"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State          string `json:"state"`
	CatalogVersion string `json:"catalog_version"`
	CatalogAddons  int    `json:"catalog_addons"`
	ActiveSessions int    `json:"active_sessions"`
	StorageEnabled bool   `json:"storage_enabled"`
	Error          string `json:"error,omitempty"`
}

type LifecycleManager interface {
	Config() *config.Config
	Catalog() *catalog.Provider
	Sessions() *selection.Manager
	Quotes() *quote.Service
	Storage() *storage.PostgresClient
	GetCurrentStatus() SystemStatus
	ReloadCatalog() (*catalog.Snapshot, error)
	Shutdown(ctx context.Context) error
}
