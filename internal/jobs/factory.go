package jobs

import (
	"context"
	"fmt"
	"path/filepath"

	"slidecast/internal/config"
)

// OpenRegistry builds the registry selected by the configuration.
func OpenRegistry(ctx context.Context, cfg *config.Config) (Registry, error) {
	switch cfg.JobStore {
	case "memory":
		return NewMemoryRegistry(), nil
	case "sqlite":
		return OpenSQLite(filepath.Join(cfg.WorkspaceDir, "jobs.db"))
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown job store: %s", cfg.JobStore)
	}
}
