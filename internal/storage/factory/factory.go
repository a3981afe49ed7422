package factory

import (
	"context"
	"fmt"

	"github.com/ecala/gradesync/internal/storage"
	"github.com/ecala/gradesync/internal/storage/es"
	"github.com/ecala/gradesync/internal/storage/in_mem"
	"github.com/ecala/gradesync/internal/storage/pg"
)

// NewStore creates a storage.Store for the configured backend.
func NewStore(ctx context.Context, cfg *StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case storage.PG:
		if cfg.Pg == nil {
			return nil, fmt.Errorf("missing PostgreSQL configuration for store type %s", cfg.Type)
		}

		pool, err := pg.NewConnectionPool(ctx, *cfg.Pg)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}

		return pg.NewStore(pool)

	case storage.ES:
		if cfg.Es == nil {
			return nil, fmt.Errorf("missing Elasticsearch configuration for store type %s", cfg.Type)
		}

		return es.NewStore(ctx, *cfg.Es)

	case storage.InMem:
		return in_mem.NewInMemStore(), nil

	default:
		return nil, fmt.Errorf(string(storage.ErrUnsupportedStore), cfg.Type)
	}
}
