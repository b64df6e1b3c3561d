package sync

import (
	"context"

	"github.com/anaviationstore/listingsync/config"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// Target receives the finished record table. The contract is grid
// shaped: WriteHeaders owns row 1, WriteRows appends a contiguous data
// block starting at row 2, and a shorter run than the previous one
// leaves no trailing stale rows behind.
type Target interface {
	// WriteHeaders declares or overwrites the header row
	WriteHeaders(ctx context.Context, columns []string) error

	// WriteRows appends rows to the data block. Implementations keep
	// the block contiguous from row 2 and clear anything beyond it.
	WriteRows(ctx context.Context, rows [][]string) error

	// Close flushes and releases the backend
	Close() error
}

// NewTarget builds the configured sync backend
func NewTarget(ctx context.Context, cfg *config.Config) (Target, error) {
	switch cfg.SyncBackend {
	case "csv":
		return NewCSVTarget(cfg.CSVDir, cfg.SyncTab)
	case "postgres":
		return NewPostgresTarget(ctx, cfg.PostgresDSN, cfg.SyncTab)
	case "redis":
		return NewRedisTarget(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength), nil
	default:
		return nil, errors.NewConfiguration("unknown sync backend "+cfg.SyncBackend, nil)
	}
}
