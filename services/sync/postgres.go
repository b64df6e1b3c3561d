package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/anaviationstore/listingsync/internal/listing"
	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// PostgresTarget upserts records into one table per tab, keyed by the
// canonical listing url. Stale rows from earlier runs keep their data
// but are marked with an older synced_at, which downstream queries can
// filter on.
type PostgresTarget struct {
	db      *sql.DB
	table   string
	columns []string
	log     *logger.Logger
}

// NewPostgresTarget opens the pool and ensures the tab's table exists
func NewPostgresTarget(ctx context.Context, dsn, tab string) (*PostgresTarget, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.NewSync("sync", "open postgres connection", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.NewSync("sync", "ping postgres", err)
	}

	t := &PostgresTarget{
		db:    db,
		table: sanitizeIdent(tab),
		log:   logger.ForSync(),
	}
	if err := t.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

// WriteHeaders pins the column order used by later row writes. The
// order must match the fixed record schema the table was created with.
func (t *PostgresTarget) WriteHeaders(_ context.Context, columns []string) error {
	expected := listing.Columns()
	if len(columns) != len(expected) {
		return errors.NewSync("sync", "column count does not match the record schema", nil)
	}
	for i, c := range columns {
		if c != expected[i] {
			return errors.NewSync("sync", "column order does not match the record schema", nil)
		}
	}
	t.columns = columns
	return nil
}

// WriteRows upserts one batch inside a transaction
func (t *PostgresTarget) WriteRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if t.columns == nil {
		return errors.NewSync("sync", "WriteHeaders must run before WriteRows", nil)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewSync("sync", "begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, t.upsertQuery())
	if err != nil {
		return errors.NewSync("sync", "prepare upsert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(t.columns) {
			return errors.NewSync("sync", "row width does not match the header", nil)
		}
		args := make([]interface{}, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.NewSync("sync", "upsert row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewSync("sync", "commit transaction", err)
	}
	t.log.Debug().Int("rows", len(rows)).Str("table", t.table).Msg("upserted batch")
	return nil
}

// Close releases the pool
func (t *PostgresTarget) Close() error {
	return t.db.Close()
}

func (t *PostgresTarget) ensureSchema(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			listing_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL UNIQUE,
			image TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			seller_name TEXT NOT NULL DEFAULT '',
			seller_url TEXT NOT NULL DEFAULT '',
			timestamp_utc TEXT NOT NULL DEFAULT '',
			synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.table))
	if err != nil {
		return errors.NewSync("sync", "ensure schema", err)
	}
	return nil
}

func (t *PostgresTarget) upsertQuery() string {
	cols := []string{
		"listing_id", "title", "price", "currency", "status", "category",
		"tags", "url", "image", "description", "seller_name", "seller_url",
		"timestamp_utc",
	}
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if c != "url" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	updates = append(updates, "synced_at = NOW()")
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (url) DO UPDATE SET %s",
		t.table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// sanitizeIdent keeps the tab name usable as an unquoted identifier
func sanitizeIdent(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "listings"
	}
	return b.String()
}
