package sync

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// RedisTarget publishes each record as one base64-encoded JSON entry on
// a Redis stream. Grid semantics do not apply to a stream; consumers
// treat later entries for the same url as the current state.
type RedisTarget struct {
	client    *redis.Client
	stream    string
	maxLength int
	columns   []string
	log       *logger.Logger
}

// NewRedisTarget connects the stream publisher
func NewRedisTarget(_ context.Context, addr string, db int, stream string, maxLength int) *RedisTarget {
	return &RedisTarget{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		stream:    stream,
		maxLength: maxLength,
		log:       logger.ForSync(),
	}
}

// WriteHeaders records the column order rows are keyed with
func (t *RedisTarget) WriteHeaders(_ context.Context, columns []string) error {
	t.columns = append([]string(nil), columns...)
	return nil
}

// WriteRows publishes one stream entry per row
func (t *RedisTarget) WriteRows(ctx context.Context, rows [][]string) error {
	if t.columns == nil {
		return errors.NewSync("sync", "WriteHeaders must run before WriteRows", nil)
	}

	for _, row := range rows {
		if len(row) != len(t.columns) {
			return errors.NewSync("sync", "row width does not match the header", nil)
		}
		record := make(map[string]string, len(t.columns))
		for i, col := range t.columns {
			record[col] = row[i]
		}
		payload, err := json.Marshal(record)
		if err != nil {
			return errors.NewSync("sync", "marshal stream entry", err)
		}

		err = t.client.XAdd(ctx, &redis.XAddArgs{
			Stream: t.stream,
			Values: map[string]interface{}{
				"listing": base64.StdEncoding.EncodeToString(payload),
			},
		}).Err()
		if err != nil {
			return errors.NewSync("sync", "publish stream entry", err)
		}
	}
	t.log.Debug().Int("rows", len(rows)).Str("stream", t.stream).Msg("published batch")
	return nil
}

// Close trims the stream to its configured length and disconnects
func (t *RedisTarget) Close() error {
	if t.maxLength > 0 {
		if err := t.client.XTrimMaxLen(context.Background(), t.stream, int64(t.maxLength)).Err(); err != nil {
			t.log.Warn().Err(err).Str("stream", t.stream).Msg("stream trim failed")
		}
	}
	return t.client.Close()
}
