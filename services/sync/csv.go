package sync

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// CSVTarget keeps the record grid in one CSV file named after the tab.
// Every flush rewrites the whole file, so a run that produces fewer
// rows than the previous one truncates the stale tail instead of
// leaving it dangling.
type CSVTarget struct {
	path    string
	headers []string
	rows    [][]string
	log     *logger.Logger
}

// NewCSVTarget creates the output directory and binds the tab file
func NewCSVTarget(dir, tab string) (*CSVTarget, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewSync("sync", "create csv output directory", err)
	}
	return &CSVTarget{
		path: filepath.Join(dir, tab+".csv"),
		log:  logger.ForSync(),
	}, nil
}

// WriteHeaders sets the header row. Data rows already flushed in this
// run are preserved.
func (t *CSVTarget) WriteHeaders(_ context.Context, columns []string) error {
	t.headers = append([]string(nil), columns...)
	return t.flush()
}

// WriteRows appends rows to the data block and rewrites the file
func (t *CSVTarget) WriteRows(_ context.Context, rows [][]string) error {
	t.rows = append(t.rows, rows...)
	if err := t.flush(); err != nil {
		return err
	}
	t.log.Debug().
		Int("appended", len(rows)).
		Int("total", len(t.rows)).
		Str("path", t.path).
		Msg("flushed rows")
	return nil
}

// Close rewrites the grid a final time
func (t *CSVTarget) Close() error {
	return t.flush()
}

func (t *CSVTarget) flush() error {
	f, err := os.Create(t.path)
	if err != nil {
		return errors.NewSync("sync", "open csv file", err)
	}

	w := csv.NewWriter(f)
	if len(t.headers) > 0 {
		if err := w.Write(t.headers); err != nil {
			f.Close()
			return errors.NewSync("sync", "write csv header", err)
		}
	}
	if err := w.WriteAll(t.rows); err != nil {
		f.Close()
		return errors.NewSync("sync", "write csv rows", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.NewSync("sync", "flush csv", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewSync("sync", "close csv file", err)
	}
	return nil
}
