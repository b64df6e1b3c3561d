package sync

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readGrid(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVTargetWritesGrid(t *testing.T) {
	dir := t.TempDir()
	target, err := NewCSVTarget(dir, "listings")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, target.WriteHeaders(ctx, []string{"id", "title"}))
	require.NoError(t, target.WriteRows(ctx, [][]string{{"1", "coat"}, {"2", "lamp"}}))
	require.NoError(t, target.WriteRows(ctx, [][]string{{"3", "boots"}}))
	require.NoError(t, target.Close())

	grid := readGrid(t, filepath.Join(dir, "listings.csv"))
	assert.Equal(t, [][]string{
		{"id", "title"},
		{"1", "coat"},
		{"2", "lamp"},
		{"3", "boots"},
	}, grid)
}

// A later run writing fewer rows must not leave the previous run's
// trailing rows behind.
func TestCSVTargetClearsStaleRows(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewCSVTarget(dir, "listings")
	require.NoError(t, err)
	require.NoError(t, first.WriteHeaders(ctx, []string{"id", "title"}))
	require.NoError(t, first.WriteRows(ctx, [][]string{
		{"1", "a"}, {"2", "b"}, {"3", "c"}, {"4", "d"}, {"5", "e"},
	}))
	require.NoError(t, first.Close())

	second, err := NewCSVTarget(dir, "listings")
	require.NoError(t, err)
	require.NoError(t, second.WriteHeaders(ctx, []string{"id", "title"}))
	require.NoError(t, second.WriteRows(ctx, [][]string{{"1", "a"}, {"2", "b"}}))
	require.NoError(t, second.Close())

	grid := readGrid(t, filepath.Join(dir, "listings.csv"))
	assert.Len(t, grid, 3, "header plus exactly the rows of the later run")
	assert.Equal(t, []string{"2", "b"}, grid[2])
}
