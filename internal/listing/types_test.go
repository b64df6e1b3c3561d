package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Earlier strategies are more trusted: merging never overwrites a field
// already populated.
func TestPartialMergePriority(t *testing.T) {
	p := Partial{Title: "A"}
	p.Merge(Partial{Title: "B", Price: "10"})

	assert.Equal(t, "A", p.Title)
	assert.Equal(t, "10", p.Price)
}

func TestPartialMergeFillsAllFields(t *testing.T) {
	var p Partial
	p.Merge(Partial{
		ID: "1", Title: "t", Price: "2", Currency: "EUR", Status: "active",
		Category: "c", Tags: "x", URL: "u", Image: "i", Description: "d",
		Brand: "b", Size: "s",
	})

	assert.False(t, p.IsEmpty())
	assert.Equal(t, "b", p.Brand)
	assert.Equal(t, "s", p.Size)
	assert.Equal(t, "active", p.Status)
}

func TestRecordRowMatchesColumns(t *testing.T) {
	rec := Record{ID: "1", Title: "t", URL: "u", Timestamp: "ts"}
	row := rec.Row()

	assert.Len(t, row, len(Columns()))
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "ts", row[len(row)-1])
}

func TestRecordIsStub(t *testing.T) {
	assert.True(t, Record{ID: "1", URL: "u"}.IsStub())
	assert.False(t, Record{Title: "x"}.IsStub())
	assert.False(t, Record{Price: "9"}.IsStub())
}
