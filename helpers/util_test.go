package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://market.example/item/1", StripQuery("https://market.example/item/1?ref=grid&src=x"))
	assert.Equal(t, "https://market.example/item/1", StripQuery("https://market.example/item/1#photos"))
	assert.Equal(t, "https://market.example/item/1", StripQuery("https://market.example/item/1"))
	assert.Equal(t, "", StripQuery("?only-query"))
}
