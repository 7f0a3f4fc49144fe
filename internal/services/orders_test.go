package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"drog/internal/models"
)

func TestOrderHistory_RecordAndOwns(t *testing.T) {
	bridge := testBridge()
	h := NewOrderHistory(bridge, nil)
	h.Record(models.Order{ID: 7, DocumentID: "doc-7"})

	assert.True(t, h.Owns("7"))
	assert.True(t, h.Owns("doc-7"))
	assert.False(t, h.Owns("8"))
	assert.False(t, h.Owns(""))

	// Başka bir store aynı bridge'den geçmişi okur.
	assert.True(t, NewOrderHistory(bridge, nil).Owns("doc-7"))
}

func TestOrderHistory_IsCapped(t *testing.T) {
	h := NewOrderHistory(testBridge(), nil)
	for i := 1; i <= maxOrderHistory+5; i++ {
		h.Record(models.Order{ID: i})
	}
	refs := h.List()
	assert.Len(t, refs, maxOrderHistory)
	assert.Equal(t, maxOrderHistory+5, refs[0].ID)
	assert.False(t, h.Owns("1"))
}

func TestSamePhone(t *testing.T) {
	assert.True(t, SamePhone("+20 100 123 4567", "201001234567"))
	assert.False(t, SamePhone("+20 100 123 4567", "201001234568"))
	assert.False(t, SamePhone("", ""))
}
