package services

import (
	"strconv"
	"strings"
	"sync"

	"drog/internal/logger"
	"drog/internal/models"
	"drog/internal/storage"
)

// maxOrderHistory, bir profilde saklanan en fazla sipariş referansı.
const maxOrderHistory = 50

// OrderHistory, ziyaretçinin bu profilden verdiği siparişlerin referanslarını tutar.
// Sipariş takibinde sahiplik kontrolü buna göre yapılır.
type OrderHistory struct {
	mu     sync.Mutex
	refs   []models.OrderRef
	bridge *storage.Bridge
	log    logger.Logger
}

// NewOrderHistory loads the recorded refs from the bridge.
func NewOrderHistory(bridge *storage.Bridge, log logger.Logger) *OrderHistory {
	if log == nil {
		log = logger.Nop{}
	}
	return &OrderHistory{
		refs:   storage.LoadJSON(bridge, storage.KeyOrders, []models.OrderRef{}),
		bridge: bridge,
		log:    log,
	}
}

// Record, siparişi geçmişe ekler. En yeni kayıt başta durur.
func (h *OrderHistory) Record(order models.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ref := models.OrderRef{ID: order.ID, DocumentID: order.DocumentID}
	h.refs = append([]models.OrderRef{ref}, h.refs...)
	if len(h.refs) > maxOrderHistory {
		h.refs = h.refs[:maxOrderHistory]
	}
	storage.SaveJSON(h.bridge, storage.KeyOrders, h.refs)
	h.log.Debug("OrderHistory.Record", "order_id", order.ID)
}

// Owns reports whether ref (numeric id or document id) was placed from this profile.
func (h *OrderHistory) Owns(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.refs {
		if (r.ID != 0 && strconv.Itoa(r.ID) == ref) || (r.DocumentID != "" && r.DocumentID == ref) {
			return true
		}
	}
	return false
}

// List returns a copy of the recorded refs, newest first.
func (h *OrderHistory) List() []models.OrderRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.OrderRef, len(h.refs))
	copy(out, h.refs)
	return out
}

func phoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SamePhone, iki telefonu yalnızca rakamlarına göre karşılaştırır.
func SamePhone(a, b string) bool {
	da := phoneDigits(a)
	return da != "" && da == phoneDigits(b)
}
