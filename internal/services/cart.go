package services

import (
	"sync"

	"github.com/shopspring/decimal"

	"drog/internal/config"
	"drog/internal/logger"
	"drog/internal/models"
	"drog/internal/storage"
)

// ShippingPolicy, kargo ücretinin ne zaman alınacağını belirler.
type ShippingPolicy struct {
	Fee decimal.Decimal
	// WheneverNonEmpty true ise ödeme yönteminden bağımsız olarak boş olmayan her sepette ücret alınır,
	// false ise yalnızca kapıda ödemede.
	WheneverNonEmpty bool
}

// NewShippingPolicy, ayarlardaki politikayı kurar.
func NewShippingPolicy(shop config.ShopConfig) ShippingPolicy {
	return ShippingPolicy{
		Fee:              shop.ShippingFee,
		WheneverNonEmpty: shop.FeePolicy == config.FeeWheneverNonEmpty,
	}
}

// FeeFor, verilen ürün adedi ve ödeme yöntemi için kargo ücretini döndürür.
func (p ShippingPolicy) FeeFor(itemCount int, method models.PaymentMethod) decimal.Decimal {
	if itemCount <= 0 {
		return decimal.Zero
	}
	if p.WheneverNonEmpty || method == models.PaymentCashOnDelivery {
		return p.Fee
	}
	return decimal.Zero
}

// CartStore, bir ziyaretçinin sepetini yönetir. Her değişiklikten sonra sepet bridge'e yazılır.
type CartStore struct {
	mu       sync.Mutex
	lines    []models.CartLine
	bridge   *storage.Bridge
	shipping ShippingPolicy
	log      logger.Logger
}

// NewCartStore, sepeti bridge'den yükler. Bozuk veri boş sepete döner;
// adedi 1'in altında olan satırlar atılır.
func NewCartStore(bridge *storage.Bridge, shipping ShippingPolicy, log logger.Logger) *CartStore {
	if log == nil {
		log = logger.Nop{}
	}
	cs := &CartStore{
		bridge:   bridge,
		shipping: shipping,
		log:      log,
	}
	cs.lines = sanitizeLines(storage.LoadJSON(bridge, storage.KeyCart, []models.CartLine{}))
	log.Debug("CartStore loaded", "lines", len(cs.lines))
	return cs
}

func sanitizeLines(in []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, 0, len(in))
	for _, l := range in {
		if l.Quantity < 1 {
			continue
		}
		out = mergeLine(out, l)
	}
	return out
}

// mergeLine, aynı anahtarlı satır varsa adedini artırır, yoksa sona ekler.
func mergeLine(lines []models.CartLine, line models.CartLine) []models.CartLine {
	key := line.Key()
	for i := range lines {
		if lines[i].Key() == key {
			lines[i].Quantity += line.Quantity
			return lines
		}
	}
	return append(lines, line)
}

func (cs *CartStore) persist() {
	storage.SaveJSON(cs.bridge, storage.KeyCart, cs.lines)
}

func (cs *CartStore) index(key models.CartKey) int {
	for i, l := range cs.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

// Add, sepete ürün ekler. Aynı ürün+beden+renk zaten varsa adet toplanır.
func (cs *CartStore) Add(line models.CartLine) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	cs.lines = mergeLine(cs.lines, line)
	cs.log.Debug("CartStore.Add", "product_id", line.ProductID, "size", line.Size, "quantity", line.Quantity)
	cs.persist()
}

// Remove, satırı siler. Satır yoksa bir şey yapmaz.
func (cs *CartStore) Remove(key models.CartKey) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if i := cs.index(key); i >= 0 {
		cs.lines = append(cs.lines[:i], cs.lines[i+1:]...)
	}
	cs.persist()
}

// Increment, satır adedini bir artırır.
func (cs *CartStore) Increment(key models.CartKey) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if i := cs.index(key); i >= 0 {
		cs.lines[i].Quantity++
	}
	cs.persist()
}

// Decrement, satır adedini bir azaltır; 1'in altına inmez, satırı asla silmez.
func (cs *CartStore) Decrement(key models.CartKey) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if i := cs.index(key); i >= 0 && cs.lines[i].Quantity > 1 {
		cs.lines[i].Quantity--
	}
	cs.persist()
}

// Deduct, gönderilen satırların adedini sepetten düşer. Adedi biten satır silinir;
// bu arada eklenen satırlara ve fazladan eklenen adetlere dokunulmaz.
func (cs *CartStore) Deduct(lines []models.CartLine) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, l := range lines {
		i := cs.index(l.Key())
		if i < 0 {
			continue
		}
		cs.lines[i].Quantity -= l.Quantity
		if cs.lines[i].Quantity < 1 {
			cs.lines = append(cs.lines[:i], cs.lines[i+1:]...)
		}
	}
	cs.persist()
}

// Clear, sepeti boşaltır.
func (cs *CartStore) Clear() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.lines = []models.CartLine{}
	cs.persist()
}

// Replace, sepetin tamamını verilen satırlarla değiştirir (geri yükleme / içe aktarma).
func (cs *CartStore) Replace(lines []models.CartLine) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.lines = sanitizeLines(lines)
	cs.persist()
}

// Lines, satırların bir kopyasını döndürür.
func (cs *CartStore) Lines() []models.CartLine {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]models.CartLine, len(cs.lines))
	copy(out, cs.lines)
	return out
}

// Count, sepetteki toplam ürün adedi.
func (cs *CartStore) Count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	n := 0
	for _, l := range cs.lines {
		n += l.Quantity
	}
	return n
}

// Totals, verilen ödeme yöntemi için toplamları hesaplar. Yan etkisi yoktur.
func (cs *CartStore) Totals(method models.PaymentMethod) models.CartTotals {
	return computeTotals(cs.Lines(), cs.shipping, method)
}

func computeTotals(lines []models.CartLine, shipping ShippingPolicy, method models.PaymentMethod) models.CartTotals {
	t := models.CartTotals{Subtotal: decimal.Zero}
	for _, l := range lines {
		t.ItemCount += l.Quantity
		t.Subtotal = t.Subtotal.Add(l.LineTotal())
	}
	t.ShippingFee = shipping.FeeFor(t.ItemCount, method)
	t.Payable = t.Subtotal.Add(t.ShippingFee)
	return t
}
