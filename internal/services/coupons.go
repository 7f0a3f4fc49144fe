package services

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"drog/internal/logger"
	"drog/internal/models"
	"drog/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// CouponStore, admin kuponlarını yalnızca bridge üzerinde tutar; uzak bir karşılığı yoktur.
type CouponStore struct {
	mu      sync.Mutex
	coupons []models.Coupon
	bridge  *storage.Bridge
	log     logger.Logger
}

// NewCouponStore, kuponları bridge'den yükler.
func NewCouponStore(bridge *storage.Bridge, log logger.Logger) *CouponStore {
	if log == nil {
		log = logger.Nop{}
	}
	stored := storage.LoadJSON(bridge, storage.KeyCoupons, []models.Coupon{})
	coupons := make([]models.Coupon, 0, len(stored))
	for _, c := range stored {
		c.Code = models.NormalizeCode(c.Code)
		if c.Code == "" {
			continue
		}
		coupons = upsertCoupon(coupons, c)
	}
	return &CouponStore{coupons: coupons, bridge: bridge, log: log}
}

func upsertCoupon(list []models.Coupon, c models.Coupon) []models.Coupon {
	for i := range list {
		if list[i].Code == c.Code {
			list[i] = c
			return list
		}
	}
	return append(list, c)
}

func validateCoupon(c models.Coupon) error {
	verr := models.NewValidationError()
	if c.Code == "" {
		verr.Add("code", "required")
	}
	switch c.Type {
	case models.DiscountPercent:
		if c.Value.GreaterThan(hundred) {
			verr.Add("value", "percent must be at most 100")
		}
	case models.DiscountFixed:
	default:
		verr.Add("type", "must be percent or fixed")
	}
	if !c.Value.IsPositive() {
		verr.Add("value", "must be positive")
	}
	return verr.OrNil()
}

func (s *CouponStore) persist() {
	storage.SaveJSON(s.bridge, storage.KeyCoupons, s.coupons)
}

// Add, kuponu ekler; aynı kod varsa (büyük/küçük harf farkı gözetmeden) üzerine yazar.
func (s *CouponStore) Add(c models.Coupon) (models.Coupon, error) {
	c.Code = models.NormalizeCode(c.Code)
	if err := validateCoupon(c); err != nil {
		return models.Coupon{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons = upsertCoupon(s.coupons, c)
	s.persist()
	s.log.Info("CouponStore.Add", "code", c.Code)
	return c, nil
}

// Update, tam kod eşleşmesiyle kuponu değiştirir. Kod değiştirilebilir; yeni kod başka bir
// kuponun kodu ise o kupon yerini alır.
func (s *CouponStore) Update(code string, c models.Coupon) (models.Coupon, error) {
	code = models.NormalizeCode(code)
	c.Code = models.NormalizeCode(c.Code)
	if c.Code == "" {
		c.Code = code
	}
	if err := validateCoupon(c); err != nil {
		return models.Coupon{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.coupons {
		if s.coupons[i].Code == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Coupon{}, fmt.Errorf("coupon %q: %w", code, models.ErrNotFound)
	}
	s.coupons[idx] = c
	if c.Code != code {
		// Yeniden adlandırılan kupon başka bir kodla çakışıyorsa tek kayıt kalsın.
		kept := s.coupons[:0]
		for i, existing := range s.coupons {
			if i != idx && existing.Code == c.Code {
				continue
			}
			kept = append(kept, existing)
		}
		s.coupons = kept
	}
	s.persist()
	return c, nil
}

// Delete, kuponu siler.
func (s *CouponStore) Delete(code string) error {
	code = models.NormalizeCode(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.coupons {
		if s.coupons[i].Code == code {
			s.coupons = append(s.coupons[:i], s.coupons[i+1:]...)
			s.persist()
			return nil
		}
	}
	return fmt.Errorf("coupon %q: %w", code, models.ErrNotFound)
}

// Get, koda göre kuponu döndürür.
func (s *CouponStore) Get(code string) (models.Coupon, bool) {
	code = models.NormalizeCode(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coupons {
		if c.Code == code {
			return c, true
		}
	}
	return models.Coupon{}, false
}

// List, kuponların kopyasını döndürür.
func (s *CouponStore) List() []models.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Coupon, len(s.coupons))
	copy(out, s.coupons)
	return out
}

// Discount, kuponun verilen satırlara uygulanan indirimini hesaplar.
// Yüzde kuponlar uygun satırların toplamının yüzdesini, sabit kuponlar uygun toplamı aşmayan
// tutarı düşer.
func Discount(c models.Coupon, lines []models.CartLine) decimal.Decimal {
	eligible := decimal.Zero
	for _, l := range lines {
		if c.AppliesTo(l.ProductID) {
			eligible = eligible.Add(l.LineTotal())
		}
	}
	if !eligible.IsPositive() {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch c.Type {
	case models.DiscountPercent:
		d = eligible.Mul(c.Value).Div(hundred).Round(2)
	case models.DiscountFixed:
		d = c.Value
	default:
		return decimal.Zero
	}
	if d.GreaterThan(eligible) {
		d = eligible
	}
	return d
}
