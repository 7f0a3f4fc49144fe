package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"drog/internal/logger"
	"drog/internal/models"
)

// CheckoutState, sipariş gönderim akışının durumu.
type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutSubmitting CheckoutState = "submitting"
	CheckoutSucceeded  CheckoutState = "succeeded"
	CheckoutFailed     CheckoutState = "failed"
)

// OrderCreator, siparişi uzak sistemde oluşturur.
type OrderCreator interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
}

// CouponLookup, kod ile kupon bulur.
type CouponLookup interface {
	Get(code string) (models.Coupon, bool)
}

// OrderMailer, sipariş onayı gönderir.
type OrderMailer interface {
	SendOrderConfirmation(order models.Order) error
}

// Quote, ödeme öncesi gösterilen tutar dökümü.
type Quote struct {
	models.CartTotals
	CouponCode string          `json:"coupon_code,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// CheckoutStatus, akışın anlık görüntüsü.
type CheckoutStatus struct {
	State     CheckoutState `json:"state"`
	Order     *models.Order `json:"order,omitempty"`
	LastError error         `json:"-"`
}

// CheckoutFlow, bir ziyaretçinin sipariş gönderimini yönetir:
// idle -> submitting -> succeeded, ya da submitting -> failed -> idle.
type CheckoutFlow struct {
	mu      sync.Mutex
	state   CheckoutState
	order   *models.Order
	lastErr error

	cart     *CartStore
	orders   OrderCreator
	coupons  CouponLookup
	mailer   OrderMailer
	log      logger.Logger
	observer func(from, to CheckoutState)

	spam     *SpamDetector
	security *SecurityLogger
	catalog  ProductCatalog
	history  *OrderHistory
}

// NewCheckoutFlow creates an idle flow. mailer and coupons may be nil.
func NewCheckoutFlow(cart *CartStore, orders OrderCreator, coupons CouponLookup, mailer OrderMailer, log logger.Logger) *CheckoutFlow {
	if log == nil {
		log = logger.Nop{}
	}
	return &CheckoutFlow{
		state:   CheckoutIdle,
		cart:    cart,
		orders:  orders,
		coupons: coupons,
		mailer:  mailer,
		log:     log,
	}
}

// OnTransition, her durum geçişinde çağrılacak fonksiyonu ayarlar.
func (f *CheckoutFlow) OnTransition(fn func(from, to CheckoutState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observer = fn
}

// ScreenNotes, şüpheli sipariş notlarını güvenlik loguna işaretler. Sipariş engellenmez.
func (f *CheckoutFlow) ScreenNotes(spam *SpamDetector, security *SecurityLogger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spam = spam
	f.security = security
}

// PriceFrom, gönderimden önce satırların fiyatını katalogdan yeniden okutur.
func (f *CheckoutFlow) PriceFrom(catalog ProductCatalog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog = catalog
}

// RecordOrders, başarılı siparişleri verilen geçmişe yazar.
func (f *CheckoutFlow) RecordOrders(history *OrderHistory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = history
}

// setState must be called with f.mu held.
func (f *CheckoutFlow) setState(to CheckoutState) {
	from := f.state
	f.state = to
	f.log.Debug("CheckoutFlow transition", "from", from, "to", to)
	if f.observer != nil {
		f.observer(from, to)
	}
}

// Status, akışın anlık durumunu döndürür.
func (f *CheckoutFlow) Status() CheckoutStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return CheckoutStatus{State: f.state, Order: f.order, LastError: f.lastErr}
}

// Reset, başarılı bir siparişten sonra akışı yeniden idle yapar.
func (f *CheckoutFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == CheckoutSubmitting {
		return
	}
	f.order = nil
	f.lastErr = nil
	if f.state != CheckoutIdle {
		f.setState(CheckoutIdle)
	}
}

// ValidateOrderForm, teslimat formunu senkron olarak doğrular.
func ValidateOrderForm(form models.OrderForm) error {
	verr := models.NewValidationError()

	if utf8.RuneCountInString(strings.TrimSpace(form.CustomerName)) < 2 {
		verr.Add("customer_name", "must be at least 2 characters")
	}

	digits := 0
	phoneOK := true
	for _, r := range strings.TrimSpace(form.Phone) {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '+' || r == '-' || r == '(' || r == ')':
		default:
			phoneOK = false
		}
	}
	if !phoneOK || digits < 10 {
		verr.Add("phone", "must contain at least 10 digits and only digits, spaces, + - ( )")
	}

	if utf8.RuneCountInString(strings.TrimSpace(form.Address)) < 10 {
		verr.Add("address", "must be at least 10 characters")
	}

	if !form.PaymentMethod.Valid() {
		verr.Add("payment_method", "unknown payment method")
	}

	if email := strings.TrimSpace(form.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			verr.Add("email", "invalid email address")
		}
	}
	return verr.OrNil()
}

// resolveCoupon, kodu doğrular. Boş kod kuponsuz demektir.
func (f *CheckoutFlow) resolveCoupon(code string) (*models.Coupon, error) {
	code = models.NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	if f.coupons == nil {
		return nil, nil
	}
	c, ok := f.coupons.Get(code)
	if !ok || !c.Active {
		verr := models.NewValidationError()
		verr.Add("coupon", "unknown or inactive coupon")
		return nil, verr
	}
	return &c, nil
}

func (f *CheckoutFlow) quote(lines []models.CartLine, method models.PaymentMethod, coupon *models.Coupon) Quote {
	q := Quote{CartTotals: computeTotals(lines, f.cart.shipping, method), Discount: decimal.Zero}
	if coupon != nil {
		q.CouponCode = coupon.Code
		q.Discount = Discount(*coupon, lines)
	}
	q.Total = q.Payable.Sub(q.Discount)
	return q
}

// Quote, verilen ödeme yöntemi ve kupon için tutarı hesaplar.
func (f *CheckoutFlow) Quote(method models.PaymentMethod, couponCode string) (Quote, error) {
	coupon, err := f.resolveCoupon(couponCode)
	if err != nil {
		return Quote{}, err
	}
	return f.quote(f.cart.Lines(), method, coupon), nil
}

// submission, kilit dışında yürütülen gönderim adımının girdileri.
type submission struct {
	form     models.OrderForm
	lines    []models.CartLine
	coupon   *models.Coupon
	catalog  ProductCatalog
	spam     *SpamDetector
	security *SecurityLogger
}

// Submit, formu doğrular ve siparişi gönderir. Doğrulama hatasında uzak çağrı yapılmaz ve
// durum değişmez. Başarıda gönderilen satırlar sepetten düşülür; hatada sepet olduğu gibi kalır.
func (f *CheckoutFlow) Submit(ctx context.Context, form models.OrderForm) (*models.Order, error) {
	f.mu.Lock()
	if f.state == CheckoutSubmitting {
		f.mu.Unlock()
		return nil, models.ErrSubmitInProgress
	}

	lines := f.cart.Lines()
	err := ValidateOrderForm(form)
	if err == nil && len(lines) == 0 {
		err = fmt.Errorf("checkout: %w", models.ErrEmptyCart)
	}
	var coupon *models.Coupon
	if err == nil {
		coupon, err = f.resolveCoupon(form.CouponCode)
	}
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}

	sub := submission{
		form:     form,
		lines:    lines,
		coupon:   coupon,
		catalog:  f.catalog,
		spam:     f.spam,
		security: f.security,
	}
	history, mailer := f.history, f.mailer
	f.order = nil
	f.lastErr = nil
	f.setState(CheckoutSubmitting)
	f.mu.Unlock()

	order, submitted, err := f.send(ctx, sub)

	f.mu.Lock()
	if err != nil {
		f.lastErr = err
		f.setState(CheckoutFailed)
		f.setState(CheckoutIdle)
		f.mu.Unlock()
		f.log.Warn("CheckoutFlow.Submit failed", "error", err)
		return nil, err
	}
	f.cart.Deduct(submitted)
	f.order = order
	f.setState(CheckoutSucceeded)
	f.mu.Unlock()

	f.log.Info("CheckoutFlow.Submit succeeded", "order_id", order.ID, "document_id", order.DocumentID)
	if history != nil {
		history.Record(*order)
	}
	if mailer != nil && order.Email != "" {
		if mailErr := mailer.SendOrderConfirmation(*order); mailErr != nil {
			f.log.Warn("order confirmation mail failed", "order_id", order.ID, "error", mailErr)
		}
	}
	return order, nil
}

// send, satırları katalog fiyatına göre yeniden kurar, taslağı oluşturur ve siparişi gönderir.
// Dönen satırlar siparişe giren satırlardır.
func (f *CheckoutFlow) send(ctx context.Context, sub submission) (*models.Order, []models.CartLine, error) {
	lines := sub.lines
	if sub.catalog != nil {
		repriced, dropped, err := RepriceLines(ctx, sub.catalog, lines)
		if err != nil {
			return nil, nil, err
		}
		if dropped > 0 {
			f.log.Warn("CheckoutFlow.Submit dropped stale lines", "dropped", dropped)
		}
		if len(repriced) == 0 {
			return nil, nil, fmt.Errorf("checkout: %w", models.ErrEmptyCart)
		}
		lines = repriced
	}

	// Kargo ücreti gönderim anındaki ödeme yöntemine göre hesaplanır.
	q := f.quote(lines, sub.form.PaymentMethod, sub.coupon)
	draft := buildDraft(sub.form, lines, q)

	if sub.spam != nil && draft.Notes != "" && sub.spam.IsSpam(draft.Notes) {
		sub.security.LogSecurityEvent(EventSuspiciousOrder, "client_ref="+draft.ClientRef, clientIP(ctx))
	}

	f.log.Info("CheckoutFlow.Submit", "client_ref", draft.ClientRef, "items", q.ItemCount, "total", q.Total.String())
	order, err := f.orders.CreateOrder(ctx, draft)
	if err != nil {
		return nil, nil, fmt.Errorf("create order: %w", err)
	}
	return order, lines, nil
}

func buildDraft(form models.OrderForm, lines []models.CartLine, q Quote) models.OrderDraft {
	items := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	return models.OrderDraft{
		ClientRef:     uuid.New().String(),
		CustomerName:  strings.TrimSpace(form.CustomerName),
		Phone:         strings.TrimFunc(form.Phone, unicode.IsSpace),
		Address:       strings.TrimSpace(form.Address),
		Email:         strings.TrimSpace(form.Email),
		Notes:         strings.TrimSpace(form.Notes),
		Items:         items,
		Subtotal:      q.Subtotal,
		Discount:      q.Discount,
		ShippingFee:   q.ShippingFee,
		TotalPrice:    q.Total,
		PaymentMethod: form.PaymentMethod,
		CouponCode:    q.CouponCode,
		Status:        models.OrderPending,
	}
}
