package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"drog/internal/logger"
	"drog/internal/models"
	"drog/internal/storage"
)

// Desteklenen tercih değerleri.
var (
	themes    = []string{"light", "dark"}
	languages = []string{"en", "ar"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// PreferenceStore, tema ve dil tercihini bridge'de tutar.
type PreferenceStore struct {
	bridge          *storage.Bridge
	defaultLanguage string
}

// Get, kayıtlı tercihleri döndürür. Geçersiz kayıtlar varsayılana düşer.
func (p *PreferenceStore) Get() models.Preferences {
	prefs := models.Preferences{
		Theme:    p.bridge.LoadString(storage.KeyTheme, "light"),
		Language: p.bridge.LoadString(storage.KeyLanguage, p.defaultLanguage),
	}
	if !oneOf(prefs.Theme, themes) {
		prefs.Theme = "light"
	}
	if !oneOf(prefs.Language, languages) {
		prefs.Language = p.defaultLanguage
	}
	return prefs
}

// Set, boş olmayan alanları doğrulayıp kaydeder.
func (p *PreferenceStore) Set(in models.Preferences) (models.Preferences, error) {
	theme := strings.ToLower(strings.TrimSpace(in.Theme))
	lang := strings.ToLower(strings.TrimSpace(in.Language))
	verr := models.NewValidationError()
	if theme != "" && !oneOf(theme, themes) {
		verr.Add("theme", "must be light or dark")
	}
	if lang != "" && !oneOf(lang, languages) {
		verr.Add("language", "must be en or ar")
	}
	if err := verr.OrNil(); err != nil {
		return p.Get(), err
	}
	if theme != "" {
		p.bridge.SaveString(storage.KeyTheme, theme)
	}
	if lang != "" {
		p.bridge.SaveString(storage.KeyLanguage, lang)
	}
	return p.Get(), nil
}

// Visitor, bir ziyaretçi profiline ait store'ları bir arada tutar.
type Visitor struct {
	ID       string
	Cart     *CartStore
	Checkout *CheckoutFlow
	Session  *SessionGuard
	Prefs    *PreferenceStore
	Orders   *OrderHistory
}

// VisitorDeps, ziyaretçi store'larının paylaştığı bağımlılıklar.
type VisitorDeps struct {
	Bridge          *storage.Bridge
	Shipping        ShippingPolicy
	Orders          OrderCreator
	Catalog         ProductCatalog
	Coupons         CouponLookup
	Mailer          OrderMailer
	Auth            Authenticator
	AdminRole       string
	DefaultLanguage string
	Security        *SecurityLogger
	Spam            *SpamDetector
	Log             logger.Logger

	// IdleTTL sonrası kullanılmayan profiller bellekten atılır; durumları bridge'de kalır.
	IdleTTL     time.Duration
	MaxVisitors int
}

// Varsayılan bellek sınırları.
const (
	DefaultVisitorIdleTTL = 30 * time.Minute
	DefaultMaxVisitors    = 10000
)

type visitorEntry struct {
	vis  *Visitor
	seen time.Time
}

// Visitors, profil id'sine göre ziyaretçileri bellekte tutar. Boşta kalan profiller atılır ve
// bir sonraki istekte bridge'den yeniden yüklenir.
type Visitors struct {
	mu       sync.Mutex
	deps     VisitorDeps
	visitors map[string]*visitorEntry
	now      func() time.Time
}

// NewVisitors creates an empty registry.
func NewVisitors(deps VisitorDeps) *Visitors {
	if deps.Log == nil {
		deps.Log = logger.Nop{}
	}
	if deps.DefaultLanguage == "" {
		deps.DefaultLanguage = "ar"
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = DefaultVisitorIdleTTL
	}
	if deps.MaxVisitors <= 0 {
		deps.MaxVisitors = DefaultMaxVisitors
	}
	return &Visitors{deps: deps, visitors: make(map[string]*visitorEntry), now: time.Now}
}

// Get, profilin store'larını döndürür; bellekte yoksa kalıcı durumdan yükler.
func (v *Visitors) Get(profileID string) *Visitor {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	if e, ok := v.visitors[profileID]; ok {
		e.seen = now
		return e.vis
	}

	vis := v.load(profileID)
	v.visitors[profileID] = &visitorEntry{vis: vis, seen: now}
	if len(v.visitors) > v.deps.MaxVisitors {
		v.evictOldest(profileID)
	}
	return vis
}

func (v *Visitors) load(profileID string) *Visitor {
	d := v.deps
	log := d.Log.With("profile", profileID)
	bridge := d.Bridge.Scope(profileID)
	cart := NewCartStore(bridge, d.Shipping, log)
	history := NewOrderHistory(bridge, log)
	checkout := NewCheckoutFlow(cart, d.Orders, d.Coupons, d.Mailer, log)
	if d.Spam != nil {
		checkout.ScreenNotes(d.Spam, d.Security)
	}
	if d.Catalog != nil {
		checkout.PriceFrom(d.Catalog)
	}
	checkout.RecordOrders(history)
	return &Visitor{
		ID:       profileID,
		Cart:     cart,
		Checkout: checkout,
		Session:  NewSessionGuard(bridge, d.Auth, d.AdminRole, d.Security, log),
		Prefs:    &PreferenceStore{bridge: bridge, defaultLanguage: d.DefaultLanguage},
		Orders:   history,
	}
}

// busy reports whether the visitor has an order in flight. Must be called with v.mu held.
func busy(e *visitorEntry) bool {
	return e.vis.Checkout.Status().State == CheckoutSubmitting
}

// evictOldest, keep dışındaki en uzun süredir görülmeyen profili atar. Must be called with v.mu held.
func (v *Visitors) evictOldest(keep string) {
	var oldestID string
	var oldest time.Time
	for id, e := range v.visitors {
		if id == keep || busy(e) {
			continue
		}
		if oldestID == "" || e.seen.Before(oldest) {
			oldestID, oldest = id, e.seen
		}
	}
	if oldestID != "" {
		delete(v.visitors, oldestID)
		v.deps.Log.Debug("Visitors evicted", "profile", oldestID, "reason", "capacity")
	}
}

// Sweep, IdleTTL'den uzun süredir görülmeyen profilleri bellekten atar ve atılan sayıyı döndürür.
func (v *Visitors) Sweep() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	cutoff := v.now().Add(-v.deps.IdleTTL)
	n := 0
	for id, e := range v.visitors {
		if e.seen.Before(cutoff) && !busy(e) {
			delete(v.visitors, id)
			n++
		}
	}
	return n
}

// Run, ctx bitene kadar her interval'de Sweep çağırır.
func (v *Visitors) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := v.Sweep(); n > 0 {
				v.deps.Log.Debug("Visitors.Sweep", "evicted", n)
			}
		}
	}
}

// Len returns the number of visitors held in memory.
func (v *Visitors) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.visitors)
}
