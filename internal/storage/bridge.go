package storage

import (
	"context"
	"encoding/json"
	"time"

	"drog/internal/logger"
)

// Depolama anahtarları.
const (
	KeyCart     = "cart"
	KeyCoupons  = "admin_coupons"
	KeyToken    = "token"
	KeyUser     = "user"
	KeyTheme    = "theme"
	KeyLanguage = "language"
	KeyOrders   = "orders"
)

// LegacyKeys, eski istemcilerden kalan ve çıkışta temizlenen bayraklar.
var LegacyKeys = []string{"isAuthenticated", "isAdmin", "adminSession"}

// Bridge, Backend üzerine JSON kodlama ve hata yutma ekler.
// Hiçbir metodu hata döndürmez: okuma hatasında fallback döner, yazma hatasında yazma düşürülür
// ve logger'a uyarı yazılır.
type Bridge struct {
	backend Backend
	prefix  string
	timeout time.Duration
	log     logger.Logger
}

// NewBridge creates a bridge over backend.
func NewBridge(backend Backend, timeout time.Duration, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop{}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Bridge{backend: backend, timeout: timeout, log: log}
}

// Scope, anahtarları "profile:<id>:" önekiyle ayıran bir bridge döndürür.
// Her ziyaretçi profili kendi alanını görür.
func (b *Bridge) Scope(profileID string) *Bridge {
	return &Bridge{
		backend: b.backend,
		prefix:  b.prefix + "profile:" + profileID + ":",
		timeout: b.timeout,
		log:     b.log,
	}
}

func (b *Bridge) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

// LoadString, düz string değer okur.
func (b *Bridge) LoadString(key, fallback string) string {
	ctx, cancel := b.ctx()
	defer cancel()
	v, ok, err := b.backend.Get(ctx, b.prefix+key)
	if err != nil {
		b.log.Warn("storage read failed", "key", b.prefix+key, "error", err)
		return fallback
	}
	if !ok {
		return fallback
	}
	return v
}

// SaveString, düz string değer yazar.
func (b *Bridge) SaveString(key, value string) {
	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.backend.Set(ctx, b.prefix+key, value); err != nil {
		b.log.Warn("storage write dropped", "key", b.prefix+key, "error", err)
	}
}

// Remove, anahtarı siler.
func (b *Bridge) Remove(keys ...string) {
	ctx, cancel := b.ctx()
	defer cancel()
	for _, key := range keys {
		if err := b.backend.Delete(ctx, b.prefix+key); err != nil {
			b.log.Warn("storage delete dropped", "key", b.prefix+key, "error", err)
		}
	}
}

// LoadJSON, anahtardaki JSON değeri çözer. Değer yoksa, okunamazsa ya da bozuksa fallback döner.
func LoadJSON[T any](b *Bridge, key string, fallback T) T {
	ctx, cancel := b.ctx()
	defer cancel()
	raw, ok, err := b.backend.Get(ctx, b.prefix+key)
	if err != nil {
		b.log.Warn("storage read failed", "key", b.prefix+key, "error", err)
		return fallback
	}
	if !ok || raw == "" {
		return fallback
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		b.log.Warn("storage value is corrupt, using fallback", "key", b.prefix+key, "error", err)
		return fallback
	}
	return v
}

// SaveJSON, değeri JSON olarak yazar.
func SaveJSON[T any](b *Bridge, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		b.log.Warn("storage encode failed", "key", b.prefix+key, "error", err)
		return
	}
	b.SaveString(key, string(data))
}
