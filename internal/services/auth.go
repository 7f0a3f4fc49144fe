package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"drog/internal/cms"
	"drog/internal/logger"
	"drog/internal/models"
	"drog/internal/storage"
)

// Authenticator, CMS kimlik doğrulama uçları. *cms.Client bunu sağlar.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, *models.User, error)
	Me(ctx context.Context, token string) (*models.User, error)
}

type clientIPKey struct{}

// WithClientIP, güvenlik loguna yazılacak istemci IP'sini context'e ekler.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// SessionGuard, bir ziyaretçinin oturumunu (token + profil) tutar.
type SessionGuard struct {
	mu        sync.RWMutex
	token     string
	user      *models.User
	bridge    *storage.Bridge
	auth      Authenticator
	adminRole string
	security  *SecurityLogger
	log       logger.Logger
}

// NewSessionGuard, kayıtlı oturumu bridge'den yükler.
func NewSessionGuard(bridge *storage.Bridge, auth Authenticator, adminRole string, security *SecurityLogger, log logger.Logger) *SessionGuard {
	if log == nil {
		log = logger.Nop{}
	}
	g := &SessionGuard{
		bridge:    bridge,
		auth:      auth,
		adminRole: adminRole,
		security:  security,
		log:       log,
	}
	g.token = bridge.LoadString(storage.KeyToken, "")
	g.user = storage.LoadJSON[*models.User](bridge, storage.KeyUser, nil)
	return g
}

// mapLoginError, CMS hatasını oturum hatalarından birine çevirir.
func mapLoginError(err error) error {
	status := cms.StatusOf(err)
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", models.ErrInvalidCredentials, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", models.ErrRateLimited, err)
	case status >= 500:
		return fmt.Errorf("%w: %w", models.ErrServerError, err)
	}
	return fmt.Errorf("%w: %w", models.ErrAuthFailed, err)
}

// Login, kimlik bilgilerini doğrular ve oturumu kaydeder.
func (g *SessionGuard) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, models.ErrMissingCredentials
	}

	token, user, err := g.auth.Login(ctx, identifier, password)
	if err != nil {
		mapped := mapLoginError(err)
		g.security.LogSecurityEvent(EventLoginFailed, "identifier="+identifier+" reason="+err.Error(), clientIP(ctx))
		g.log.Warn("SessionGuard.Login failed", "identifier", identifier, "status", cms.StatusOf(err))
		return nil, mapped
	}
	// /auth/local rolü döndürmez; rol için profil yeniden çekilir.
	if user.Role == "" {
		if me, meErr := g.auth.Me(ctx, token); meErr == nil {
			user = me
		} else {
			g.log.Warn("SessionGuard.Login role lookup failed", "error", meErr)
		}
	}
	if user.Blocked {
		g.security.LogSecurityEvent(EventLoginFailed, "identifier="+identifier+" reason=blocked", clientIP(ctx))
		return nil, models.ErrBlocked
	}

	g.mu.Lock()
	g.token = token
	g.user = user
	g.mu.Unlock()
	g.bridge.SaveString(storage.KeyToken, token)
	storage.SaveJSON(g.bridge, storage.KeyUser, user)

	g.security.LogSecurityEvent(EventLoginSuccess, fmt.Sprintf("user_id=%d role=%s", user.ID, user.Role), clientIP(ctx))
	g.log.Info("SessionGuard.Login", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// CheckAuth, kayıtlı token ile profili yeniler. Token yoksa uzak çağrı yapılmaz.
// Engellenmiş profil ya da başarısız yenileme oturumu kapatır.
func (g *SessionGuard) CheckAuth(ctx context.Context) (*models.User, error) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()
	if token == "" {
		return nil, models.ErrUnauthenticated
	}

	user, err := g.auth.Me(ctx, token)
	if err != nil {
		g.Logout()
		g.security.LogSecurityEvent(EventSessionExpired, "reason="+err.Error(), clientIP(ctx))
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthenticated, err)
	}
	if user.Blocked {
		g.Logout()
		g.security.LogSecurityEvent(EventBlockedEviction, fmt.Sprintf("user_id=%d", user.ID), clientIP(ctx))
		return nil, models.ErrBlocked
	}

	g.mu.Lock()
	g.user = user
	g.mu.Unlock()
	storage.SaveJSON(g.bridge, storage.KeyUser, user)
	return user, nil
}

// Logout, token, profil ve eski bayrakları temizler.
func (g *SessionGuard) Logout() {
	g.mu.Lock()
	g.token = ""
	g.user = nil
	g.mu.Unlock()
	keys := append([]string{storage.KeyToken, storage.KeyUser}, storage.LegacyKeys...)
	g.bridge.Remove(keys...)
}

// Session returns the current session. Token is empty when logged out.
func (g *SessionGuard) Session() models.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := models.Session{Token: g.token}
	if g.user != nil {
		u := *g.user
		s.User = &u
	}
	return s
}

// IsAuthenticated, token ve profil birlikte varsa true döner.
func (g *SessionGuard) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != "" && g.user != nil
}

// HasRole reports whether the logged in user has role name.
func (g *SessionGuard) HasRole(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != "" && g.user != nil && g.user.HasRole(name)
}

// IsAdmin, yapılandırılmış admin rolünü kontrol eder.
func (g *SessionGuard) IsAdmin() bool {
	return g.HasRole(g.adminRole)
}
