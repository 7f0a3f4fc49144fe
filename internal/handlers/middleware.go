package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"drog/internal/cms"
	"drog/internal/services"
)

const (
	profileCookie = "drog_profile"
	profileMaxAge = 3600 * 24 * 365
	visitorKey    = "visitor"
)

// VisitorMiddleware, ziyaretçi profilini çerezden okur ya da yenisini oluşturur.
func (h *Handler) VisitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID, _ := c.Cookie(profileCookie)
		if _, err := uuid.Parse(profileID); err != nil {
			profileID = uuid.New().String()
			h.log.Debug("new visitor profile", "profile", profileID)
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(profileCookie, profileID, profileMaxAge, "/", "", h.opts.CookieSecure, true)
		c.Set(visitorKey, h.visitors.Get(profileID))
		c.Next()
	}
}

func visitor(c *gin.Context) *services.Visitor {
	return c.MustGet(visitorKey).(*services.Visitor)
}

// language, ziyaretçinin dil tercihini döndürür.
func (h *Handler) language(c *gin.Context) string {
	if v, ok := c.Get(visitorKey); ok {
		return v.(*services.Visitor).Prefs.Get().Language
	}
	return h.opts.DefaultLanguage
}

// requestContext, istemci IP'sini ve varsa oturum token'ını taşıyan context döndürür.
func requestContext(c *gin.Context) context.Context {
	ctx := services.WithClientIP(c.Request.Context(), c.ClientIP())
	if v, ok := c.Get(visitorKey); ok {
		if token := v.(*services.Visitor).Session.Session().Token; token != "" {
			ctx = cms.WithToken(ctx, token)
		}
	}
	return ctx
}

// safeRedirect, yalnızca site içi yolları kabul eder.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	return target
}

// authenticate, oturumu CMS'e karşı doğrular; geçersizse giriş sayfasına yönlendirir.
func (h *Handler) authenticate(c *gin.Context) bool {
	session := visitor(c).Session
	if !session.IsAuthenticated() {
		h.redirectToLogin(c)
		return false
	}
	if _, err := session.CheckAuth(requestContext(c)); err != nil {
		h.log.Info("session dropped", "profile", visitor(c).ID, "error", err)
		h.redirectToLogin(c)
		return false
	}
	return true
}

// ProtectedMiddleware, oturumu doğrular; yoksa giriş sayfasına yönlendirir.
func (h *Handler) ProtectedMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.authenticate(c) {
			c.Next()
		}
	}
}

func (h *Handler) redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/login?redirect="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

// AdminMiddleware, korumalı rotaya ek olarak admin rolünü ister.
func (h *Handler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.authenticate(c) {
			return
		}
		vis := visitor(c)
		if !vis.Session.IsAdmin() {
			user := vis.Session.Session().User
			details := "path=" + c.Request.URL.Path
			if user != nil {
				details += " user=" + user.Username
			}
			h.security.LogSecurityEvent(services.EventAdminDenied, details, c.ClientIP())
			h.fail(c, http.StatusForbidden, codeForbidden)
			return
		}
		c.Next()
	}
}

// GuestOnlyMiddleware, giriş yapmış admini panele yönlendirir.
func (h *Handler) GuestOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if visitor(c).Session.IsAdmin() {
			c.Redirect(http.StatusSeeOther, "/admin")
			c.Abort()
			return
		}
		c.Next()
	}
}
