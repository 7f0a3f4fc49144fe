package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drog/internal/models"
)

// LoginPage, giriş formu için gerekli bilgiyi döndürür.
func (h *Handler) LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"fields":   []string{"identifier", "password"},
		"redirect": safeRedirect(c.Query("redirect"), ""),
	})
}

type loginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
	Redirect   string `json:"redirect" form:"redirect"`
}

// HandleLogin, kimlik bilgilerini CMS ile doğrular.
func (h *Handler) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	if req.Redirect == "" {
		req.Redirect = c.Query("redirect")
	}

	session := visitor(c).Session
	user, err := session.Login(requestContext(c), req.Identifier, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	fallback := "/"
	if session.IsAdmin() {
		fallback = "/admin"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"user":     user,
		"admin":    session.IsAdmin(),
		"redirect": safeRedirect(req.Redirect, fallback),
	})
}

func (h *Handler) HandleLogout(c *gin.Context) {
	visitor(c).Session.Logout()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSession, oturumu CMS'ten yenileyerek döndürür.
func (h *Handler) GetSession(c *gin.Context) {
	session := visitor(c).Session
	user, err := session.CheckAuth(requestContext(c))
	if err != nil && !errors.Is(err, models.ErrUnauthenticated) && !errors.Is(err, models.ErrBlocked) {
		h.respondError(c, err)
		return
	}
	body := gin.H{
		"success":       true,
		"authenticated": session.IsAuthenticated(),
		"admin":         session.IsAdmin(),
		"user":          user,
	}
	if errors.Is(err, models.ErrBlocked) {
		body["notice"] = h.notice(c, codeBlocked)
	}
	c.JSON(http.StatusOK, body)
}

// Account, giriş yapmış kullanıcının profilini döndürür.
func (h *Handler) Account(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": visitor(c).Session.Session().User})
}
