package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drog/internal/cms"
	"drog/internal/models"
)

// Bildirim kodları. İstemci bunlara göre davranır; metinler sadece gösterim içindir.
const (
	codeValidation         = "validation_failed"
	codeEmptyCart          = "empty_cart"
	codeSubmitInProgress   = "submit_in_progress"
	codeNotFound           = "not_found"
	codeMissingCredentials = "missing_credentials"
	codeInvalidCredentials = "invalid_credentials"
	codeRateLimited        = "rate_limited"
	codeServerError        = "server_error"
	codeAuthFailed         = "auth_failed"
	codeBlocked            = "account_blocked"
	codeUnauthenticated    = "unauthenticated"
	codeForbidden          = "forbidden"
	codeUnreachable        = "cms_unreachable"
	codeCMSError           = "cms_error"
	codeBadRequest         = "bad_request"
	codeInternal           = "internal_error"
)

var messages = map[string]map[string]string{
	"en": {
		codeValidation:         "Please check the highlighted fields.",
		codeEmptyCart:          "Your cart is empty.",
		codeSubmitInProgress:   "Your order is already being submitted.",
		codeNotFound:           "We could not find what you were looking for.",
		codeMissingCredentials: "Please enter your email and password.",
		codeInvalidCredentials: "Invalid email or password.",
		codeRateLimited:        "Too many attempts. Please try again later.",
		codeServerError:        "The server is having trouble. Please try again later.",
		codeAuthFailed:         "Login failed. Please try again.",
		codeBlocked:            "Your account has been blocked.",
		codeUnauthenticated:    "Please log in to continue.",
		codeForbidden:          "You do not have permission to do that.",
		codeUnreachable:        "The store is temporarily unavailable. Please try again.",
		codeCMSError:           "Something went wrong while saving. Please try again.",
		codeBadRequest:         "The request could not be read.",
		codeInternal:           "An unexpected error occurred.",
	},
	"ar": {
		codeValidation:         "يرجى التحقق من الحقول المحددة.",
		codeEmptyCart:          "سلة التسوق فارغة.",
		codeSubmitInProgress:   "جارٍ إرسال طلبك بالفعل.",
		codeNotFound:           "لم نتمكن من العثور على ما تبحث عنه.",
		codeMissingCredentials: "يرجى إدخال البريد الإلكتروني وكلمة المرور.",
		codeInvalidCredentials: "البريد الإلكتروني أو كلمة المرور غير صحيحة.",
		codeRateLimited:        "محاولات كثيرة جدًا. يرجى المحاولة لاحقًا.",
		codeServerError:        "الخادم يواجه مشكلة. يرجى المحاولة لاحقًا.",
		codeAuthFailed:         "فشل تسجيل الدخول. يرجى المحاولة مرة أخرى.",
		codeBlocked:            "تم حظر حسابك.",
		codeUnauthenticated:    "يرجى تسجيل الدخول للمتابعة.",
		codeForbidden:          "ليس لديك صلاحية للقيام بذلك.",
		codeUnreachable:        "المتجر غير متاح مؤقتًا. يرجى المحاولة مرة أخرى.",
		codeCMSError:           "حدث خطأ أثناء الحفظ. يرجى المحاولة مرة أخرى.",
		codeBadRequest:         "تعذرت قراءة الطلب.",
		codeInternal:           "حدث خطأ غير متوقع.",
	},
}

// message, kodun verilen dildeki metnini döndürür; bilinmeyen dil İngilizceye düşer.
func message(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if text, ok := m[code]; ok {
			return text
		}
	}
	return messages["en"][code]
}

// classify, hatayı HTTP durumuna ve bildirim koduna çevirir.
func classify(err error) (int, string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, codeValidation
	case errors.Is(err, models.ErrEmptyCart):
		return http.StatusBadRequest, codeEmptyCart
	case errors.Is(err, models.ErrSubmitInProgress):
		return http.StatusConflict, codeSubmitInProgress
	case errors.Is(err, models.ErrMissingCredentials):
		return http.StatusBadRequest, codeMissingCredentials
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, codeRateLimited
	case errors.Is(err, models.ErrServerError):
		return http.StatusBadGateway, codeServerError
	case errors.Is(err, models.ErrBlocked):
		return http.StatusForbidden, codeBlocked
	case errors.Is(err, models.ErrAuthFailed):
		return http.StatusUnauthorized, codeAuthFailed
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, codeUnauthenticated
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, cms.ErrUnreachable):
		return http.StatusServiceUnavailable, codeUnreachable
	}
	switch status := cms.StatusOf(err); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return http.StatusForbidden, codeForbidden
	case status == http.StatusBadRequest:
		return http.StatusBadRequest, codeCMSError
	case status != 0:
		return http.StatusBadGateway, codeCMSError
	}
	return http.StatusInternalServerError, codeInternal
}

// notice, kod ve yerelleştirilmiş metinden oluşan hata gövdesi.
func (h *Handler) notice(c *gin.Context, code string) gin.H {
	return gin.H{"success": false, "error": code, "message": message(h.language(c), code)}
}

// fail, kodu verilen durumla döndürür ve isteği sonlandırır.
func (h *Handler) fail(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, h.notice(c, code))
}

// respondError, store hatasını bildirim olarak döndürür. Hatalar yalnızca burada metne dönüşür.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	body := h.notice(c, code)
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	if status >= 500 {
		h.log.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		h.log.Debug("request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}
