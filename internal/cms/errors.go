package cms

import (
	"errors"
	"fmt"
	"net/http"

	"drog/internal/models"
)

var (
	// ErrUnreachable, CMS'e bağlanılamadığında (DNS, bağlantı reddi, zaman aşımı) döner.
	ErrUnreachable = errors.New("cms unreachable")
	// ErrMalformed, yanıt beklenen {data: ...} zarfında değilse döner.
	ErrMalformed = errors.New("malformed cms response")
)

// APIError, CMS çağrısının başarısızlığını taşır.
type APIError struct {
	Op      string // e.g. "cms.UpdateProduct"
	Status  int    // HTTP status, 0 for transport failures
	Name    string // CMS error name (ValidationError, ForbiddenError, ...)
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": request failed"
}

// Unwrap, 404 yanıtlarını models.ErrNotFound olarak gösterir.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return models.ErrNotFound
	}
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
