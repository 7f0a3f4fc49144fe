package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drog/internal/cms"
	"drog/internal/cmsfake"
	"drog/internal/services"
	"drog/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	fake    *cmsfake.Server
	router  *gin.Engine
	admin   *services.AdminStore
	adminID int
	userID  int
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := cmsfake.New("api-token", nil)
	fake.Seed()
	adminID, err := fake.AddUser("admin@drog.test", "admin", "secret123", "Admin")
	require.NoError(t, err)
	userID, err := fake.AddUser("mona@drog.test", "mona", "secret123", "Authenticated")
	require.NoError(t, err)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	client := cms.New(srv.URL, "api-token", 5*time.Second, nil)
	bridge := storage.NewBridge(storage.NewMemoryBackend(), time.Second, nil)
	coupons := services.NewCouponStore(bridge, nil)
	visitors := services.NewVisitors(services.VisitorDeps{
		Bridge:          bridge,
		Shipping:        services.ShippingPolicy{Fee: decimal.NewFromInt(50)},
		Orders:          client,
		Catalog:         client,
		Coupons:         coupons,
		Auth:            client,
		AdminRole:       "admin",
		DefaultLanguage: "ar",
	})
	admin := services.NewAdminStore(client, nil)
	require.NoError(t, admin.Load(context.Background()))

	h := NewHandler(client, visitors, admin, coupons, nil, Options{DefaultLanguage: "ar", Currency: "EGP"}, nil)
	r := gin.New()
	h.Register(r)
	return &testEnv{fake: fake, router: r, admin: admin, adminID: adminID, userID: userID}
}

// browser keeps cookies between requests like a real client.
type browser struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, router: e.router, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	return b.send(req)
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (b *browser) login(identifier string) {
	b.t.Helper()
	rec := b.do(http.MethodPost, "/login", gin.H{"identifier": identifier, "password": "secret123"})
	require.Equal(b.t, http.StatusOK, rec.Code, rec.Body.String())
}

func validCheckout() gin.H {
	return gin.H{
		"customer_name":  "Mona Adel",
		"phone":          "+20 100 123 4567",
		"address":        "12 Tahrir Street, Cairo",
		"payment_method": "cash_on_delivery",
	}
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	rec := env.browser(t).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestVisitorCookieIsIssuedAndReused(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)

	b.do(http.MethodGet, "/cart/count", nil)
	first := b.cookies[profileCookie]
	require.NotNil(t, first)

	b.do(http.MethodGet, "/cart/count", nil)
	assert.Equal(t, first.Value, b.cookies[profileCookie].Value)
}

func TestListProductsFilter(t *testing.T) {
	env := newEnv(t)
	rec := env.browser(t).do(http.MethodGet, "/products?category=t-shirts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])

	rec = env.browser(t).do(http.MethodGet, "/products/no-such-product", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decode(t, rec)["error"])
}

func TestCartFlow(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/cart/add", gin.H{"slug": "fleece-hoodie", "size": "M", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	totals := decode(t, rec)["totals"].(map[string]interface{})
	assert.Equal(t, float64(2), totals["item_count"])
	assert.Equal(t, float64(900), totals["subtotal"])
	assert.Equal(t, float64(50), totals["shipping_fee"])
	assert.Equal(t, float64(950), totals["payable"])

	rec = b.do(http.MethodGet, "/cart?payment_method=mobile_wallet", nil)
	totals = decode(t, rec)["totals"].(map[string]interface{})
	assert.Equal(t, float64(0), totals["shipping_fee"])

	rec = b.do(http.MethodPost, "/cart/add", gin.H{"slug": "fleece-hoodie", "size": "XXL"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["fields"], "size")

	key := gin.H{"product_id": 3, "size": "M"}
	b.do(http.MethodPost, "/cart/decrement", key)
	b.do(http.MethodPost, "/cart/decrement", key)
	rec = b.do(http.MethodGet, "/cart/count", nil)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	b.do(http.MethodPost, "/cart/remove", key)
	rec = b.do(http.MethodGet, "/cart/count", nil)
	assert.Equal(t, float64(0), decode(t, rec)["count"])

	// Başka bir ziyaretçi ayrı bir sepet görür.
	other := env.browser(t)
	b.do(http.MethodPost, "/cart/add", gin.H{"slug": "logo-cap", "size": "One Size"})
	rec = other.do(http.MethodGet, "/cart/count", nil)
	assert.Equal(t, float64(0), decode(t, rec)["count"])
}

func TestCheckoutInvalidPhoneKeepsCart(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)
	b.do(http.MethodPost, "/cart/add", gin.H{"slug": "fleece-hoodie", "size": "M"})

	form := validCheckout()
	form["phone"] = "123456789"
	rec := b.do(http.MethodPost, "/checkout", form)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, codeValidation, body["error"])
	assert.Contains(t, body["fields"], "phone")
	assert.Equal(t, 0, env.fake.OrderCount())

	rec = b.do(http.MethodGet, "/cart/count", nil)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestCheckoutSuccessEmptiesCart(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)
	b.do(http.MethodPost, "/cart/add", gin.H{"slug": "fleece-hoodie", "size": "M", "quantity": 2})

	rec := b.do(http.MethodPost, "/checkout", validCheckout())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode(t, rec)["order"].(map[string]interface{})
	assert.NotZero(t, order["id"])
	assert.Equal(t, float64(950), order["total_price"])
	assert.Equal(t, 1, env.fake.OrderCount())

	rec = b.do(http.MethodGet, "/cart/count", nil)
	assert.Equal(t, float64(0), decode(t, rec)["count"])

	rec = b.do(http.MethodGet, "/checkout/status", nil)
	assert.Equal(t, "succeeded", decode(t, rec)["state"])

	rec = b.do(http.MethodGet, "/orders/"+order["documentId"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReplaceCartIgnoresClientPrices(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPut, "/cart", gin.H{"items": []gin.H{
		{"product_id": 3, "name": "Free Hoodie", "price": 1, "size": "M", "quantity": 5},
		{"product_id": 999, "price": 1, "size": "M", "quantity": 1},
		{"product_id": 3, "price": 1, "size": "XXL", "quantity": 1},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["dropped"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	line := items[0].(map[string]interface{})
	assert.Equal(t, "Fleece Hoodie", line["name"])
	assert.Equal(t, float64(450), line["price"])
	assert.Equal(t, float64(2250), body["totals"].(map[string]interface{})["subtotal"])

	rec = b.do(http.MethodPost, "/checkout", validCheckout())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode(t, rec)["order"].(map[string]interface{})
	assert.Equal(t, float64(2250), order["subtotal"])
	assert.Equal(t, float64(2300), order["total_price"])
}

func TestTrackOrderNeedsOwnershipOrPhone(t *testing.T) {
	env := newEnv(t)
	shopper := env.browser(t)
	shopper.do(http.MethodPost, "/cart/add", gin.H{"slug": "logo-cap", "size": "One Size"})
	rec := shopper.do(http.MethodPost, "/checkout", validCheckout())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode(t, rec)["order"].(map[string]interface{})
	id := strconv.Itoa(int(order["id"].(float64)))
	doc := order["documentId"].(string)

	assert.Equal(t, http.StatusOK, shopper.do(http.MethodGet, "/orders/"+id, nil).Code)
	rec = shopper.do(http.MethodGet, "/orders", nil)
	assert.Len(t, decode(t, rec)["orders"], 1)

	stranger := env.browser(t)
	tests := []struct {
		name string
		path string
		want int
	}{
		{"numeric id", "/orders/" + id, http.StatusNotFound},
		{"numeric id with phone", "/orders/" + id + "?phone=201001234567", http.StatusNotFound},
		{"document id without phone", "/orders/" + doc, http.StatusNotFound},
		{"document id with wrong phone", "/orders/" + doc + "?phone=201009999999", http.StatusNotFound},
		{"document id with phone", "/orders/" + doc + "?phone=201001234567", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := stranger.do(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusNotFound {
				assert.NotContains(t, rec.Body.String(), "Tahrir")
			}
		})
	}
	rec = stranger.do(http.MethodGet, "/orders", nil)
	assert.Len(t, decode(t, rec)["orders"], 0)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newEnv(t)
	rec := env.browser(t).do(http.MethodPost, "/checkout", validCheckout())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeEmptyCart, decode(t, rec)["error"])
}

func TestCheckoutWithCoupon(t *testing.T) {
	env := newEnv(t)
	admin := env.browser(t)
	admin.login("admin@drog.test")
	rec := admin.do(http.MethodPost, "/admin/coupons", gin.H{"code": "drog10", "type": "percent", "value": 10, "active": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	b := env.browser(t)
	b.do(http.MethodPost, "/cart/add", gin.H{"slug": "fleece-hoodie", "size": "M", "quantity": 2})

	rec = b.do(http.MethodGet, "/checkout/quote?coupon=DROG10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decode(t, rec)["quote"].(map[string]interface{})
	assert.Equal(t, float64(90), quote["discount"])
	assert.Equal(t, float64(860), quote["total"])

	rec = b.do(http.MethodGet, "/checkout/quote?coupon=NOPE", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNoticesFollowLanguagePreference(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/checkout", validCheckout())
	assert.Equal(t, messages["ar"][codeEmptyCart], decode(t, rec)["message"])

	rec = b.do(http.MethodPut, "/preferences", gin.H{"language": "en"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = b.do(http.MethodPost, "/checkout", validCheckout())
	assert.Equal(t, "Your cart is empty.", decode(t, rec)["message"])
}

func TestLoginFailures(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/login", gin.H{"identifier": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeMissingCredentials, decode(t, rec)["error"])

	rec = b.do(http.MethodPost, "/login", gin.H{"identifier": "admin@drog.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeInvalidCredentials, decode(t, rec)["error"])
}

func TestAdminRedirectsGuestToLogin(t *testing.T) {
	env := newEnv(t)
	rec := env.browser(t).do(http.MethodGet, "/admin/products", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fadmin%2Fproducts", rec.Header().Get("Location"))
}

func TestProtectedAccount(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodGet, "/account", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	b.login("mona")
	rec = b.do(http.MethodGet, "/account", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "mona", user["username"])
}

func TestAdminRejectsNonAdmin(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)
	b.login("mona@drog.test")

	rec := b.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeForbidden, decode(t, rec)["error"])

	rec = b.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminLoginRedirectAndGuestOnly(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/login?redirect=//evil.example", gin.H{"identifier": "admin@drog.test", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["admin"])
	assert.Equal(t, "/admin", body["redirect"])

	rec = b.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = b.do(http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decode(t, rec)["products"])
}

func TestAdminProductLifecycle(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)
	b.login("admin@drog.test")

	rec := b.do(http.MethodPost, "/admin/products", gin.H{"name": "", "price": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = b.do(http.MethodPost, "/admin/products", gin.H{
		"name": "Striped Tee", "price": 390, "sizes": []string{"M", "L"}, "category_id": 1, "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode(t, rec)["product"].(map[string]interface{})
	assert.Equal(t, "striped-tee", product["slug"])

	rec = b.do(http.MethodPut, "/admin/products/striped-tee", gin.H{
		"name": "Striped Tee v2", "price": 400, "sizes": []string{"M"}, "category_id": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode(t, rec)["revision"])

	rec = b.do(http.MethodGet, "/admin/products?q=v2", nil)
	products := decode(t, rec)["products"].([]interface{})
	require.Len(t, products, 1)

	rec = b.do(http.MethodDelete, "/admin/products/striped-tee", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = b.do(http.MethodDelete, "/admin/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminOrderStatus(t *testing.T) {
	env := newEnv(t)
	shopper := env.browser(t)
	shopper.do(http.MethodPost, "/cart/add", gin.H{"slug": "logo-cap", "size": "One Size", "quantity": 5})
	rec := shopper.do(http.MethodPost, "/checkout", validCheckout())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	b := env.browser(t)
	b.login("admin@drog.test")
	rec = b.do(http.MethodPost, "/admin/refetch", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["orders"])

	orders := env.admin.Orders()
	require.Len(t, orders, 1)
	id := orders[0].ID

	rec = b.do(http.MethodPut, "/admin/orders/"+strconv.Itoa(id)+"/status", gin.H{"status": "bogus"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = b.do(http.MethodPut, "/admin/orders/"+strconv.Itoa(id)+"/status", gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 55, env.fake.ProductQuantity(4))

	rec = b.do(http.MethodGet, "/admin/orders?status=confirmed", nil)
	assert.Len(t, decode(t, rec)["orders"], 1)

	rec = b.do(http.MethodDelete, "/admin/orders/"+strconv.Itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.fake.OrderCount())
}

func TestBlockedAdminIsEvicted(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)
	b.login("admin@drog.test")
	require.Equal(t, http.StatusOK, b.do(http.MethodGet, "/admin", nil).Code)

	require.NoError(t, env.fake.SetBlocked(env.adminID, true))

	rec := b.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = b.do(http.MethodGet, "/session", nil)
	body := decode(t, rec)
	assert.Equal(t, false, body["authenticated"])
}

func TestAdminUpload(t *testing.T) {
	env := newEnv(t)
	b := env.browser(t)
	b.login("admin@drog.test")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "tee.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := b.send(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	asset := decode(t, rec)["asset"].(map[string]interface{})
	assert.Contains(t, asset["url"], "tee.png")
}
