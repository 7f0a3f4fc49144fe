package cms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drog/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(srv.URL, "service-token", srv.Client(), nil), srv
}

func TestClient_ListProducts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("populate"))
		assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))
		io.WriteString(w, `{"data":[
			{"id":1,"attributes":{"name":"A","slug":"a","price":100,"sizes":["S"]}},
			{"id":2,"name":"B","slug":"b","price":"200.5","sizes":"M,L"}
		],"meta":{"pagination":{"total":2}}}`)
	})

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "a", products[0].Slug)
	assert.True(t, products[1].Price.Equal(decimal.RequireFromString("200.5")))
	assert.Equal(t, []string{"M", "L"}, products[1].Sizes)
}

func TestClient_VisitorTokenOverridesAPIToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer visitor", r.Header.Get("Authorization"))
		io.WriteString(w, `{"data":[]}`)
	})
	_, err := c.ListCategories(WithToken(context.Background(), "visitor"))
	require.NoError(t, err)
}

func TestClient_FindProductBySlug_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ghost", r.URL.Query().Get("filters[slug][$eq]"))
		io.WriteString(w, `{"data":[]}`)
	})
	_, err := c.FindProductBySlug(context.Background(), "ghost")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestClient_UpdateProductUsesDocumentID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/products/doc-7", r.URL.Path)
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "New", body.Data["name"])
		assert.Equal(t, float64(3), body.Data["category"])
		io.WriteString(w, `{"data":{"id":7,"documentId":"doc-7","name":"New","slug":"new","price":10,"sizes":["S"]}}`)
	})

	p, err := c.UpdateProduct(context.Background(), models.Product{ID: 7, DocumentID: "doc-7"}, models.ProductForm{
		Name: "New", Slug: "new", Price: decimal.NewFromInt(10), Sizes: []string{"S"}, CategoryID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"data":null,"error":{"status":403,"name":"ForbiddenError","message":"Forbidden"}}`)
	})

	_, err := c.ListOrders(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "ForbiddenError", apiErr.Name)
	assert.Equal(t, "Forbidden", apiErr.Message)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))
	assert.False(t, errors.Is(err, models.ErrNotFound))
}

func TestClient_404IsNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"data":null,"error":{"status":404,"name":"NotFoundError","message":"Not Found"}}`)
	})
	_, err := c.GetOrder(context.Background(), "12")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestClient_MalformedEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>gateway</html>`)
	})
	_, err := c.ListProducts(context.Background())
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewWithHTTPClient(srv.URL, "", srv.Client(), nil)
	srv.Close()

	_, err := c.ListProducts(context.Background())
	assert.True(t, IsUnreachable(err))
	assert.Equal(t, 0, StatusOf(err))
}

func TestClient_CreateOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-1", body.Data["clientRef"])
		assert.Equal(t, "cash_on_delivery", body.Data["paymentMethod"])
		assert.Equal(t, float64(1800), body.Data["totalPrice"])
		assert.NotContains(t, body.Data, "id")
		io.WriteString(w, `{"data":{"id":31,"documentId":"o31","attributes":{"customerName":"Mona","status":"Pending","totalPrice":1800,
			"items":[{"productId":1,"name":"Hoodie","size":"M","quantity":2,"price":450}]}}}`)
	})

	o, err := c.CreateOrder(context.Background(), models.OrderDraft{
		ClientRef:     "ref-1",
		CustomerName:  "Mona",
		PaymentMethod: models.PaymentCashOnDelivery,
		TotalPrice:    decimal.NewFromInt(1800),
		Status:        models.OrderPending,
		Items:         []models.OrderLine{{ProductID: 1, Name: "Hoodie", Size: "M", Quantity: 2, Price: decimal.NewFromInt(450)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 31, o.ID)
	assert.Equal(t, "o31", o.DocumentID)
	assert.Equal(t, models.OrderPending, o.Status)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
}

func TestClient_LoginAndMe(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/local":
			assert.Empty(t, r.Header.Get("Authorization"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"data":null,"error":{"status":400,"name":"ValidationError","message":"Invalid identifier or password"}}`)
				return
			}
			io.WriteString(w, `{"jwt":"tok","user":{"id":5,"email":"a@b.c","username":"amr","blocked":false,"confirmed":true}}`)
		case "/api/users/me":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			io.WriteString(w, `{"id":5,"email":"a@b.c","username":"amr","blocked":true,"role":{"name":"Admin","type":"admin"}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	token, user, err := c.Login(context.Background(), "amr", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "amr", user.Username)

	_, _, err = c.Login(context.Background(), "amr", "wrong")
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	me, err := c.Me(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, me.Blocked)
	assert.Equal(t, "Admin", me.Role)
}

func TestClient_Upload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("files")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "hoodie.jpg", hdr.Filename)
		assert.Equal(t, "jpeg-bytes", string(data))
		io.WriteString(w, `[{"id":12,"url":"/uploads/hoodie.jpg"}]`)
	})

	asset, err := c.Upload(context.Background(), "hoodie.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 12, asset.ID)
	assert.True(t, strings.HasSuffix(asset.URL, "/uploads/hoodie.jpg"))
	assert.True(t, strings.HasPrefix(asset.URL, "http://"))
}
