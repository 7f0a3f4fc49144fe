// Package cms, headless CMS'in REST API'si için istemcidir.
// Tüm yanıtlar {data: ...} zarfından çıkarılıp normalize edilir ve kanonik modellere çevrilir.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"drog/internal/logger"
	"drog/internal/models"
)

type tokenKey struct{}

// WithToken, isteğe ziyaretçinin bearer token'ını ekler.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey{}).(string)
	return v
}

// Client, CMS istemcisi.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	log        logger.Logger
}

// New, otelhttp ile sarılmış bir transport kullanan istemci oluşturur.
func New(baseURL, apiToken string, timeout time.Duration, log logger.Logger) *Client {
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return NewWithHTTPClient(baseURL, apiToken, httpClient, log)
}

// NewWithHTTPClient uses the given http.Client as is.
func NewWithHTTPClient(baseURL, apiToken string, httpClient *http.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: httpClient,
		log:        log,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) absoluteURL(u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return c.baseURL + "/" + strings.TrimLeft(u, "/")
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	token := tokenFrom(ctx)
	if token == "" {
		token = c.apiToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send, isteği gönderir ve 2xx dışındaki yanıtları APIError'a çevirir.
func (c *Client) send(op string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("cms request failed", "op", op, "error", err)
		return nil, &APIError{Op: op, Message: err.Error(), Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: op, Status: resp.StatusCode, Message: err.Error(), Err: ErrMalformed}
	}
	c.log.Debug("cms request", "op", op, "method", req.Method, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			apiErr.Name = env.Error.Name
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}
	return body, nil
}

// do, JSON gövdeli bir istek gönderir; out verilmişse zarfın data alanını normalize edip çözer.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(map[string]interface{}{"data": in})
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.send(op, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Op: op, Status: http.StatusOK, Message: err.Error(), Err: ErrMalformed}
	}
	if len(env.Data) == 0 {
		return &APIError{Op: op, Status: http.StatusOK, Message: "missing data", Err: ErrMalformed}
	}
	if err := decodeNormalized(env.Data, out); err != nil {
		return &APIError{Op: op, Status: http.StatusOK, Message: err.Error(), Err: ErrMalformed}
	}
	return nil
}

// entityPath, kaydın adresini döndürür: documentId varsa o, yoksa sayısal id.
func entityPath(collection string, id int, documentID string) string {
	if documentID != "" {
		return "/api/" + collection + "/" + url.PathEscape(documentID)
	}
	return "/api/" + collection + "/" + strconv.Itoa(id)
}

func listQuery() url.Values {
	q := url.Values{}
	q.Set("populate", "*")
	q.Set("pagination[pageSize]", "100")
	return q
}

// --- Products ---

// ListProducts, tüm ürünleri getirir.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var wire []wireProduct
	if err := c.do(ctx, "cms.ListProducts", http.MethodGet, "/api/products", listQuery(), nil, &wire); err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(wire))
	for _, w := range wire {
		products = append(products, c.toProduct(w))
	}
	return products, nil
}

// FindProductBySlug, slug ile kanonik ürün kaydını getirir. Bulunamazsa models.ErrNotFound.
func (c *Client) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	q := listQuery()
	q.Set("filters[slug][$eq]", slug)
	var wire []wireProduct
	if err := c.do(ctx, "cms.FindProductBySlug", http.MethodGet, "/api/products", q, nil, &wire); err != nil {
		return nil, err
	}
	if len(wire) == 0 {
		return nil, fmt.Errorf("product %q: %w", slug, models.ErrNotFound)
	}
	p := c.toProduct(wire[0])
	return &p, nil
}

// CreateProduct, yeni ürün oluşturur ve CMS'in döndürdüğü kanonik kaydı verir.
func (c *Client) CreateProduct(ctx context.Context, f models.ProductForm) (*models.Product, error) {
	var w wireProduct
	q := url.Values{"populate": {"*"}}
	if err := c.do(ctx, "cms.CreateProduct", http.MethodPost, "/api/products", q, productPayload(f), &w); err != nil {
		return nil, err
	}
	p := c.toProduct(w)
	return &p, nil
}

// UpdateProduct, hedef ürünü günceller.
func (c *Client) UpdateProduct(ctx context.Context, target models.Product, f models.ProductForm) (*models.Product, error) {
	var w wireProduct
	q := url.Values{"populate": {"*"}}
	path := entityPath("products", target.ID, target.DocumentID)
	if err := c.do(ctx, "cms.UpdateProduct", http.MethodPut, path, q, productPayload(f), &w); err != nil {
		return nil, err
	}
	p := c.toProduct(w)
	return &p, nil
}

// DeleteProduct, hedef ürünü siler.
func (c *Client) DeleteProduct(ctx context.Context, target models.Product) error {
	path := entityPath("products", target.ID, target.DocumentID)
	return c.do(ctx, "cms.DeleteProduct", http.MethodDelete, path, nil, nil, nil)
}

// ListCategories, kategorileri getirir.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var wire []wireCategory
	if err := c.do(ctx, "cms.ListCategories", http.MethodGet, "/api/categories", listQuery(), nil, &wire); err != nil {
		return nil, err
	}
	out := make([]models.Category, 0, len(wire))
	for _, w := range wire {
		out = append(out, models.Category{ID: w.ID, DocumentID: w.DocumentID, Name: w.Name, Slug: w.Slug})
	}
	return out, nil
}

// --- Orders ---

// CreateOrder, sipariş taslağını CMS'e gönderir.
func (c *Client) CreateOrder(ctx context.Context, d models.OrderDraft) (*models.Order, error) {
	var w wireOrder
	if err := c.do(ctx, "cms.CreateOrder", http.MethodPost, "/api/orders", nil, orderPayload(d), &w); err != nil {
		return nil, err
	}
	o := toOrder(w)
	return &o, nil
}

// ListOrders, siparişleri en yeniden eskiye getirir.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	q := listQuery()
	q.Set("sort", "createdAt:desc")
	var wire []wireOrder
	if err := c.do(ctx, "cms.ListOrders", http.MethodGet, "/api/orders", q, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(wire))
	for _, w := range wire {
		out = append(out, toOrder(w))
	}
	return out, nil
}

// GetOrder, sayısal id ya da documentId ile siparişi getirir.
func (c *Client) GetOrder(ctx context.Context, ref string) (*models.Order, error) {
	var w wireOrder
	path := "/api/orders/" + url.PathEscape(ref)
	if err := c.do(ctx, "cms.GetOrder", http.MethodGet, path, nil, nil, &w); err != nil {
		return nil, err
	}
	if w.ID == 0 && w.DocumentID == "" {
		return nil, fmt.Errorf("order %q: %w", ref, models.ErrNotFound)
	}
	o := toOrder(w)
	return &o, nil
}

// UpdateOrderStatus, sipariş durumunu değiştirir.
func (c *Client) UpdateOrderStatus(ctx context.Context, target models.Order, status models.OrderStatus) (*models.Order, error) {
	var w wireOrder
	path := entityPath("orders", target.ID, target.DocumentID)
	in := map[string]interface{}{"status": string(status)}
	if err := c.do(ctx, "cms.UpdateOrderStatus", http.MethodPut, path, nil, in, &w); err != nil {
		return nil, err
	}
	o := toOrder(w)
	return &o, nil
}

// DeleteOrder, siparişi siler.
func (c *Client) DeleteOrder(ctx context.Context, target models.Order) error {
	path := entityPath("orders", target.ID, target.DocumentID)
	return c.do(ctx, "cms.DeleteOrder", http.MethodDelete, path, nil, nil, nil)
}

// --- Auth ---

// Login, kimlik bilgilerini CMS'e gönderir ve token + profil döndürür.
func (c *Client) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	const op = "cms.Login"
	b, err := json.Marshal(map[string]string{"identifier": identifier, "password": password})
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/local", nil, bytes.NewReader(b))
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	// Giriş isteği hiçbir zaman token taşımaz.
	req.Header.Del("Authorization")
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.send(op, req)
	if err != nil {
		return "", nil, err
	}
	var resp struct {
		JWT  string          `json:"jwt"`
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.JWT == "" || len(resp.User) == 0 {
		return "", nil, &APIError{Op: op, Status: http.StatusOK, Message: "missing jwt or user", Err: ErrMalformed}
	}
	var w wireUser
	if err := decodeNormalized(resp.User, &w); err != nil {
		return "", nil, &APIError{Op: op, Status: http.StatusOK, Message: err.Error(), Err: ErrMalformed}
	}
	u := toUser(w)
	return resp.JWT, &u, nil
}

// Me, token sahibinin güncel profilini getirir.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	const op = "cms.Me"
	req, err := c.newRequest(WithToken(ctx, token), http.MethodGet, "/api/users/me", url.Values{"populate": {"role"}}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw, err := c.send(op, req)
	if err != nil {
		return nil, err
	}
	// users/me zarfsız döner, bazı kurulumlar {data: ...} ile sarar.
	var env envelope
	if json.Unmarshal(raw, &env) == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		raw = env.Data
	}
	var w wireUser
	if err := decodeNormalized(raw, &w); err != nil {
		return nil, &APIError{Op: op, Status: http.StatusOK, Message: err.Error(), Err: ErrMalformed}
	}
	if w.ID == 0 {
		return nil, &APIError{Op: op, Status: http.StatusOK, Message: "missing user id", Err: ErrMalformed}
	}
	u := toUser(w)
	return &u, nil
}

// --- Upload ---

// Upload, ürün görselini multipart olarak yükler.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.Asset, error) {
	const op = "cms.Upload"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("%s: read file: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", nil, &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.send(op, req)
	if err != nil {
		return nil, err
	}
	var assets []wireAsset
	if err := decodeNormalized(raw, &assets); err != nil {
		return nil, &APIError{Op: op, Status: http.StatusOK, Message: err.Error(), Err: ErrMalformed}
	}
	if len(assets) == 0 {
		return nil, &APIError{Op: op, Status: http.StatusOK, Message: "no asset returned", Err: ErrMalformed}
	}
	return &models.Asset{ID: assets[0].ID, URL: c.absoluteURL(assets[0].URL)}, nil
}

// IsUnreachable reports whether err is a transport failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
