package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"drog/internal/logger"
	"drog/internal/models"
)

// CatalogBackend, admin mağazasının ihtiyaç duyduğu CMS işlemleri. *cms.Client bunu sağlar.
type CatalogBackend interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	CreateProduct(ctx context.Context, f models.ProductForm) (*models.Product, error)
	UpdateProduct(ctx context.Context, target models.Product, f models.ProductForm) (*models.Product, error)
	DeleteProduct(ctx context.Context, target models.Product) error
	ListCategories(ctx context.Context) ([]models.Category, error)

	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, ref string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, target models.Order, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, target models.Order) error

	Upload(ctx context.Context, filename string, r io.Reader) (*models.Asset, error)
}

// ProductRef, bir ürünü id, documentId ya da slug ile tanımlar.
type ProductRef struct {
	ID         int
	DocumentID string
	Slug       string
}

// ParseProductRef, URL parçasını ProductRef'e çevirir: sayıysa id, değilse slug ya da documentId.
func ParseProductRef(s string) ProductRef {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil && id > 0 {
		return ProductRef{ID: id}
	}
	return ProductRef{DocumentID: s, Slug: s}
}

// ProductFilter, ürün listesini kategori ve arama metnine göre süzer.
type ProductFilter struct {
	Category string
	Query    string
}

// FilterProducts returns the products matching f.
func FilterProducts(products []models.Product, f ProductFilter) []models.Product {
	category := strings.ToLower(strings.TrimSpace(f.Category))
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if category != "" && (p.Category == nil || strings.ToLower(p.Category.Slug) != category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AdminStore, admin paneli için ürün ve sipariş önbelleğini tutar.
// Önbellek yalnızca uzak işlem başarılı olduktan sonra değişir.
type AdminStore struct {
	backend CatalogBackend
	log     logger.Logger

	mu         sync.RWMutex
	products   []models.Product
	orders     []models.Order
	categories []models.Category
	revisions  map[string]uint64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewAdminStore creates an empty store. Call Load to fill it.
func NewAdminStore(backend CatalogBackend, log logger.Logger) *AdminStore {
	if log == nil {
		log = logger.Nop{}
	}
	return &AdminStore{
		backend:   backend,
		log:       log,
		revisions: make(map[string]uint64),
		locks:     make(map[string]*sync.Mutex),
	}
}

func productKey(id int) string { return "product:" + strconv.Itoa(id) }
func orderKey(id int) string   { return "order:" + strconv.Itoa(id) }

// lock, aynı varlık üzerindeki mutasyonları sıraya sokar.
func (s *AdminStore) lock(key string) func() {
	s.locksMu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// bump must be called with s.mu held.
func (s *AdminStore) bump(key string) {
	s.revisions[key]++
}

// Revision returns how many mutations were applied to the entity identified by key
// ("product:<id>" or "order:<id>").
func (s *AdminStore) Revision(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revisions[key]
}

// ProductRevision is Revision for a product id.
func (s *AdminStore) ProductRevision(id int) uint64 { return s.Revision(productKey(id)) }

// OrderRevision is Revision for an order id.
func (s *AdminStore) OrderRevision(id int) uint64 { return s.Revision(orderKey(id)) }

// Load, ürünleri, siparişleri ve kategorileri çekip önbelleği tamamen değiştirir.
// Başarısız olan koleksiyonun önbelleği boş kalır.
func (s *AdminStore) Load(ctx context.Context) error {
	products, perr := s.backend.ListProducts(ctx)
	if perr != nil {
		s.log.Warn("AdminStore.Load products failed", "error", perr)
		products = nil
		perr = fmt.Errorf("load products: %w", perr)
	}
	orders, oerr := s.backend.ListOrders(ctx)
	if oerr != nil {
		s.log.Warn("AdminStore.Load orders failed", "error", oerr)
		orders = nil
		oerr = fmt.Errorf("load orders: %w", oerr)
	}
	categories, cerr := s.backend.ListCategories(ctx)
	if cerr != nil {
		s.log.Warn("AdminStore.Load categories failed", "error", cerr)
		categories = nil
		cerr = fmt.Errorf("load categories: %w", cerr)
	}

	s.mu.Lock()
	s.products = products
	s.orders = orders
	s.categories = categories
	s.mu.Unlock()

	s.log.Info("AdminStore loaded", "products", len(products), "orders", len(orders), "categories", len(categories))
	return errors.Join(perr, oerr, cerr)
}

// Refetch is Load under the name the admin panel uses after an external change.
func (s *AdminStore) Refetch(ctx context.Context) error {
	return s.Load(ctx)
}

// Products, önbellekteki ürünlerin süzülmüş kopyasını döndürür.
func (s *AdminStore) Products(f ProductFilter) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterProducts(s.products, f)
}

// Categories returns a copy of the cached categories.
func (s *AdminStore) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Orders returns a copy of the cached orders, newest first as delivered by the CMS.
func (s *AdminStore) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// ValidateProduct, ürün formunu doğrular.
func ValidateProduct(f models.ProductForm) error {
	verr := models.NewValidationError()
	if strings.TrimSpace(f.Name) == "" {
		verr.Add("name", "required")
	}
	if !f.Price.IsPositive() {
		verr.Add("price", "must be greater than zero")
	}
	if len(f.Sizes) == 0 {
		verr.Add("sizes", "at least one size is required")
	}
	if f.CategoryID <= 0 {
		verr.Add("category_id", "required")
	}
	if f.Quantity < 0 {
		verr.Add("quantity", "must not be negative")
	}
	return verr.OrNil()
}

// Slugify, isimden URL dostu bir slug üretir. ASCII harf içermeyen isimler
// "product-<kısa uuid>" alır.
func Slugify(name string) string {
	var b strings.Builder
	hasLetter := false
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z':
			hasLetter = true
			fallthrough
		case r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	if !hasLetter {
		return "product-" + uuid.New().String()[:8]
	}
	return b.String()
}

// CreateProduct, ürünü doğrular, gerekirse slug üretir ve CMS'te oluşturur.
func (s *AdminStore) CreateProduct(ctx context.Context, f models.ProductForm) (*models.Product, error) {
	if err := ValidateProduct(f); err != nil {
		return nil, err
	}
	f.Name = strings.TrimSpace(f.Name)
	if strings.TrimSpace(f.Slug) == "" {
		f.Slug = Slugify(f.Name)
	}

	created, err := s.backend.CreateProduct(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.mu.Lock()
	s.products = append(s.products, *created)
	s.bump(productKey(created.ID))
	s.mu.Unlock()

	s.log.Info("AdminStore.CreateProduct", "id", created.ID, "slug", created.Slug)
	return created, nil
}

func (s *AdminStore) cachedProduct(ref ProductRef) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if ref.ID != 0 && p.ID == ref.ID {
			return p, true
		}
		if ref.DocumentID != "" && p.DocumentID == ref.DocumentID {
			return p, true
		}
	}
	return models.Product{}, false
}

// resolveProduct, mutasyon hedefini bulan tek fonksiyondur. Önbellekteki sunucu kimliği
// tercih edilir; yoksa slug ile kanonik kayıt CMS'ten yeniden çekilir.
func (s *AdminStore) resolveProduct(ctx context.Context, ref ProductRef) (models.Product, error) {
	if p, ok := s.cachedProduct(ref); ok {
		return p, nil
	}
	if ref.Slug != "" {
		p, err := s.backend.FindProductBySlug(ctx, ref.Slug)
		if err != nil {
			return models.Product{}, err
		}
		return *p, nil
	}
	return models.Product{}, fmt.Errorf("product %d: %w", ref.ID, models.ErrNotFound)
}

// UpdateProduct, hedefi çözer, CMS'te günceller ve önbellekteki kaydı değiştirir.
func (s *AdminStore) UpdateProduct(ctx context.Context, ref ProductRef, f models.ProductForm) (*models.Product, error) {
	if err := ValidateProduct(f); err != nil {
		return nil, err
	}
	target, err := s.resolveProduct(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	unlock := s.lock(productKey(target.ID))
	defer unlock()

	f.Name = strings.TrimSpace(f.Name)
	if strings.TrimSpace(f.Slug) == "" {
		f.Slug = target.Slug
	}
	updated, err := s.backend.UpdateProduct(ctx, target, f)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.mu.Lock()
	replaced := false
	for i := range s.products {
		if s.products[i].ID == target.ID {
			s.products[i] = *updated
			replaced = true
			break
		}
	}
	if !replaced {
		s.products = append(s.products, *updated)
	}
	s.bump(productKey(target.ID))
	s.mu.Unlock()

	s.log.Info("AdminStore.UpdateProduct", "id", target.ID)
	return updated, nil
}

// DeleteProduct, hedefi çözer, CMS'te siler ve önbellekten çıkarır.
func (s *AdminStore) DeleteProduct(ctx context.Context, ref ProductRef) error {
	target, err := s.resolveProduct(ctx, ref)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	unlock := s.lock(productKey(target.ID))
	defer unlock()

	if err := s.backend.DeleteProduct(ctx, target); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.mu.Lock()
	kept := s.products[:0]
	for _, p := range s.products {
		if p.ID != target.ID {
			kept = append(kept, p)
		}
	}
	s.products = kept
	s.bump(productKey(target.ID))
	s.mu.Unlock()

	s.log.Info("AdminStore.DeleteProduct", "id", target.ID)
	return nil
}

// resolveOrder, siparişi önce önbellekte id/documentId ile, yoksa CMS'te arar.
func (s *AdminStore) resolveOrder(ctx context.Context, ref string) (models.Order, error) {
	ref = strings.TrimSpace(ref)
	id, _ := strconv.Atoi(ref)
	s.mu.RLock()
	for _, o := range s.orders {
		if (id != 0 && o.ID == id) || (ref != "" && o.DocumentID == ref) {
			s.mu.RUnlock()
			return o, nil
		}
	}
	s.mu.RUnlock()
	if ref == "" {
		return models.Order{}, fmt.Errorf("order: %w", models.ErrNotFound)
	}
	o, err := s.backend.GetOrder(ctx, ref)
	if err != nil {
		return models.Order{}, err
	}
	return *o, nil
}

// UpdateOrderStatus, siparişin durumunu kanonik kelimelerden birine çevirir.
func (s *AdminStore) UpdateOrderStatus(ctx context.Context, ref, status string) (*models.Order, error) {
	st, ok := models.ParseOrderStatus(status)
	if !ok {
		verr := models.NewValidationError()
		verr.Add("status", "unknown order status")
		return nil, verr
	}
	target, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	unlock := s.lock(orderKey(target.ID))
	defer unlock()

	updated, err := s.backend.UpdateOrderStatus(ctx, target, st)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.mu.Lock()
	for i := range s.orders {
		if s.orders[i].ID == target.ID {
			s.orders[i] = *updated
			break
		}
	}
	s.bump(orderKey(target.ID))
	s.mu.Unlock()

	s.log.Info("AdminStore.UpdateOrderStatus", "id", target.ID, "status", st)
	return updated, nil
}

// DeleteOrder, siparişi CMS'ten ve önbellekten siler.
func (s *AdminStore) DeleteOrder(ctx context.Context, ref string) error {
	target, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	unlock := s.lock(orderKey(target.ID))
	defer unlock()

	if err := s.backend.DeleteOrder(ctx, target); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	s.mu.Lock()
	kept := s.orders[:0]
	for _, o := range s.orders {
		if o.ID != target.ID {
			kept = append(kept, o)
		}
	}
	s.orders = kept
	s.bump(orderKey(target.ID))
	s.mu.Unlock()

	s.log.Info("AdminStore.DeleteOrder", "id", target.ID)
	return nil
}

// UploadImage, dosyayı CMS medya kütüphanesine yükler.
func (s *AdminStore) UploadImage(ctx context.Context, filename string, r io.Reader) (*models.Asset, error) {
	if strings.TrimSpace(filename) == "" {
		verr := models.NewValidationError()
		verr.Add("file", "required")
		return nil, verr
	}
	asset, err := s.backend.Upload(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	return asset, nil
}
