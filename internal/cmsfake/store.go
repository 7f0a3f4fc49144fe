// Package cmsfake, geliştirme ve testler için bellekte çalışan Strapi benzeri bir CMS sağlar.
package cmsfake

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"drog/internal/logger"
)

var (
	errNotFound     = errors.New("not found")
	errInvalidInput = errors.New("invalid input")
)

type category struct {
	ID         int
	DocumentID string
	Name       string
	Slug       string
}

type asset struct {
	ID   int
	Name string
	URL  string
}

type product struct {
	ID          int
	DocumentID  string
	Name        string
	Slug        string
	Price       decimal.Decimal
	OldPrice    *decimal.Decimal
	Quantity    int
	Sizes       []string
	Colors      []string
	Description string
	CategoryID  int
	ImageID     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type orderLine struct {
	ProductID int             `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type order struct {
	ID            int             `json:"id"`
	DocumentID    string          `json:"documentId"`
	ClientRef     string          `json:"clientRef"`
	CustomerName  string          `json:"customerName"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Email         string          `json:"email,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Items         []orderLine     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	PaymentMethod string          `json:"paymentMethod"`
	CouponCode    string          `json:"couponCode,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	stockDeducted bool
}

type user struct {
	ID           int
	Email        string
	Username     string
	PasswordHash string
	Role         string
	Blocked      bool
	Confirmed    bool
}

// Server, bellekteki CMS verisini tutar.
type Server struct {
	mu         sync.RWMutex
	categories []category
	products   []product
	orders     []order
	users      []user
	assets     []asset
	tokens     map[string]int
	apiToken   string
	adminRole  string
	nextID     map[string]int
	now        func() time.Time
	log        logger.Logger
}

// New, boş bir sahte CMS oluşturur. apiToken boş değilse sunucu tarafı token olarak kabul edilir.
func New(apiToken string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop{}
	}
	return &Server{
		tokens:    make(map[string]int),
		apiToken:  apiToken,
		adminRole: "Admin",
		nextID:    make(map[string]int),
		now:       time.Now,
		log:       log,
	}
}

// id must be called with s.mu held.
func (s *Server) id(kind string) int {
	s.nextID[kind]++
	return s.nextID[kind]
}

func newDocumentID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:24]
}

// AddCategory, yeni bir kategori ekler ve id'sini döndürür.
func (s *Server) AddCategory(name, slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := category{ID: s.id("category"), DocumentID: newDocumentID(), Name: name, Slug: slug}
	s.categories = append(s.categories, c)
	return c.ID
}

// ProductSeed, AddProduct için alanlar.
type ProductSeed struct {
	Name        string
	Slug        string
	Price       int64
	OldPrice    int64
	Quantity    int
	Sizes       []string
	Colors      []string
	Description string
	CategoryID  int
	ImageURL    string
}

// AddProduct, tohum ürünü ekler ve id'sini döndürür.
func (s *Server) AddProduct(p ProductSeed) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	np := product{
		ID:          s.id("product"),
		DocumentID:  newDocumentID(),
		Name:        p.Name,
		Slug:        p.Slug,
		Price:       decimal.NewFromInt(p.Price),
		Quantity:    p.Quantity,
		Sizes:       p.Sizes,
		Colors:      p.Colors,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.OldPrice > 0 {
		old := decimal.NewFromInt(p.OldPrice)
		np.OldPrice = &old
	}
	if p.ImageURL != "" {
		a := asset{ID: s.id("asset"), Name: p.Slug, URL: p.ImageURL}
		s.assets = append(s.assets, a)
		np.ImageID = a.ID
	}
	s.products = append(s.products, np)
	return np.ID
}

// AddUser, parolayı bcrypt ile hashleyip kullanıcı ekler.
func (s *Server) AddUser(email, username, password, role string) (int, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) || strings.EqualFold(u.Username, username) {
			return 0, fmt.Errorf("user %q: %w", email, errInvalidInput)
		}
	}
	u := user{
		ID:           s.id("user"),
		Email:        email,
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
		Confirmed:    true,
	}
	s.users = append(s.users, u)
	return u.ID, nil
}

// SetBlocked, kullanıcının engel durumunu değiştirir.
func (s *Server) SetBlocked(userID int, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == userID {
			s.users[i].Blocked = blocked
			return nil
		}
	}
	return errNotFound
}

// authenticate, kimlik bilgilerini doğrular ve yeni bir token verir.
func (s *Server) authenticate(identifier, password string) (string, user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if !strings.EqualFold(u.Email, identifier) && !strings.EqualFold(u.Username, identifier) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return "", user{}, errInvalidInput
		}
		token := uuid.New().String()
		s.tokens[token] = u.ID
		return token, u, nil
	}
	return "", user{}, errInvalidInput
}

func (s *Server) userByToken(token string) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return user{}, false
	}
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return user{}, false
}

func matchRef(ref string, id int, documentID string) bool {
	return ref == documentID || ref == strconv.Itoa(id)
}

func (s *Server) categoryByID(id int) *category {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return &s.categories[i]
		}
	}
	return nil
}

func (s *Server) assetByID(id int) *asset {
	for i := range s.assets {
		if s.assets[i].ID == id {
			return &s.assets[i]
		}
	}
	return nil
}

func (s *Server) productIndex(ref string) int {
	for i, p := range s.products {
		if matchRef(ref, p.ID, p.DocumentID) {
			return i
		}
	}
	return -1
}

func (s *Server) orderIndex(ref string) int {
	for i, o := range s.orders {
		if matchRef(ref, o.ID, o.DocumentID) {
			return i
		}
	}
	return -1
}

// productInput, ürün oluşturma/güncelleme gövdesi.
type productInput struct {
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice"`
	Quantity    int              `json:"quantity"`
	Sizes       []string         `json:"sizes"`
	Colors      []string         `json:"colors"`
	Description string           `json:"description"`
	Category    int              `json:"category"`
	Image       int              `json:"image"`
}

// validateProduct must be called with s.mu held. skipID is the product being updated.
func (s *Server) validateProduct(in productInput, skipID int) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Slug) == "" {
		return fmt.Errorf("name and slug are required: %w", errInvalidInput)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("price must be positive: %w", errInvalidInput)
	}
	if in.Category != 0 && s.categoryByID(in.Category) == nil {
		return fmt.Errorf("unknown category %d: %w", in.Category, errInvalidInput)
	}
	for _, p := range s.products {
		if p.ID != skipID && p.Slug == in.Slug {
			return fmt.Errorf("slug %q must be unique: %w", in.Slug, errInvalidInput)
		}
	}
	return nil
}

func (s *Server) createProduct(in productInput) (product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateProduct(in, 0); err != nil {
		return product{}, err
	}
	now := s.now()
	p := product{
		ID:          s.id("product"),
		DocumentID:  newDocumentID(),
		Name:        in.Name,
		Slug:        in.Slug,
		Price:       in.Price,
		OldPrice:    in.OldPrice,
		Quantity:    in.Quantity,
		Sizes:       in.Sizes,
		Colors:      in.Colors,
		Description: in.Description,
		CategoryID:  in.Category,
		ImageID:     in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.products = append(s.products, p)
	return p, nil
}

func (s *Server) updateProduct(ref string, in productInput) (product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(ref)
	if i < 0 {
		return product{}, errNotFound
	}
	if err := s.validateProduct(in, s.products[i].ID); err != nil {
		return product{}, err
	}
	p := &s.products[i]
	p.Name, p.Slug, p.Price, p.OldPrice = in.Name, in.Slug, in.Price, in.OldPrice
	p.Quantity, p.Sizes, p.Colors, p.Description = in.Quantity, in.Sizes, in.Colors, in.Description
	p.CategoryID = in.Category
	if in.Image != 0 {
		p.ImageID = in.Image
	}
	p.UpdatedAt = s.now()
	return *p, nil
}

func (s *Server) deleteProduct(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(ref)
	if i < 0 {
		return errNotFound
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return nil
}

// createOrder, stok kontrolü yapar ve siparişi kaydeder. Stok onayda düşer.
func (s *Server) createOrder(in order) (order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(in.Items) == 0 {
		return order{}, fmt.Errorf("order has no items: %w", errInvalidInput)
	}
	for _, item := range in.Items {
		i := s.productIndex(strconv.Itoa(item.ProductID))
		if i < 0 {
			return order{}, fmt.Errorf("product %d not found: %w", item.ProductID, errInvalidInput)
		}
		if s.products[i].Quantity < item.Quantity {
			return order{}, fmt.Errorf("insufficient stock for %s (have %d, want %d): %w",
				s.products[i].Name, s.products[i].Quantity, item.Quantity, errInvalidInput)
		}
	}
	// Aynı clientRef ile gelen tekrar, ilk kaydı döndürür.
	if in.ClientRef != "" {
		for _, o := range s.orders {
			if o.ClientRef == in.ClientRef {
				return o, nil
			}
		}
	}
	now := s.now()
	in.ID = s.id("order")
	in.DocumentID = newDocumentID()
	if in.Status == "" {
		in.Status = "pending"
	}
	in.CreatedAt = now
	in.UpdatedAt = now
	s.orders = append(s.orders, in)
	return in, nil
}

func (s *Server) listOrders() []order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order, len(s.orders))
	copy(out, s.orders)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Server) getOrder(ref string) (order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.orderIndex(ref)
	if i < 0 {
		return order{}, false
	}
	return s.orders[i], true
}

// updateOrderStatus, onayda stoku düşürür, iptalde geri ekler.
func (s *Server) updateOrderStatus(ref, status string) (order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.orderIndex(ref)
	if i < 0 {
		return order{}, errNotFound
	}
	o := &s.orders[i]
	o.Status = status
	o.UpdatedAt = s.now()

	switch {
	case status == "confirmed" && !o.stockDeducted:
		s.adjustStock(o.Items, -1)
		o.stockDeducted = true
		s.log.Info("cmsfake: stock deducted", "order_id", o.ID)
	case status == "cancelled" && o.stockDeducted:
		s.adjustStock(o.Items, 1)
		o.stockDeducted = false
		s.log.Info("cmsfake: stock restored", "order_id", o.ID)
	}
	return *o, nil
}

// adjustStock must be called with s.mu held.
func (s *Server) adjustStock(items []orderLine, sign int) {
	for _, item := range items {
		for i := range s.products {
			if s.products[i].ID == item.ProductID {
				s.products[i].Quantity += sign * item.Quantity
				break
			}
		}
	}
}

func (s *Server) deleteOrder(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.orderIndex(ref)
	if i < 0 {
		return errNotFound
	}
	s.orders = append(s.orders[:i], s.orders[i+1:]...)
	return nil
}

func (s *Server) addAsset(name string) asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := asset{ID: s.id("asset"), Name: name, URL: "/uploads/" + uuid.New().String()[:8] + "_" + name}
	s.assets = append(s.assets, a)
	return a
}

// ProductQuantity returns the stock of product id, or -1.
func (s *Server) ProductQuantity(id int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p.Quantity
		}
	}
	return -1
}

// OrderCount returns the number of stored orders.
func (s *Server) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
