package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"drog/internal/models"
	"drog/internal/services"
)

// ListProducts, ürünleri kategori ve arama metnine göre süzerek döndürür.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(requestContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	filtered := services.FilterProducts(products, services.ProductFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "products": filtered, "count": len(filtered)})
}

// GetProduct, slug ile ürün detayını döndürür.
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.catalog.FindProductBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(requestContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": categories})
}

func numericRef(ref string) bool {
	if ref == "" {
		return false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TrackOrder, sipariş takibi. Bu profilden verilen siparişler id ya da documentId ile,
// diğerleri yalnızca documentId ve siparişteki telefon numarasıyla açılır.
// Eşleşmeyen her istek aynı 404 ile döner.
func (h *Handler) TrackOrder(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("id"))
	phone := c.Query("phone")
	owned := visitor(c).Orders.Owns(ref)
	if !owned && (phone == "" || numericRef(ref)) {
		h.fail(c, http.StatusNotFound, codeNotFound)
		return
	}

	order, err := h.catalog.GetOrder(requestContext(c), ref)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !owned && !services.SamePhone(order.Phone, phone) {
		h.log.Info("TrackOrder - phone mismatch", "profile", visitor(c).ID, "ref", ref)
		h.fail(c, http.StatusNotFound, codeNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// ListMyOrders, bu profilden verilen siparişlerin referansları.
func (h *Handler) ListMyOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": visitor(c).Orders.List()})
}

// --- Cart ---

func (h *Handler) paymentMethod(c *gin.Context) models.PaymentMethod {
	if m := models.PaymentMethod(c.Query("payment_method")); m.Valid() {
		return m
	}
	return models.PaymentCashOnDelivery
}

func (h *Handler) cartView(c *gin.Context) gin.H {
	cart := visitor(c).Cart
	return gin.H{
		"success":  true,
		"items":    cart.Lines(),
		"totals":   cart.Totals(h.paymentMethod(c)),
		"currency": h.opts.Currency,
	}
}

func (h *Handler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartView(c))
}

func (h *Handler) GetCartCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": visitor(c).Cart.Count()})
}

type addToCartRequest struct {
	Slug     string `json:"slug" form:"slug" binding:"required"`
	Size     string `json:"size" form:"size"`
	Color    string `json:"color" form:"color"`
	Quantity int    `json:"quantity" form:"quantity"`
}

// AddToCart, ürünü katalogdan okur ve sepete ekler. Fiyat ve isim her zaman CMS'ten gelir.
func (h *Handler) AddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	product, err := h.catalog.FindProductBySlug(requestContext(c), req.Slug)
	if err != nil {
		h.respondError(c, err)
		return
	}

	verr := models.NewValidationError()
	if !product.HasSize(req.Size) {
		verr.Add("size", fmt.Sprintf("must be one of %s", strings.Join(product.Sizes, ", ")))
	}
	if !product.HasColor(req.Color) {
		verr.Add("color", fmt.Sprintf("must be one of %s", strings.Join(product.Colors, ", ")))
	}
	if err := verr.OrNil(); err != nil {
		h.respondError(c, err)
		return
	}

	// Yeni alışveriş, önceki başarılı siparişin ekranını kapatır.
	visitor(c).Checkout.Reset()
	visitor(c).Cart.Add(models.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.ImageURL(),
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	h.log.Debug("AddToCart", "profile", visitor(c).ID, "product", product.ID, "size", req.Size)
	c.JSON(http.StatusOK, h.cartView(c))
}

func (h *Handler) bindKey(c *gin.Context) (models.CartKey, bool) {
	var key models.CartKey
	if err := c.ShouldBind(&key); err != nil || key.ProductID <= 0 {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return key, false
	}
	return key, true
}

func (h *Handler) IncrementCartItem(c *gin.Context) {
	if key, ok := h.bindKey(c); ok {
		visitor(c).Cart.Increment(key)
		c.JSON(http.StatusOK, h.cartView(c))
	}
}

func (h *Handler) DecrementCartItem(c *gin.Context) {
	if key, ok := h.bindKey(c); ok {
		visitor(c).Cart.Decrement(key)
		c.JSON(http.StatusOK, h.cartView(c))
	}
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	if key, ok := h.bindKey(c); ok {
		visitor(c).Cart.Remove(key)
		c.JSON(http.StatusOK, h.cartView(c))
	}
}

func (h *Handler) ClearCart(c *gin.Context) {
	visitor(c).Cart.Clear()
	c.JSON(http.StatusOK, h.cartView(c))
}

type replaceCartLine struct {
	ProductID int    `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// ReplaceCart, sepeti gönderilen satırlarla değiştirir. Satırlardan yalnızca ürün, beden,
// renk ve adet alınır; isim ve fiyat katalogdan okunur, bilinmeyen ürünler atılır.
func (h *Handler) ReplaceCart(c *gin.Context) {
	var req struct {
		Items []replaceCartLine `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	lines := make([]models.CartLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, models.CartLine{
			ProductID: it.ProductID,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
		})
	}
	repriced, dropped, err := services.RepriceLines(requestContext(c), h.catalog, lines)
	if err != nil {
		h.respondError(c, err)
		return
	}
	vis := visitor(c)
	vis.Checkout.Reset()
	vis.Cart.Replace(repriced)
	if dropped > 0 {
		h.log.Info("ReplaceCart - dropped lines", "profile", vis.ID, "dropped", dropped)
	}
	body := h.cartView(c)
	body["dropped"] = dropped
	c.JSON(http.StatusOK, body)
}

// --- Checkout ---

func (h *Handler) CheckoutQuote(c *gin.Context) {
	quote, err := visitor(c).Checkout.Quote(h.paymentMethod(c), c.Query("coupon"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quote": quote, "currency": h.opts.Currency})
}

// HandleCheckout, siparişi doğrular ve gönderir.
func (h *Handler) HandleCheckout(c *gin.Context) {
	var form models.OrderForm
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	vis := visitor(c)
	order, err := vis.Checkout.Submit(services.WithClientIP(c.Request.Context(), c.ClientIP()), form)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info("HandleCheckout - order created", "profile", vis.ID, "order_id", order.ID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// CheckoutStatus, gönderim akışının durumunu ve varsa son hatanın bildirimini döndürür.
func (h *Handler) CheckoutStatus(c *gin.Context) {
	st := visitor(c).Checkout.Status()
	body := gin.H{"success": true, "state": st.State, "order": st.Order}
	if st.LastError != nil {
		_, code := classify(st.LastError)
		body["last_error"] = gin.H{"error": code, "message": message(h.language(c), code)}
	}
	c.JSON(http.StatusOK, body)
}

// --- Preferences ---

func (h *Handler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": visitor(c).Prefs.Get()})
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var in models.Preferences
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	prefs, err := visitor(c).Prefs.Set(in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": prefs})
}
