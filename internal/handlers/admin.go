package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"drog/internal/models"
	"drog/internal/services"
)

// AdminDashboard, panel özetini döndürür: ürün ve sipariş sayıları, duruma göre siparişler
// ve iptal edilmemiş siparişlerin toplam cirosu.
func (h *Handler) AdminDashboard(c *gin.Context) {
	orders := h.admin.Orders()
	byStatus := make(map[models.OrderStatus]int)
	revenue := decimal.Zero
	for _, o := range orders {
		byStatus[o.Status]++
		if o.Status != models.OrderCancelled {
			revenue = revenue.Add(o.TotalPrice)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"products":   len(h.admin.Products(services.ProductFilter{})),
		"orders":     len(orders),
		"by_status":  byStatus,
		"revenue":    revenue,
		"currency":   h.opts.Currency,
		"coupons":    len(h.coupons.List()),
		"categories": h.admin.Categories(),
		"statuses":   models.OrderStatuses(),
	})
}

// AdminRefetch, önbelleği CMS'ten yeniden yükler.
func (h *Handler) AdminRefetch(c *gin.Context) {
	if err := h.admin.Refetch(requestContext(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": len(h.admin.Products(services.ProductFilter{})),
		"orders":   len(h.admin.Orders()),
	})
}

func (h *Handler) AdminListProducts(c *gin.Context) {
	products := h.admin.Products(services.ProductFilter{Category: c.Query("category"), Query: c.Query("q")})
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

func (h *Handler) bindProductForm(c *gin.Context) (models.ProductForm, bool) {
	var form models.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return form, false
	}
	return form, true
}

func (h *Handler) AdminCreateProduct(c *gin.Context) {
	form, ok := h.bindProductForm(c)
	if !ok {
		return
	}
	product, err := h.admin.CreateProduct(requestContext(c), form)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": product, "revision": h.admin.ProductRevision(product.ID)})
}

func (h *Handler) AdminUpdateProduct(c *gin.Context) {
	form, ok := h.bindProductForm(c)
	if !ok {
		return
	}
	product, err := h.admin.UpdateProduct(requestContext(c), services.ParseProductRef(c.Param("ref")), form)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product, "revision": h.admin.ProductRevision(product.ID)})
}

func (h *Handler) AdminDeleteProduct(c *gin.Context) {
	if err := h.admin.DeleteProduct(requestContext(c), services.ParseProductRef(c.Param("ref"))); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminListOrders, siparişleri isteğe bağlı durum filtresiyle döndürür.
func (h *Handler) AdminListOrders(c *gin.Context) {
	orders := h.admin.Orders()
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		want, ok := models.ParseOrderStatus(raw)
		if !ok {
			want = models.OrderStatus(strings.ToLower(raw))
		}
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == want {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	order, err := h.admin.UpdateOrderStatus(requestContext(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info("AdminUpdateOrderStatus", "order_id", order.ID, "status", order.Status)
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order, "revision": h.admin.OrderRevision(order.ID)})
}

func (h *Handler) AdminDeleteOrder(c *gin.Context) {
	if err := h.admin.DeleteOrder(requestContext(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Coupons ---

func (h *Handler) AdminListCoupons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "coupons": h.coupons.List()})
}

func (h *Handler) AdminCreateCoupon(c *gin.Context) {
	var in models.Coupon
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	coupon, err := h.coupons.Add(in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "coupon": coupon})
}

func (h *Handler) AdminUpdateCoupon(c *gin.Context) {
	var in models.Coupon
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	coupon, err := h.coupons.Update(c.Param("code"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "coupon": coupon})
}

func (h *Handler) AdminDeleteCoupon(c *gin.Context) {
	if err := h.coupons.Delete(c.Param("code")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminUploadImage, "file" alanındaki görseli CMS'e yükler.
func (h *Handler) AdminUploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, codeBadRequest)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	asset, err := h.admin.UploadImage(requestContext(c), fh.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "asset": asset})
}
