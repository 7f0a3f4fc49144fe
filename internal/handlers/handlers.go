package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"drog/internal/logger"
	"drog/internal/models"
	"drog/internal/services"
)

// Catalog, vitrinin doğrudan CMS'ten okuduğu uçlar. *cms.Client bunu sağlar.
type Catalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetOrder(ctx context.Context, ref string) (*models.Order, error)
}

// Options, HTTP katmanının ayarları.
type Options struct {
	CookieSecure    bool
	DefaultLanguage string
	Currency        string
}

// Handler, HTTP isteklerini yönetir.
type Handler struct {
	catalog  Catalog
	visitors *services.Visitors
	admin    *services.AdminStore
	coupons  *services.CouponStore
	security *services.SecurityLogger
	opts     Options
	log      logger.Logger
}

// NewHandler, yeni bir Handler örneği oluşturur.
func NewHandler(catalog Catalog, visitors *services.Visitors, admin *services.AdminStore, coupons *services.CouponStore,
	security *services.SecurityLogger, opts Options, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop{}
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "ar"
	}
	return &Handler{
		catalog:  catalog,
		visitors: visitors,
		admin:    admin,
		coupons:  coupons,
		security: security,
		opts:     opts,
		log:      log,
	}
}

// Register, tüm rotaları kaydeder.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	site := r.Group("/", h.VisitorMiddleware())
	{
		site.GET("/products", h.ListProducts)
		site.GET("/products/:slug", h.GetProduct)
		site.GET("/categories", h.ListCategories)

		site.GET("/cart", h.GetCart)
		site.PUT("/cart", h.ReplaceCart)
		site.GET("/cart/count", h.GetCartCount)
		site.POST("/cart/add", h.AddToCart)
		site.POST("/cart/increment", h.IncrementCartItem)
		site.POST("/cart/decrement", h.DecrementCartItem)
		site.POST("/cart/remove", h.RemoveFromCart)
		site.POST("/cart/clear", h.ClearCart)

		site.GET("/checkout/quote", h.CheckoutQuote)
		site.POST("/checkout", h.HandleCheckout)
		site.GET("/checkout/status", h.CheckoutStatus)

		site.GET("/orders", h.ListMyOrders)
		site.GET("/orders/:id", h.TrackOrder)

		site.GET("/login", h.GuestOnlyMiddleware(), h.LoginPage)
		site.POST("/login", h.HandleLogin)
		site.POST("/logout", h.HandleLogout)
		site.GET("/session", h.GetSession)
		site.GET("/account", h.ProtectedMiddleware(), h.Account)

		site.GET("/preferences", h.GetPreferences)
		site.PUT("/preferences", h.UpdatePreferences)

		admin := site.Group("/admin", h.AdminMiddleware())
		{
			admin.GET("", h.AdminDashboard)
			admin.POST("/refetch", h.AdminRefetch)

			admin.GET("/products", h.AdminListProducts)
			admin.POST("/products", h.AdminCreateProduct)
			admin.PUT("/products/:ref", h.AdminUpdateProduct)
			admin.DELETE("/products/:ref", h.AdminDeleteProduct)

			admin.GET("/orders", h.AdminListOrders)
			admin.PUT("/orders/:id/status", h.AdminUpdateOrderStatus)
			admin.DELETE("/orders/:id", h.AdminDeleteOrder)

			admin.GET("/coupons", h.AdminListCoupons)
			admin.POST("/coupons", h.AdminCreateCoupon)
			admin.PUT("/coupons/:code", h.AdminUpdateCoupon)
			admin.DELETE("/coupons/:code", h.AdminDeleteCoupon)

			admin.POST("/uploads", h.AdminUploadImage)
		}
	}
}

// Health, servis ayakta mı kontrolü.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
