package cmsfake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)


// Handler, Strapi REST uçlarını sunan gin motorunu döndürür.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/products", s.handleListProducts)
		api.GET("/products/:ref", s.handleGetProduct)
		api.POST("/products", s.requireEditor, s.handleCreateProduct)
		api.PUT("/products/:ref", s.requireEditor, s.handleUpdateProduct)
		api.DELETE("/products/:ref", s.requireEditor, s.handleDeleteProduct)

		api.GET("/categories", s.handleListCategories)

		api.POST("/orders", s.handleCreateOrder)
		api.GET("/orders", s.requireEditor, s.handleListOrders)
		api.GET("/orders/:ref", s.handleGetOrder)
		api.PUT("/orders/:ref", s.requireEditor, s.handleUpdateOrder)
		api.DELETE("/orders/:ref", s.requireEditor, s.handleDeleteOrder)

		api.POST("/auth/local", s.handleLogin)
		api.GET("/users/me", s.handleMe)

		api.POST("/upload", s.requireEditor, s.handleUpload)
	}
	return r
}

func writeError(c *gin.Context, status int, name, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"data":  nil,
		"error": gin.H{"status": status, "name": name, "message": message},
	})
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeError(c, http.StatusNotFound, "NotFoundError", "Not Found")
	case errors.Is(err, errInvalidInput):
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "ApplicationError", err.Error())
	}
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// requireEditor, API token'ı ya da admin rolündeki bir kullanıcının token'ını ister.
func (s *Server) requireEditor(c *gin.Context) {
	token := bearer(c)
	if token == "" {
		writeError(c, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
		return
	}
	if s.apiToken != "" && token == s.apiToken {
		c.Next()
		return
	}
	u, ok := s.userByToken(token)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
		return
	}
	if u.Blocked || !strings.EqualFold(u.Role, s.adminRole) {
		writeError(c, http.StatusForbidden, "ForbiddenError", "Forbidden")
		return
	}
	c.Next()
}

// bindData, {data: ...} gövdesini çözer.
func bindData(c *gin.Context, out interface{}) bool {
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Data) == 0 {
		writeError(c, http.StatusBadRequest, "ValidationError", "Missing \"data\" payload in the request body")
		return false
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
		return false
	}
	return true
}

// --- Products (iç içe "attributes" biçiminde döner) ---

func (s *Server) productJSON(p product) gin.H {
	attrs := gin.H{
		"name":        p.Name,
		"slug":        p.Slug,
		"price":       p.Price,
		"oldPrice":    p.OldPrice,
		"quantity":    p.Quantity,
		"sizes":       nonNil(p.Sizes),
		"colors":      strings.Join(p.Colors, ","),
		"description": p.Description,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
		"category":    gin.H{"data": nil},
		"image":       gin.H{"data": nil},
	}
	if c := s.categoryByID(p.CategoryID); c != nil {
		attrs["category"] = gin.H{"data": gin.H{
			"id":         c.ID,
			"attributes": gin.H{"documentId": c.DocumentID, "name": c.Name, "slug": c.Slug},
		}}
	}
	if a := s.assetByID(p.ImageID); a != nil {
		attrs["image"] = gin.H{"data": gin.H{"id": a.ID, "attributes": gin.H{"url": a.URL, "name": a.Name}}}
	}
	return gin.H{"id": p.ID, "documentId": p.DocumentID, "attributes": attrs}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func (s *Server) handleListProducts(c *gin.Context) {
	slug := c.Query("filters[slug][$eq]")
	s.mu.RLock()
	data := make([]gin.H, 0, len(s.products))
	for _, p := range s.products {
		if slug != "" && p.Slug != slug {
			continue
		}
		data = append(data, s.productJSON(p))
	}
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"data": data, "meta": gin.H{"pagination": gin.H{"total": len(data)}}})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.productIndex(c.Param("ref"))
	if i < 0 {
		writeStoreError(c, errNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.productJSON(s.products[i])})
}

func (s *Server) respondProduct(c *gin.Context, status int, p product) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(status, gin.H{"data": s.productJSON(p)})
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var in productInput
	if !bindData(c, &in) {
		return
	}
	p, err := s.createProduct(in)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	s.respondProduct(c, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	var in productInput
	if !bindData(c, &in) {
		return
	}
	p, err := s.updateProduct(c.Param("ref"), in)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	s.respondProduct(c, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	if err := s.deleteProduct(c.Param("ref")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListCategories(c *gin.Context) {
	s.mu.RLock()
	data := make([]gin.H, 0, len(s.categories))
	for _, cat := range s.categories {
		data = append(data, gin.H{"id": cat.ID, "documentId": cat.DocumentID, "name": cat.Name, "slug": cat.Slug})
	}
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// --- Orders (düz biçimde döner) ---

func (s *Server) handleCreateOrder(c *gin.Context) {
	var in order
	if !bindData(c, &in) {
		return
	}
	o, err := s.createOrder(in)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": o})
}

func (s *Server) handleListOrders(c *gin.Context) {
	orders := s.listOrders()
	c.JSON(http.StatusOK, gin.H{"data": orders, "meta": gin.H{"pagination": gin.H{"total": len(orders)}}})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	o, ok := s.getOrder(c.Param("ref"))
	if !ok {
		writeStoreError(c, errNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}

func (s *Server) handleUpdateOrder(c *gin.Context) {
	var in struct {
		Status string `json:"status"`
	}
	if !bindData(c, &in) {
		return
	}
	if in.Status == "" {
		writeError(c, http.StatusBadRequest, "ValidationError", "status is required")
		return
	}
	o, err := s.updateOrderStatus(c.Param("ref"), in.Status)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}

func (s *Server) handleDeleteOrder(c *gin.Context) {
	if err := s.deleteOrder(c.Param("ref")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Auth ---

func userJSON(u user, withRole bool) gin.H {
	out := gin.H{
		"id":        u.ID,
		"email":     u.Email,
		"username":  u.Username,
		"blocked":   u.Blocked,
		"confirmed": u.Confirmed,
	}
	if withRole {
		out["role"] = gin.H{"name": u.Role, "type": strings.ToLower(u.Role)}
	}
	return out
}

func (s *Server) handleLogin(c *gin.Context) {
	var in struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Identifier == "" || in.Password == "" {
		writeError(c, http.StatusBadRequest, "ValidationError", "identifier and password are required")
		return
	}
	token, u, err := s.authenticate(in.Identifier, in.Password)
	if err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", "Invalid identifier or password")
		return
	}
	if u.Blocked {
		writeError(c, http.StatusBadRequest, "ApplicationError", "Your account has been blocked by an administrator")
		return
	}
	s.log.Info("cmsfake: login", "user_id", u.ID)
	c.JSON(http.StatusOK, gin.H{"jwt": token, "user": userJSON(u, false)})
}

func (s *Server) handleMe(c *gin.Context) {
	u, ok := s.userByToken(bearer(c))
	if !ok {
		writeError(c, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
		return
	}
	c.JSON(http.StatusOK, userJSON(u, c.Query("populate") == "role"))
}

// --- Upload ---

func (s *Server) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("files")
	if err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", "Files are empty")
		return
	}
	a := s.addAsset(fh.Filename)
	c.JSON(http.StatusCreated, []gin.H{{"id": a.ID, "name": a.Name, "url": a.URL}})
}
