package handlers

import (
	"net/http"
	"strings"

	"taproom-backend/models"
	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductHandler struct {
	DB       *gorm.DB
	Settings *services.SettingsService
}

type productRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=120"`
	Description *string          `json:"description" binding:"omitempty,max=1000"`
	Category    *string          `json:"category" binding:"omitempty,max=60"`
	ImageURL    *string          `json:"image_url" binding:"omitempty,url"`
	Price       *decimal.Decimal `json:"price"`
	Points      *int             `json:"points" binding:"omitempty,gte=0"`
	IsAvailable *bool            `json:"is_available"`
}

func (r productRequest) apply(p *models.Product) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Category != nil {
		p.Category = strings.ToLower(strings.TrimSpace(*r.Category))
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}
	if r.Price != nil {
		p.Price = r.Price.Round(2)
	}
	if r.Points != nil {
		p.Points = *r.Points
	}
	if r.IsAvailable != nil {
		p.IsAvailable = *r.IsAvailable
	}
}

// GetProducts is the public menu: available products, filterable by
// ?category= and ?search=.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	query := h.DB.Where("is_available = ?", true)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", strings.ToLower(category))
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	var products []models.Product
	if err := query.Order("category ASC, name ASC").Find(&products).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	utils.OK(c, products)
}

// GetCategories returns the distinct categories on the current menu.
func (h *ProductHandler) GetCategories(c *gin.Context) {
	var categories []string
	err := h.DB.Model(&models.Product{}).
		Where("is_available = ? AND category <> ''", true).
		Distinct().Order("category ASC").Pluck("category", &categories).Error
	if err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	utils.OK(c, categories)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := h.DB.Where("id = ? AND is_available = ?", id, true).First(&product).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Product not found")
		return
	}
	utils.OK(c, product)
}

// GetProductsPaginated is the admin list, including unavailable products.
func (h *ProductHandler) GetProductsPaginated(c *gin.Context) {
	page, limit := pagination(c)
	query := h.DB.Model(&models.Product{})
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var products []models.Product
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&products).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	utils.OK(c, paged(products, total, page, limit))
}

// CreateProduct derives points from price x points_per_dollar when the
// request leaves points out.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Name == nil || req.Price == nil {
		utils.Fail(c, http.StatusBadRequest, "name and price are required")
		return
	}
	if !req.Price.IsPositive() {
		utils.Fail(c, http.StatusBadRequest, "price must be greater than 0")
		return
	}

	product := models.Product{IsAvailable: true}
	req.apply(&product)
	if req.Points == nil {
		product.Points = h.Settings.DefaultProductPoints(c.Request.Context(), product.Price)
	}

	if err := h.DB.Create(&product).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to create product")
		return
	}
	utils.Respond(c, http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		utils.Fail(c, http.StatusBadRequest, "price must be greater than 0")
		return
	}

	var product models.Product
	if err := h.DB.First(&product, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Product not found")
		return
	}
	req.apply(&product)
	if err := h.DB.Save(&product).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to update product")
		return
	}
	utils.OK(c, product)
}

// DeleteProduct soft-deletes. Order items keep their name snapshot.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res := h.DB.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	if res.RowsAffected == 0 {
		utils.Fail(c, http.StatusNotFound, "Product not found")
		return
	}
	utils.OK(c, gin.H{"message": "Product deleted"})
}
