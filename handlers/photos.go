package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"taproom-backend/models"
	"taproom-backend/storage"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UploadHandler stores images for products, rewards and staff profiles.
type UploadHandler struct {
	Storage storage.Client
}

var uploadFolders = map[string]bool{
	"products": true,
	"rewards":  true,
	"services": true,
	"staff":    true,
	"uploads":  true,
}

// uploadImage validates the multipart "image" field and stores it.
func uploadImage(c *gin.Context, client storage.Client, folder string) (storage.Object, bool) {
	if client == nil {
		utils.Fail(c, http.StatusServiceUnavailable, "Image storage is not configured")
		return storage.Object{}, false
	}

	fh, err := c.FormFile("image")
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "image file is required")
		return storage.Object{}, false
	}
	if err := utils.ValidateFileUpload(fh); err != nil {
		utils.Fail(c, http.StatusBadRequest, err.Error())
		return storage.Object{}, false
	}

	file, err := fh.Open()
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "Failed to read image")
		return storage.Object{}, false
	}
	defer file.Close()

	obj, err := client.Upload(c.Request.Context(), folder, file, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		log.Printf("upload %s: %v", fh.Filename, err)
		utils.Fail(c, http.StatusInternalServerError, "Failed to upload image")
		return storage.Object{}, false
	}
	return obj, true
}

func (h *UploadHandler) UploadImage(c *gin.Context) {
	folder := c.DefaultPostForm("folder", "uploads")
	if !uploadFolders[folder] {
		utils.Fail(c, http.StatusBadRequest, "Unknown upload folder")
		return
	}
	obj, ok := uploadImage(c, h.Storage, folder)
	if !ok {
		return
	}
	utils.Respond(c, http.StatusCreated, obj)
}

type PhotoHandler struct {
	DB      *gorm.DB
	Storage storage.Client
}

func (h *PhotoHandler) GetPhotos(c *gin.Context) {
	var photos []models.Photo
	if err := h.DB.Where("is_active = ?", true).Order("sort_order ASC, created_at DESC").Find(&photos).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch photos")
		return
	}
	utils.OK(c, photos)
}

// UploadPhoto stores the image and records it in the gallery. Optional
// form fields: caption, sort_order.
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	sortOrder, err := strconv.Atoi(c.DefaultPostForm("sort_order", "0"))
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "sort_order must be a number")
		return
	}

	obj, ok := uploadImage(c, h.Storage, "photos")
	if !ok {
		return
	}

	photo := models.Photo{
		URL:        obj.URL,
		ObjectPath: obj.Path,
		Caption:    c.PostForm("caption"),
		SortOrder:  sortOrder,
		IsActive:   true,
	}
	if err := h.DB.Create(&photo).Error; err != nil {
		h.removeObject(obj.Path)
		utils.Fail(c, http.StatusInternalServerError, "Failed to save photo")
		return
	}
	utils.Respond(c, http.StatusCreated, photo)
}

func (h *PhotoHandler) UpdatePhoto(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Caption   *string `json:"caption" binding:"omitempty,max=300"`
		SortOrder *int    `json:"sort_order"`
		IsActive  *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var photo models.Photo
	if err := h.DB.First(&photo, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Photo not found")
		return
	}
	if req.Caption != nil {
		photo.Caption = *req.Caption
	}
	if req.SortOrder != nil {
		photo.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		photo.IsActive = *req.IsActive
	}
	if err := h.DB.Save(&photo).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to update photo")
		return
	}
	utils.OK(c, photo)
}

// DeletePhoto removes the row first; a storage failure afterwards only
// leaves an orphaned object, which is logged.
func (h *PhotoHandler) DeletePhoto(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var photo models.Photo
	if err := h.DB.First(&photo, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Photo not found")
		return
	}
	if err := h.DB.Unscoped().Delete(&photo).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to delete photo")
		return
	}
	h.removeObject(photo.ObjectPath)
	utils.OK(c, gin.H{"message": "Photo deleted"})
}

func (h *PhotoHandler) removeObject(path string) {
	if h.Storage == nil || path == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := h.Storage.Delete(ctx, path); err != nil {
		log.Printf("WARNING: failed to delete storage object %s: %v", path, err)
	}
}
