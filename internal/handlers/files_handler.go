package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopify-feed-service/internal/config"
	"shopify-feed-service/internal/models"
	"shopify-feed-service/internal/repository"
)

// FilesHandler stores uploaded source spreadsheets and lists them.
type FilesHandler struct {
	repo *repository.JobsRepository
	cfg  *config.Config
}

func NewFilesHandler(repo *repository.JobsRepository, cfg *config.Config) *FilesHandler {
	return &FilesHandler{repo: repo, cfg: cfg}
}

// Upload accepts one multipart file and stores it under the uploads dir
// with a generated id, keeping the original extension so the loader can
// pick the right parser.
// POST /files
func (h *FilesHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "multipart field 'file' is required")
		return
	}

	id := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	dest := filepath.Join(h.cfg.UploadsDir, id+ext)

	if err := c.SaveUploadedFile(fileHeader, dest); err != nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "failed to store uploaded file")
		return
	}

	file := models.FileInfo{
		ID:        id,
		Name:      fileHeader.Filename,
		Path:      dest,
		Size:      fileHeader.Size,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.CreateFile(c.Request.Context(), &file); err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to record uploaded file")
		return
	}

	respondData(c, http.StatusCreated, file)
}

// List returns uploaded files, newest first.
// GET /files
func (h *FilesHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	files, total, err := h.repo.ListFiles(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list files")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    files,
		"total":   total,
	})
}
