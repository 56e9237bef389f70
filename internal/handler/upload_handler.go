package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"sinedi/internal/domain"
	"sinedi/internal/middleware"
	"sinedi/internal/models"
	"sinedi/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	cloud cloudinary.Client
}

// NewUploadHandler accepts a nil client; uploads then answer 503.
func NewUploadHandler(cloud cloudinary.Client) *UploadHandler {
	return &UploadHandler{cloud: cloud}
}

// UploadResult stores a tutor's deliverable and returns it as a file result
// ready to pass to the finish endpoint.
func (h *UploadHandler) UploadResult(c *gin.Context) {
	h.upload(c, cloudinary.FolderResults, "result_")
}

// UploadProof stores an admin's transfer proof for a withdrawal.
func (h *UploadHandler) UploadProof(c *gin.Context) {
	h.upload(c, cloudinary.FolderProofs, "proof_")
}

func (h *UploadHandler) upload(c *gin.Context, folder, prefix string) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media upload is not configured"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	publicID := prefix + middleware.GetUserID(c) + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	url, err := h.cloud.UploadFile(c.Request.Context(), f, folder, publicID, filepath.Base(file.Filename))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": models.JobResult{Type: domain.ResultFile, Name: file.Filename, URL: url}})
}
