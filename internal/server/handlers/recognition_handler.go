package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/service/recognition"
)

const maxImageBytes = 8 << 20

// CatalogReader lists the products the AI answers are checked against.
type CatalogReader interface {
	Products() []models.Product
}

// RecognitionHandler runs AI recognition on an uploaded image. Results are
// returned for review; nothing is written to the ledger here.
type RecognitionHandler struct {
	svc     *recognition.Service
	catalog CatalogReader
	logger  *zap.Logger
}

// NewRecognitionHandler constructs the handler.
func NewRecognitionHandler(svc *recognition.Service, catalog CatalogReader, logger *zap.Logger) *RecognitionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecognitionHandler{svc: svc, catalog: catalog, logger: logger}
}

// Recognize expects a multipart form with an "image" file and an optional "note".
func (h *RecognitionHandler) Recognize(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read image"})
		return
	}
	if len(image) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(image)
	}

	result, err := h.svc.Recognize(c.Request.Context(), recognition.Request{
		Task:      models.RecognitionTask(c.Param("task")),
		Image:     image,
		MediaType: mediaType,
		Note:      c.PostForm("note"),
	}, h.catalog.Products())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
