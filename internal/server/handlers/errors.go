package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/importer"
	"github.com/mamadbah2/maleta/internal/service/consignment"
	"github.com/mamadbah2/maleta/internal/service/cycles"
	"github.com/mamadbah2/maleta/internal/service/recognition"
	"github.com/mamadbah2/maleta/internal/service/whatsapp"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{consignment.ErrInvalidInput, http.StatusBadRequest},
	{consignment.ErrEmptyBatch, http.StatusBadRequest},
	{importer.ErrEmptyBatch, http.StatusBadRequest},
	{importer.ErrInvalidLine, http.StatusBadRequest},
	{importer.ErrMissingRepresentative, http.StatusBadRequest},
	{cycles.ErrIdempotencyKeyRequired, http.StatusBadRequest},
	{recognition.ErrUnknownTask, http.StatusBadRequest},
	{consignment.ErrRepresentativeNotFound, http.StatusNotFound},
	{consignment.ErrProductNotFound, http.StatusNotFound},
	{cycles.ErrCycleNotFound, http.StatusNotFound},
	{cycles.ErrSellerMismatch, http.StatusForbidden},
	{consignment.ErrInsufficientStock, http.StatusConflict},
	{consignment.ErrInsufficientMaleta, http.StatusConflict},
	{cycles.ErrCycleAlreadyOpen, http.StatusConflict},
	{cycles.ErrCycleSettled, http.StatusConflict},
	{cycles.ErrDuplicateClose, http.StatusConflict},
	{recognition.ErrUnusableResponse, http.StatusUnprocessableEntity},
	{recognition.ErrUnavailable, http.StatusServiceUnavailable},
	{whatsapp.ErrMessagingDisabled, http.StatusServiceUnavailable},
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
