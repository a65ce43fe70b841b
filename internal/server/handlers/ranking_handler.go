package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

// RankingReader lists accumulated settlement totals per seller.
type RankingReader interface {
	Ranking(ctx context.Context, organizationID string) ([]models.RankingEntry, error)
}

// RankingHandler serves the seller ranking of one organization.
type RankingHandler struct {
	reader         RankingReader
	organizationID string
	logger         *zap.Logger
}

// NewRankingHandler constructs the handler.
func NewRankingHandler(reader RankingReader, organizationID string, logger *zap.Logger) *RankingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingHandler{reader: reader, organizationID: organizationID, logger: logger}
}

// List returns sellers ordered by settled sales.
func (h *RankingHandler) List(c *gin.Context) {
	entries, err := h.reader.Ranking(c.Request.Context(), h.organizationID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
