package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/service/consignment"
	"github.com/mamadbah2/maleta/internal/service/cycles"
)

const idempotencyHeader = "Idempotency-Key"

// ConsignmentHandler exposes the consignment store over JSON.
type ConsignmentHandler struct {
	store  *consignment.Store
	logger *zap.Logger
}

// NewConsignmentHandler constructs the handler.
func NewConsignmentHandler(store *consignment.Store, logger *zap.Logger) *ConsignmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsignmentHandler{store: store, logger: logger}
}

func (h *ConsignmentHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// ListRepresentatives returns every representative.
func (h *ConsignmentHandler) ListRepresentatives(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Representatives())
}

// GetRepresentative returns one representative.
func (h *ConsignmentHandler) GetRepresentative(c *gin.Context) {
	rep, err := h.store.Representative(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// CreateRepresentative registers a representative.
func (h *ConsignmentHandler) CreateRepresentative(c *gin.Context) {
	var rep models.Representative
	if !h.bind(c, &rep) {
		return
	}
	created, err := h.store.RegisterRepresentative(c.Request.Context(), rep)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateRepresentative edits a representative.
func (h *ConsignmentHandler) UpdateRepresentative(c *gin.Context) {
	var rep models.Representative
	if !h.bind(c, &rep) {
		return
	}
	rep.ID = c.Param("id")
	updated, err := h.store.UpdateRepresentative(c.Request.Context(), rep)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive activates or deactivates a representative.
func (h *ConsignmentHandler) SetActive(c *gin.Context) {
	var req activeRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.store.SetRepresentativeActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Summary returns the financial summary of one representative.
func (h *ConsignmentHandler) Summary(c *gin.Context) {
	sum, err := h.store.Summary(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Summaries returns the summaries of every representative.
func (h *ConsignmentHandler) Summaries(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Summaries())
}

// Maleta returns what a representative currently holds.
func (h *ConsignmentHandler) Maleta(c *gin.Context) {
	maleta, err := h.store.Maleta(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, maleta)
}

// ListProducts returns the catalog.
func (h *ConsignmentHandler) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Products())
}

// CreateProduct adds a catalog entry.
func (h *ConsignmentHandler) CreateProduct(c *gin.Context) {
	var p models.Product
	if !h.bind(c, &p) {
		return
	}
	created, err := h.store.AddProduct(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProduct edits a catalog entry.
func (h *ConsignmentHandler) UpdateProduct(c *gin.Context) {
	var p models.Product
	if !h.bind(c, &p) {
		return
	}
	p.ID = c.Param("id")
	updated, err := h.store.UpdateProduct(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ImportProducts adds a reviewed batch of extracted products.
func (h *ConsignmentHandler) ImportProducts(c *gin.Context) {
	var batch []models.ExtractedProduct
	if !h.bind(c, &batch) {
		return
	}
	created, err := h.store.ImportProducts(c.Request.Context(), batch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListMovements queries the ledger. Supported filters: representativeId,
// productId, type, from, to (RFC 3339).
func (h *ConsignmentHandler) ListMovements(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.store.Movements(filter))
}

func parseFilter(c *gin.Context) (models.MovementFilter, error) {
	var f models.MovementFilter
	if v := c.Query("representativeId"); v != "" {
		f.RepresentativeID = &v
	}
	if v := c.Query("productId"); v != "" {
		f.ProductID = &v
	}
	if v := c.Query("type"); v != "" {
		t := models.MovementType(strings.ToUpper(v))
		if !t.Valid() {
			return f, fmt.Errorf("unknown movement type %q", v)
		}
		f.Type = &t
	}
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := c.Query(key); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return f, fmt.Errorf("%s: %w", key, err)
			}
			*dst = &ts
		}
	}
	return f, nil
}

type shipmentRequest struct {
	RepresentativeID string                     `json:"representativeId"`
	Lines            []consignment.DeliveryLine `json:"lines"`
}

// Deliver mounts a maleta.
func (h *ConsignmentHandler) Deliver(c *gin.Context) {
	var req shipmentRequest
	if !h.bind(c, &req) {
		return
	}
	created, err := h.store.DeliverMaleta(c.Request.Context(), req.RepresentativeID, req.Lines)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Restock tops up a maleta.
func (h *ConsignmentHandler) Restock(c *gin.Context) {
	var req shipmentRequest
	if !h.bind(c, &req) {
		return
	}
	created, err := h.store.Restock(c.Request.Context(), req.RepresentativeID, req.Lines)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// RecordSale books a sale.
func (h *ConsignmentHandler) RecordSale(c *gin.Context) {
	var req consignment.SaleInput
	if !h.bind(c, &req) {
		return
	}
	m, err := h.store.RecordSale(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// RecordReturn books a return to central stock.
func (h *ConsignmentHandler) RecordReturn(c *gin.Context) {
	var req consignment.ReturnInput
	if !h.bind(c, &req) {
		return
	}
	m, err := h.store.RecordReturn(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// RecordAdjustment books a manual correction.
func (h *ConsignmentHandler) RecordAdjustment(c *gin.Context) {
	var req consignment.AdjustmentInput
	if !h.bind(c, &req) {
		return
	}
	m, err := h.store.RecordAdjustment(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

type salesImportRequest struct {
	RepresentativeID string `json:"representativeId"`
	Text             string `json:"text"`
}

// ImportSales books pasted sale lines.
func (h *ConsignmentHandler) ImportSales(c *gin.Context) {
	var req salesImportRequest
	if !h.bind(c, &req) {
		return
	}
	records, err := h.store.ImportSales(c.Request.Context(), req.Text, req.RepresentativeID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, records)
}

// ListCycles returns cycles, optionally of one representative.
func (h *ConsignmentHandler) ListCycles(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Cycles(c.Query("representativeId")))
}

type openCycleRequest struct {
	RepresentativeID string    `json:"representativeId"`
	StartDate        time.Time `json:"startDate"`
}

// OpenCycle starts a consignment cycle.
func (h *ConsignmentHandler) OpenCycle(c *gin.Context) {
	var req openCycleRequest
	if !h.bind(c, &req) {
		return
	}
	cycle, err := h.store.OpenCycle(c.Request.Context(), req.RepresentativeID, req.StartDate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cycle)
}

type closeCycleRequest struct {
	CycleID        string            `json:"cycleId"`
	SellerID       string            `json:"sellerId"`
	IdempotencyKey string            `json:"idempotencyKey"`
	SoldItems      []models.SoldItem `json:"soldItems"`
}

func idempotencyKey(c *gin.Context, body string) string {
	if key := strings.TrimSpace(c.GetHeader(idempotencyHeader)); key != "" {
		return key
	}
	return body
}

// CloseCycle settles a cycle from a sold-items snapshot.
func (h *ConsignmentHandler) CloseCycle(c *gin.Context) {
	var req closeCycleRequest
	if !h.bind(c, &req) {
		return
	}
	settlement, err := h.store.CloseCycle(c.Request.Context(), cycles.CloseRequest{
		CycleID:        req.CycleID,
		SellerID:       req.SellerID,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		SoldItems:      req.SoldItems,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// SettleCycle settles a cycle from the sales recorded on it.
func (h *ConsignmentHandler) SettleCycle(c *gin.Context) {
	settlement, err := h.store.SettleFromLedger(c.Request.Context(), cycles.CloseRequest{
		CycleID:        c.Param("id"),
		IdempotencyKey: idempotencyKey(c, c.Query("idempotencyKey")),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// Export downloads the whole dataset.
func (h *ConsignmentHandler) Export(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="maleta-backup.json"`)
	c.JSON(http.StatusOK, h.store.Export())
}

// Import restores a dataset previously exported.
func (h *ConsignmentHandler) Import(c *gin.Context) {
	var d models.Dataset
	if !h.bind(c, &d) {
		return
	}
	if err := h.store.Import(c.Request.Context(), d); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
