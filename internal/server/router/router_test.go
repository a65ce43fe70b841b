package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/maleta/internal/commission"
	"github.com/mamadbah2/maleta/internal/config"
	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/repository/memory"
	"github.com/mamadbah2/maleta/internal/server/handlers"
	"github.com/mamadbah2/maleta/internal/service/consignment"
	"github.com/mamadbah2/maleta/internal/service/cycles"
	"github.com/mamadbah2/maleta/internal/service/recognition"
	whatsappsvc "github.com/mamadbah2/maleta/internal/service/whatsapp"
	"github.com/mamadbah2/maleta/pkg/clients/anthropic"
)

type stubAI struct{ answer string }

func (s stubAI) Complete(context.Context, anthropic.Request) (string, error) { return s.answer, nil }

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	seed := models.Dataset{
		Representatives: []models.Representative{{ID: "rep-1", Name: "Maria", Phone: "5511999990000", Active: true, MaletaStatus: models.MaletaAtBase}},
		Products: []models.Product{
			{ID: "prod-a", Name: "Anel", Category: models.CategoryRings, Price: decimal.NewFromInt(100), Stock: 10},
			{ID: "prod-b", Name: "Brinco", Category: models.CategoryEarrings, Price: decimal.NewFromInt(50), Stock: 10},
		},
	}
	ranking := memory.NewRankingRepository()
	cycleSvc := cycles.NewService(commission.Default(), "org", ranking, memory.NewIdempotencyGuard(time.Hour), nil, nil)
	store, err := consignment.NewStore(context.Background(), memory.NewDatasetRepository(seed), cycleSvc, commission.Default(), nil)
	require.NoError(t, err)

	messaging := whatsappsvc.NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "verify"}, nil, nil, nil)
	recog := recognition.NewService(stubAI{answer: `{"matchId":"prod-a","reason":"formato"}`}, nil)

	return New(Handlers{
		Messaging:   handlers.NewMessagingHandler(messaging, store, nil),
		Consignment: handlers.NewConsignmentHandler(store, nil),
		Recognition: handlers.NewRecognitionHandler(recog, store, nil),
		Ranking:     handlers.NewRankingHandler(ranking, "org", nil),
	}, nil)
}

func do(t *testing.T, e *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndWebhookVerify(t *testing.T) {
	e := newEngine(t)

	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/healthz", nil).Code)

	rec := do(t, e, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify&hub.challenge=abc", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())

	rec = do(t, e, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=abc", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeliverySaleAndSummaryFlow(t *testing.T) {
	e := newEngine(t)

	rec := do(t, e, http.MethodPost, "/api/deliveries", map[string]any{
		"representativeId": "rep-1",
		"lines":            []map[string]any{{"productId": "prod-a", "quantity": 5}, {"productId": "prod-b", "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var delivered []models.Movement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &delivered))
	assert.Len(t, delivered, 2)

	rec = do(t, e, http.MethodPost, "/api/sales", map[string]any{"representativeId": "rep-1", "productId": "prod-a", "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/representatives/rep-1/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum models.MaletaSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.True(t, sum.TotalDelivered.Equal(decimal.NewFromInt(650)))
	assert.True(t, sum.SoldValue.Equal(decimal.NewFromInt(200)))
	assert.True(t, sum.CommissionValue.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "Em Campo", sum.Status)

	rec = do(t, e, http.MethodGet, "/api/movements?type=sold&representativeId=rep-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sold []models.Movement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sold))
	assert.Len(t, sold, 1)

	rec = do(t, e, http.MethodGet, "/api/products", nil)
	var products []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Equal(t, 5, products[0].Stock)
	assert.Equal(t, 7, products[1].Stock)
}

func TestErrorStatuses(t *testing.T) {
	e := newEngine(t)

	rec := do(t, e, http.MethodPost, "/api/deliveries", map[string]any{
		"representativeId": "rep-1",
		"lines":            []map[string]any{{"productId": "prod-a", "quantity": 50}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/representatives/ghost/maleta", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/adjustments", map[string]any{"representativeId": "rep-1", "target": "sold", "value": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/movements?type=gift", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/representatives/rep-1/notify", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/notify/summaries", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, e, http.MethodPost, "/webhook", map[string]any{"object": "whatsapp_business_account", "entry": []any{}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCycleCloseWithIdempotencyHeader(t *testing.T) {
	e := newEngine(t)

	rec := do(t, e, http.MethodPost, "/api/cycles", map[string]any{"representativeId": "rep-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cycle models.ConsignmentCycle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cycle))
	assert.Equal(t, 60*24*time.Hour, cycle.DueDate.Sub(cycle.StartDate))

	body := map[string]any{
		"sellerId":  "rep-1",
		"soldItems": []map[string]any{{"price": 100, "quantity": 10}, {"price": 50, "quantity": 20}},
	}
	rec = do(t, e, http.MethodPost, "/api/cycles/close", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "idempotency key is mandatory")

	rec = do(t, e, http.MethodPost, "/api/cycles/close", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var settlement models.Settlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settlement))
	assert.True(t, settlement.TotalSales.Equal(decimal.NewFromInt(2000)))
	assert.True(t, settlement.CommissionValue.Equal(decimal.NewFromInt(600)))
	assert.True(t, settlement.NetProfit.Equal(decimal.NewFromInt(1400)))

	rec = do(t, e, http.MethodPost, "/api/cycles/close", body, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/ranking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ranking []models.RankingEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	require.Len(t, ranking, 1, "replay is not counted")
	assert.Equal(t, 1, ranking[0].Settlements)

	body["cycleId"] = cycle.ID
	rec = do(t, e, http.MethodPost, "/api/cycles/close", body, "Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newEngine(t)

	rec := do(t, e, http.MethodPost, "/api/sales/import", map[string]any{"representativeId": "rep-1", "text": "Maria,Brincos,150,00\nJoão,Anéis,89,90"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var exported map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Contains(t, exported, "reps")
	assert.Contains(t, exported, "prods")
	assert.Contains(t, exported, "movs")

	other := newEngine(t)
	rec = do(t, other, http.MethodPost, "/api/import", json.RawMessage(rec.Body.Bytes()))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, other, http.MethodGet, "/api/movements", nil)
	var movs []models.Movement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movs))
	assert.Len(t, movs, 2)
}

func TestRecognitionUpload(t *testing.T) {
	e := newEngine(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "foto.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	require.NoError(t, w.WriteField("note", "vitrine"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recognition/match_suggestion", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.RecognitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Match)
	assert.Equal(t, "prod-a", result.Match.MatchID)

	req = httptest.NewRequest(http.MethodPost, "/api/recognition/match_suggestion", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
