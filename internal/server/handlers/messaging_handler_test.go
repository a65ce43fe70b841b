package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/service/consignment"
)

type fakeMessaging struct {
	sent    []string
	failFor string
	outErr  error
}

func (f *fakeMessaging) VerifyWebhookToken(_, _, challenge string) (string, error) {
	return challenge, nil
}

func (f *fakeMessaging) HandleWebhook(context.Context, models.WebhookPayload) error {
	return errors.New("dispatch failed")
}

func (f *fakeMessaging) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return f.outErr
}

func (f *fakeMessaging) SendSummary(_ context.Context, rep models.Representative, _ models.MaletaSummary) error {
	if rep.ID == f.failFor {
		return errors.New("meta rejected")
	}
	f.sent = append(f.sent, rep.ID)
	return nil
}

type fakeState struct {
	reps []models.Representative
}

func (f fakeState) Representatives() []models.Representative { return f.reps }

func (f fakeState) Representative(id string) (models.Representative, error) {
	for _, r := range f.reps {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Representative{}, consignment.ErrRepresentativeNotFound
}

func (f fakeState) Summary(repID string) (models.MaletaSummary, error) {
	if _, err := f.Representative(repID); err != nil {
		return models.MaletaSummary{}, err
	}
	return models.MaletaSummary{RepresentativeID: repID}, nil
}

func messagingEngine(h *MessagingHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.Receive)
	r.POST("/notify", h.Send)
	r.POST("/notify/summaries", h.BroadcastSummaries)
	r.POST("/reps/:id/notify", h.NotifySummary)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestBroadcastSummaries(t *testing.T) {
	svc := &fakeMessaging{failFor: "r3"}
	state := fakeState{reps: []models.Representative{
		{ID: "r1", Phone: "5511", Active: true},
		{ID: "r2", Phone: "", Active: true},
		{ID: "r3", Phone: "5533", Active: true},
		{ID: "r4", Phone: "5544", Active: false},
	}}
	r := messagingEngine(NewMessagingHandler(svc, state, nil))

	rec := serve(r, http.MethodPost, "/notify/summaries", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out broadcastResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{"r1"}, out.Sent)
	assert.Equal(t, []string{"r2", "r4"}, out.Skipped)
	assert.Equal(t, []string{"r3"}, out.Failed)
}

func TestNotifySummaryUnknownRepresentative(t *testing.T) {
	r := messagingEngine(NewMessagingHandler(&fakeMessaging{}, fakeState{}, nil))
	rec := serve(r, http.MethodPost, "/reps/ghost/notify", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiveAcknowledgesProcessingFailures(t *testing.T) {
	r := messagingEngine(NewMessagingHandler(&fakeMessaging{}, fakeState{}, nil))

	rec := serve(r, http.MethodPost, "/webhook", `{"object":"whatsapp_business_account","entry":[]}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodPost, "/webhook", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendRequiresRecipientAndMessage(t *testing.T) {
	r := messagingEngine(NewMessagingHandler(&fakeMessaging{}, fakeState{}, nil))

	rec := serve(r, http.MethodPost, "/notify", `{"to":"5511"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodPost, "/notify", `{"to":"5511","message":"oi"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
