package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/garyjia/claimflow/internal/application/service"
	"github.com/garyjia/claimflow/internal/application/workflow"
	"github.com/garyjia/claimflow/internal/domain/apperr"
	"github.com/garyjia/claimflow/internal/domain/entity"
	domainwf "github.com/garyjia/claimflow/internal/domain/workflow"
	"github.com/garyjia/claimflow/internal/infrastructure/export"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/memory"
	"github.com/garyjia/claimflow/internal/infrastructure/storage"
	"github.com/garyjia/claimflow/pkg/utils"
)

var (
	emp     = &entity.Actor{ID: "emp", Name: "Employee", ApproverID: "mgr"}
	mgr     = &entity.Actor{ID: "mgr", Name: "Manager"}
	finance = &entity.Actor{ID: "fin", Name: "Finance", Capabilities: []entity.Capability{entity.CapabilityFinanceAudit}}
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
}

type testServer struct {
	t       *testing.T
	server  *Server
	healthy bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	zl := zaptest.NewLogger(t)
	kv := utils.NewKVLogger(zl)

	store := memory.NewStore()
	for _, a := range []*entity.Actor{emp, mgr, finance} {
		require.NoError(t, store.Actors().Upsert(context.Background(), a))
	}

	engine := workflow.NewEngine(store.Claims(), store.Actors(), store, workflow.WithLogger(kv))
	attachments := storage.NewLocalAttachmentStore(t.TempDir(), zl)

	ts := &testServer{t: t, healthy: true}
	ts.server = NewServer(DefaultServerConfig(), Services{
		Claims:   service.NewClaimService(store.Claims(), store.Actors(), store, engine, attachments, nil, kv),
		Payments: service.NewPaymentService(store.Claims(), store.Payments(), store.Actors(), store, engine, export.NewPaymentSheet("Claimflow Ltd", zl), nil, kv),
		Vendors:  service.NewVendorService(store.Vendors(), store.ChangeRequests(), store, nil, kv),
		Actors:   store.Actors(),
		Health: func(ctx context.Context) (bool, interface{}) {
			return ts.healthy, map[string]bool{"database": ts.healthy}
		},
	}, kv)
	return ts
}

func (ts *testServer) do(method, path, actorID string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(ActorHeader, actorID)
	}
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (ts *testServer) createExpense(submit bool) *entity.Claim {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/claims", emp.ID, map[string]interface{}{
		"kind":       entity.KindEmployeeExpense,
		"payee_name": "Employee",
		"line_items": []map[string]interface{}{{"amount": "120.50", "description": "taxi"}},
		"submit":     submit,
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var claim entity.Claim
	decode(ts.t, rec, &claim)
	return &claim
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.healthy = false
	rec = ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decode(t, rec, nil)
	assert.False(t, env.Success)
}

func TestIdentityMiddleware(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/me", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/me", emp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me entity.Actor
	decode(t, rec, &me)
	assert.Equal(t, "mgr", me.ApproverID)
}

func TestRequestIdentity(t *testing.T) {
	_, err := RequestIdentity{}.CurrentActor(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	got, err := RequestIdentity{}.CurrentActor(WithActor(context.Background(), emp))
	require.NoError(t, err)
	assert.Equal(t, emp, got)
}

func TestClaimLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	claim := ts.createExpense(true)
	assert.Equal(t, domainwf.StatePendingApproval, claim.Status)
	assert.Equal(t, "120.5", claim.Amount.String())

	path := "/api/claims/" + claim.ID

	rec := ts.do(http.MethodGet, path+"/triggers", mgr.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var triggers []domainwf.Trigger
	decode(t, rec, &triggers)
	assert.ElementsMatch(t, []domainwf.Trigger{domainwf.TriggerApprove, domainwf.TriggerReject}, triggers)

	// The applicant is not their own approver
	rec = ts.do(http.MethodPost, path+"/transitions", emp.ID, map[string]string{"trigger": "approve", "expected_status": "pending_approval"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperr.KindUnauthorized), decode(t, rec, nil).Kind)

	rec = ts.do(http.MethodPost, path+"/transitions", mgr.ID, map[string]string{"trigger": "reject", "expected_status": "pending_approval"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "reject without a reason")

	rec = ts.do(http.MethodPost, path+"/transitions", mgr.ID, map[string]string{"trigger": "approve"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "expected_status is required")

	rec = ts.do(http.MethodPost, path+"/transitions", mgr.ID, map[string]string{"trigger": "approve", "expected_status": "pending_approval"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved entity.Claim
	decode(t, rec, &approved)
	assert.Equal(t, domainwf.StatePendingFinance, approved.Status)

	// A repeated click carries the stale status and must not be judged against the new one
	rec = ts.do(http.MethodPost, path+"/transitions", mgr.ID, map[string]string{"trigger": "approve", "expected_status": "pending_approval"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperr.KindIllegalTransition), decode(t, rec, nil).Kind)

	rec = ts.do(http.MethodPost, path+"/transitions", emp.ID, map[string]string{"trigger": "submit", "expected_status": "pending_finance"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, path+"/history", emp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []entity.HistoryEntry
	decode(t, rec, &history)
	require.Len(t, history, 2)
	assert.Equal(t, entity.ActionSubmitted, history[0].Action)
	assert.Equal(t, "mgr", history[1].ActorID)

	rec = ts.do(http.MethodGet, "/api/claims?status=pending_finance", finance.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []*entity.Claim
	decode(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, claim.ID, listed[0].ID)

	rec = ts.do(http.MethodGet, "/api/claims?status=flying", finance.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDraftEditAndDelete(t *testing.T) {
	ts := newTestServer(t)
	claim := ts.createExpense(false)
	path := "/api/claims/" + claim.ID

	rec := ts.do(http.MethodPatch, path, emp.ID, map[string]interface{}{"payee_name": "Employee Two"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited entity.Claim
	decode(t, rec, &edited)
	assert.Equal(t, "Employee Two", edited.PayeeName)
	assert.Empty(t, edited.History)

	rec = ts.do(http.MethodDelete, path, mgr.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodDelete, path, emp.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodGet, path, emp.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateClaimRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/claims", strings.NewReader("{not json"))
	req.Header.Set(ActorHeader, emp.ID)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/claims", emp.ID, map[string]string{"kind": "lottery"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPaymentRunExportAndCancel(t *testing.T) {
	ts := newTestServer(t)
	claim := ts.createExpense(true)
	path := "/api/claims/" + claim.ID
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, path+"/transitions", mgr.ID, map[string]string{"trigger": "approve", "expected_status": "pending_approval"}).Code)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, path+"/transitions", finance.ID, map[string]string{"trigger": "approve", "expected_status": "pending_finance"}).Code)

	body := map[string]interface{}{"payee": "Employee", "claim_ids": []string{claim.ID}, "payment_date": "2026-03-01"}

	rec := ts.do(http.MethodPost, "/api/payments", emp.ID, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/payments", finance.ID, map[string]interface{}{"payee": "Employee", "claim_ids": []string{}, "payment_date": "2026-03-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(apperr.KindInvalidBatch), decode(t, rec, nil).Kind)

	rec = ts.do(http.MethodPost, "/api/payments", finance.ID, map[string]interface{}{"payee": "Employee", "claim_ids": []string{claim.ID}, "payment_date": "March"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/payments", finance.ID, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var payment entity.Payment
	decode(t, rec, &payment)
	require.Len(t, payment.Items, 1)
	// no receipt attached, so the claim still owes evidence
	assert.Equal(t, domainwf.StatePendingEvidence, payment.Items[0].ResultStatus)

	rec = ts.do(http.MethodGet, "/api/payments/"+payment.ID+"/export", finance.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), payment.ID)
	assert.NotZero(t, rec.Body.Len())

	rec = ts.do(http.MethodGet, "/api/payments/missing/export", finance.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/payments/"+payment.ID, finance.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodGet, path, emp.ID, nil)
	var reverted entity.Claim
	decode(t, rec, &reverted)
	assert.Equal(t, domainwf.StateApproved, reverted.Status)

	rec = ts.do(http.MethodGet, "/api/payments/"+payment.ID, finance.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVendorChangeOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/vendor-requests", emp.ID, map[string]interface{}{
		"change_type":   "add",
		"proposed_data": map[string]interface{}{"name": "Acme", "bank_code": "004"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var req entity.VendorChangeRequest
	decode(t, rec, &req)
	assert.Equal(t, entity.RequestPending, req.Status)

	rec = ts.do(http.MethodGet, "/api/vendor-requests", finance.ID, nil)
	var pending []*entity.VendorChangeRequest
	decode(t, rec, &pending)
	assert.Len(t, pending, 1)

	rec = ts.do(http.MethodGet, "/api/vendor-requests/"+req.ID+"/diff", finance.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var diff []entity.FieldChange
	decode(t, rec, &diff)
	assert.Len(t, diff, 2)

	decision := "/api/vendor-requests/" + req.ID + "/decision"
	rec = ts.do(http.MethodPost, decision, emp.ID, map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, decision, finance.ID, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, decision, finance.ID, map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, decision, finance.ID, map[string]string{"decision": "reject"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/api/vendors", emp.ID, nil)
	var vendors []*entity.Vendor
	decode(t, rec, &vendors)
	require.Len(t, vendors, 1)
	assert.Equal(t, "Acme", vendors[0].Name)

	rec = ts.do(http.MethodGet, "/api/vendors/"+vendors[0].ID, emp.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadAttachment(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "taxi receipt.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(ActorHeader, emp.ID)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]string
	decode(t, rec, &out)
	assert.True(t, strings.HasPrefix(out["url"], storage.LocalScheme), out["url"])

	rec = ts.do(http.MethodPost, "/api/attachments", emp.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Unauthorized("x"), http.StatusForbidden},
		{apperr.IllegalTransition("x"), http.StatusConflict},
		{apperr.StaleBatchState("x"), http.StatusConflict},
		{apperr.ValidationFailed("x"), http.StatusUnprocessableEntity},
		{apperr.InvalidBatch("x"), http.StatusUnprocessableEntity},
		{apperr.NotFound("x"), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
