package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/logging"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/auth"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/models"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/services"
)

const testSecret = "test-secret"

type fakeUsers struct {
	pair *services.TokenPair
	err  error

	registered []string
}

func (f *fakeUsers) Register(ctx context.Context, username, password string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = append(f.registered, username)
	return &models.User{ID: "user-new", UserName: username}, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (*services.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pair, nil
}

type fakeDocuments struct {
	hydrateDoc   *models.Document
	hydrateLines []*models.Line
	hydrateErr   error

	saveOut *services.SaveOutcome
	saveErr error

	gotUserID string
	gotKind   string
	gotKey    string
	gotReq    *services.SaveRequest
}

func (f *fakeDocuments) Hydrate(ctx context.Context, userID, kind, key string) (*models.Document, []*models.Line, error) {
	f.gotUserID, f.gotKind, f.gotKey = userID, kind, key
	if f.hydrateErr != nil {
		return nil, nil, f.hydrateErr
	}
	return f.hydrateDoc, f.hydrateLines, nil
}

func (f *fakeDocuments) Save(ctx context.Context, userID, kind, key string, req *services.SaveRequest) (*services.SaveOutcome, error) {
	f.gotUserID, f.gotKind, f.gotKey, f.gotReq = userID, kind, key, req
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return f.saveOut, nil
}

func newTestServer(t *testing.T, users *fakeUsers, docs *fakeDocuments) *httptest.Server {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewServer(":0", logger, users, docs, testSecret)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func mintTokens(t *testing.T, userID string) (session, csrf string) {
	t.Helper()
	var err error
	session, err = auth.GenerateToken(userID, auth.KindSession, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	csrf, err = auth.GenerateToken(userID, auth.KindCSRF, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return session, csrf
}

func TestRegisterEndpoint(t *testing.T) {
	users := &fakeUsers{}
	ts := newTestServer(t, users, &fakeDocuments{})

	resp, err := http.Post(ts.URL+"/api/register", "application/json",
		bytes.NewBufferString(`{"username":"bob","password":"hunter2"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{"bob"}, users.registered)
}

func TestRegisterEndpoint_MissingFields(t *testing.T) {
	ts := newTestServer(t, &fakeUsers{}, &fakeDocuments{})

	resp, err := http.Post(ts.URL+"/api/register", "application/json",
		bytes.NewBufferString(`{"username":"bob"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginEndpoint(t *testing.T) {
	users := &fakeUsers{pair: &services.TokenPair{SessionToken: "s", CSRFToken: "c"}}
	ts := newTestServer(t, users, &fakeDocuments{})

	resp, err := http.Post(ts.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"username":"alice","password":"pa55"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		SessionToken string `json:"session_token"`
		CSRFToken    string `json:"csrf_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "s", body.SessionToken)
	assert.Equal(t, "c", body.CSRFToken)
}

func TestLoginEndpoint_InvalidCredentials(t *testing.T) {
	users := &fakeUsers{err: common.ErrorUnauthorized}
	ts := newTestServer(t, users, &fakeDocuments{})

	resp, err := http.Post(ts.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"username":"alice","password":"wrong"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSaveEndpoint_RequiresSession(t *testing.T) {
	ts := newTestServer(t, &fakeUsers{}, &fakeDocuments{})

	resp, err := http.Post(ts.URL+"/api/timesheets/save", "application/json",
		bytes.NewBufferString(`{"key":"2026-08-28","record":{}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSaveEndpoint_RequiresCSRF(t *testing.T) {
	ts := newTestServer(t, &fakeUsers{}, &fakeDocuments{})
	session, _ := mintTokens(t, "user-1")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/timesheets/save",
		bytes.NewBufferString(`{"key":"2026-08-28","record":{}}`))
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSaveEndpoint_RejectsSessionTokenAsCSRF(t *testing.T) {
	ts := newTestServer(t, &fakeUsers{}, &fakeDocuments{})
	session, _ := mintTokens(t, "user-1")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/timesheets/save",
		bytes.NewBufferString(`{"key":"2026-08-28","record":{}}`))
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)
	req.Header.Set(common.CSRFTokenHeaderName, session)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSaveEndpoint_Success(t *testing.T) {
	docs := &fakeDocuments{
		saveOut: &services.SaveOutcome{
			Success: true,
			ID:      "doc-1",
			Number:  "TS-000001",
			LineIDs: map[string]string{"row-a": "srv-1"},
		},
	}
	ts := newTestServer(t, &fakeUsers{}, docs)
	session, csrf := mintTokens(t, "user-1")

	payload := `{
		"key": "2026-08-28",
		"record": {"staff": "alice"},
		"line_items": [{"key":"row-a","cells":{"hours":"4"}}],
		"deleted_line_items": ["line-9"]
	}`
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/timesheets/save", bytes.NewBufferString(payload))
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)
	req.Header.Set(common.CSRFTokenHeaderName, csrf)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "user-1", docs.gotUserID)
	assert.Equal(t, "timesheet", docs.gotKind)
	assert.Equal(t, "2026-08-28", docs.gotKey)
	require.Len(t, docs.gotReq.Lines, 1)
	assert.Equal(t, "row-a", docs.gotReq.Lines[0].Key)
	assert.Equal(t, []string{"line-9"}, docs.gotReq.DeletedLineIDs)

	var body struct {
		Success bool              `json:"success"`
		ID      string            `json:"id"`
		Number  string            `json:"number"`
		LineIDs map[string]string `json:"line_ids"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "doc-1", body.ID)
	assert.Equal(t, "TS-000001", body.Number)
	assert.Equal(t, "srv-1", body.LineIDs["row-a"])
}

func TestSaveEndpoint_BusinessRejectionIs200(t *testing.T) {
	docs := &fakeDocuments{
		saveOut: &services.SaveOutcome{
			Success:  false,
			Messages: []services.SaveMessage{{Level: "error", Message: "Missing supplier"}},
		},
	}
	ts := newTestServer(t, &fakeUsers{}, docs)
	session, csrf := mintTokens(t, "user-1")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/purchase_orders/save",
		bytes.NewBufferString(`{"key":"job-77","record":{}}`))
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)
	req.Header.Set(common.CSRFTokenHeaderName, csrf)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success  bool `json:"success"`
		Messages []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "Missing supplier", body.Messages[0].Message)
}

func TestSaveEndpoint_InternalError(t *testing.T) {
	docs := &fakeDocuments{saveErr: errors.New("db down")}
	ts := newTestServer(t, &fakeUsers{}, docs)
	session, csrf := mintTokens(t, "user-1")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/timesheets/save",
		bytes.NewBufferString(`{"key":"x","record":{}}`))
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)
	req.Header.Set(common.CSRFTokenHeaderName, csrf)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHydrateEndpoint(t *testing.T) {
	docs := &fakeDocuments{
		hydrateDoc: &models.Document{
			ID:     "doc-1",
			Number: "PO-000002",
			Fields: map[string]string{"supplier": "Acme"},
		},
		hydrateLines: []*models.Line{
			{ID: "line-1", Cells: map[string]string{"quantity": "3"}},
		},
	}
	ts := newTestServer(t, &fakeUsers{}, docs)
	session, _ := mintTokens(t, "user-1")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/purchase_orders/job-77", nil)
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		ID        string            `json:"id"`
		Number    string            `json:"number"`
		Record    map[string]string `json:"record"`
		LineItems []struct {
			ID    string            `json:"id"`
			Cells map[string]string `json:"cells"`
		} `json:"line_items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "doc-1", body.ID)
	assert.Equal(t, "Acme", body.Record["supplier"])
	require.Len(t, body.LineItems, 1)
	assert.Equal(t, "line-1", body.LineItems[0].ID)
}

func TestHydrateEndpoint_NotFound(t *testing.T) {
	docs := &fakeDocuments{hydrateErr: common.ErrorNotFound}
	ts := newTestServer(t, &fakeUsers{}, docs)
	session, _ := mintTokens(t, "user-1")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/timesheets/nope", nil)
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHydrateEndpoint_UnknownCollection(t *testing.T) {
	ts := newTestServer(t, &fakeUsers{}, &fakeDocuments{})
	session, _ := mintTokens(t, "user-1")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/invoices/x", nil)
	require.NoError(t, err)
	req.Header.Set(common.SessionTokenHeaderName, session)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPingEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeUsers{}, &fakeDocuments{})

	resp, err := http.Get(ts.URL + "/api/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
