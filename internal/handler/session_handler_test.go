package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/dto"
	"github.com/swipeclean/triage-api/internal/middleware"
	"github.com/swipeclean/triage-api/internal/models"
	"github.com/swipeclean/triage-api/internal/service"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
	"github.com/swipeclean/triage-api/pkg/response"
)

type kvMock struct {
	mu   sync.Mutex
	data map[string]string
}

func newKVMock() *kvMock {
	return &kvMock{data: make(map[string]string)}
}

func (m *kvMock) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", appErrors.ErrKeyMiss
	}
	return value, nil
}

func (m *kvMock) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type libraryMock struct {
	records []models.PhotoRecord
	err     error
	purged  [][]string
}

func (m *libraryMock) GetPage(ctx context.Context, ownerID, cursor string, limit int) (*models.PhotoPage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.PhotoPage{
		Records:    m.records,
		TotalCount: len(m.records),
		HasMore:    false,
	}, nil
}

func (m *libraryMock) Purge(ctx context.Context, ownerID string, ids []string) error {
	if m.err != nil {
		return m.err
	}
	m.purged = append(m.purged, ids)
	return nil
}

func photoFixture(id string, createdAt int64) models.PhotoRecord {
	return models.PhotoRecord{ID: id, DisplayName: id + ".jpg", CreatedAt: createdAt, Width: 4032, Height: 3024}
}

func newSessionFixture(t *testing.T, lib *libraryMock) (*SessionHandler, *service.SessionManager, func()) {
	t.Helper()
	decisions := service.NewDecisionManager(newKVMock(), zap.NewNop())
	decisions.Start(context.Background())
	sessions := service.NewSessionManager(decisions, lib, zap.NewNop(), 50)
	stop := func() {
		sessions.Close()
		decisions.Stop()
	}
	return NewSessionHandler(sessions), sessions, stop
}

func authedContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})
	return c, w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) dto.SessionSnapshot {
	t.Helper()
	var envelope struct {
		Data dto.SessionSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestSessionHandlerStartAndSnapshot(t *testing.T) {
	h, _, stop := newSessionFixture(t, &libraryMock{records: []models.PhotoRecord{photoFixture("a", 1), photoFixture("b", 2)}})
	defer stop()

	c, w := authedContext(t, http.MethodPost, "/session/start", nil)
	h.Start(c)
	require.Equal(t, http.StatusCreated, w.Code)
	snapshot := decodeSnapshot(t, w)
	assert.Equal(t, 2, snapshot.QueueLength)
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, "a", snapshot.Current.ID)

	c, w = authedContext(t, http.MethodGet, "/session", nil)
	h.Snapshot(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeSnapshot(t, w).QueueLength)
}

func TestSessionHandlerRequiresSession(t *testing.T) {
	h, _, stop := newSessionFixture(t, &libraryMock{})
	defer stop()

	c, w := authedContext(t, http.MethodGet, "/session", nil)
	h.Snapshot(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandlerRequiresAuth(t *testing.T) {
	h, _, stop := newSessionFixture(t, &libraryMock{})
	defer stop()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/session", nil)
	c.Request = req

	h.Snapshot(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandlerDecide(t *testing.T) {
	h, sessions, stop := newSessionFixture(t, &libraryMock{records: []models.PhotoRecord{photoFixture("a", 1), photoFixture("b", 2)}})
	defer stop()
	_, err := sessions.Start(context.Background(), "user-1")
	require.NoError(t, err)

	c, w := authedContext(t, http.MethodPost, "/session/decide", dto.DecideRequest{Outcome: "deleted"})
	h.Decide(c)
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decodeSnapshot(t, w)
	assert.Equal(t, 1, snapshot.QueueLength)
	assert.Equal(t, 1, snapshot.ReviewedCount)
	require.NotNil(t, snapshot.LastAction)
	assert.Equal(t, models.DecisionDeleted, snapshot.LastAction.Outcome)
}

func TestSessionHandlerDecideRejectsUnknownOutcome(t *testing.T) {
	h, sessions, stop := newSessionFixture(t, &libraryMock{records: []models.PhotoRecord{photoFixture("a", 1)}})
	defer stop()
	_, err := sessions.Start(context.Background(), "user-1")
	require.NoError(t, err)

	c, w := authedContext(t, http.MethodPost, "/session/decide", dto.DecideRequest{Outcome: "maybe"})
	h.Decide(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestSessionHandlerSkipAndUndo(t *testing.T) {
	h, sessions, stop := newSessionFixture(t, &libraryMock{records: []models.PhotoRecord{photoFixture("a", 1), photoFixture("b", 2), photoFixture("c", 3)}})
	defer stop()
	_, err := sessions.Start(context.Background(), "user-1")
	require.NoError(t, err)

	c, w := authedContext(t, http.MethodPost, "/session/decide", dto.DecideRequest{Outcome: "kept"})
	h.Decide(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = authedContext(t, http.MethodPost, "/session/skip", nil)
	h.Skip(c)
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decodeSnapshot(t, w)
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, "c", snapshot.Current.ID)

	c, w = authedContext(t, http.MethodPost, "/session/undo", nil)
	h.Undo(c)
	require.Equal(t, http.StatusOK, w.Code)
	snapshot = decodeSnapshot(t, w)
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, "a", snapshot.Current.ID)
	assert.Equal(t, 0, snapshot.ReviewedCount)
}

func TestSessionHandlerResume(t *testing.T) {
	h, sessions, stop := newSessionFixture(t, &libraryMock{records: []models.PhotoRecord{photoFixture("a", 1)}})
	defer stop()
	_, err := sessions.Start(context.Background(), "user-1")
	require.NoError(t, err)

	c, w := authedContext(t, http.MethodPost, "/session/resume", nil)
	h.Resume(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestSessionHandlerStartLoadFailure(t *testing.T) {
	h, _, stop := newSessionFixture(t, &libraryMock{err: assert.AnError})
	defer stop()

	c, w := authedContext(t, http.MethodPost, "/session/start", nil)
	h.Start(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrLoadFailed.Code, envelope.Error.Code)
}
