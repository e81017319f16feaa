package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/models"
	"github.com/swipeclean/triage-api/internal/service"
	"github.com/swipeclean/triage-api/pkg/response"
)

func newLibraryFixture(lib *libraryMock) *LibraryHandler {
	cluster := service.NewClusterService(8*time.Second, 800)
	svc := service.NewLibraryService(lib, cluster, nil, nil, zap.NewNop(), 50, service.LibraryServiceConfig{})
	return NewLibraryHandler(svc)
}

func TestLibraryHandlerPhotosPage(t *testing.T) {
	h := newLibraryFixture(&libraryMock{records: []models.PhotoRecord{photoFixture("a", 1), photoFixture("b", 2)}})

	c, w := authedContext(t, http.MethodGet, "/library/photos?limit=10", nil)
	h.Photos(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.PhotoRecord `json:"data"`
		Page *response.PageInfo   `json:"page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	require.NotNil(t, envelope.Page)
	assert.Equal(t, 2, envelope.Page.TotalCount)
	assert.False(t, envelope.Page.HasMore)
}

func TestLibraryHandlerPhotosLoadFailure(t *testing.T) {
	h := newLibraryFixture(&libraryMock{err: assert.AnError})

	c, w := authedContext(t, http.MethodGet, "/library/photos", nil)
	h.Photos(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestLibraryHandlerSimilar(t *testing.T) {
	h := newLibraryFixture(&libraryMock{records: []models.PhotoRecord{
		photoFixture("a", 0),
		photoFixture("b", 3000),
		photoFixture("c", 60000),
	}})

	c, w := authedContext(t, http.MethodGet, "/library/similar", nil)
	h.Similar(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.SimilarGroup `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Len(t, envelope.Data[0].Photos, 2)
}

func TestLibraryHandlerLowQuality(t *testing.T) {
	records := []models.PhotoRecord{
		{ID: "hq", CreatedAt: 1, Width: 4032, Height: 3024},
		{ID: "lq", CreatedAt: 2, Width: 640, Height: 480},
	}
	h := newLibraryFixture(&libraryMock{records: records})

	c, w := authedContext(t, http.MethodGet, "/library/low-quality", nil)
	h.LowQuality(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.PhotoRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "lq", envelope.Data[0].ID)
}
