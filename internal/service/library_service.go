package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/models"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
)

type libraryKV interface {
	Get(ctx context.Context, key string) (string, error)
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LibraryServiceConfig tunes cache behaviour for derived views.
type LibraryServiceConfig struct {
	SimilarCacheTTL time.Duration
}

// LibraryService exposes paginated reads over the photo library plus the
// derived similar-group and low-quality views. Derived views are recomputed
// from the full collection; the similar-group result is cached under a
// fingerprint of the photo set so unrelated state changes skip the
// recomputation without changing observable output.
type LibraryService struct {
	library  sessionLibrary
	cluster  *ClusterService
	kv       libraryKV
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
	pageSize int

	mu       sync.Mutex
	lastKeys map[string]string
}

// NewLibraryService constructs a LibraryService.
func NewLibraryService(library sessionLibrary, cluster *ClusterService, kv libraryKV, metrics *MetricsService, logger *zap.Logger, pageSize int, cfg LibraryServiceConfig) *LibraryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	ttl := cfg.SimilarCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LibraryService{
		library:  library,
		cluster:  cluster,
		kv:       kv,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: ttl,
		pageSize: pageSize,
		lastKeys: make(map[string]string),
	}
}

// GetPage returns one page of the owner's library, created_at ascending.
func (s *LibraryService) GetPage(ctx context.Context, ownerID, cursor string, limit int) (*models.PhotoPage, error) {
	if limit <= 0 || limit > 200 {
		limit = s.pageSize
	}
	page, err := s.library.GetPage(ctx, ownerID, cursor, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "library page load failed")
	}
	return page, nil
}

// SimilarGroups returns burst groups over the whole library.
func (s *LibraryService) SimilarGroups(ctx context.Context, ownerID string) ([]models.SimilarGroup, error) {
	records, err := s.loadAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	cacheKey := s.fingerprint(ownerID, records)
	s.dropSuperseded(ctx, ownerID, cacheKey)
	if cached, ok := s.cachedGroups(ctx, cacheKey); ok {
		return cached, nil
	}

	groups := s.cluster.DetectSimilarGroups(records)
	s.storeGroups(ctx, cacheKey, groups)
	return groups, nil
}

// LowQuality returns the low-resolution subset over the whole library.
func (s *LibraryService) LowQuality(ctx context.Context, ownerID string) ([]models.PhotoRecord, error) {
	records, err := s.loadAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.cluster.DetectLowQuality(records), nil
}

func (s *LibraryService) loadAll(ctx context.Context, ownerID string) ([]models.PhotoRecord, error) {
	var records []models.PhotoRecord
	cursor := ""
	for {
		page, err := s.library.GetPage(ctx, ownerID, cursor, s.pageSize)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "library load failed")
		}
		records = append(records, page.Records...)
		if !page.HasMore {
			return records, nil
		}
		cursor = page.NextCursor
	}
}

// fingerprint keys the cache on owner, collection size and newest id, which
// together change whenever the photo set does.
func (s *LibraryService) fingerprint(ownerID string, records []models.PhotoRecord) string {
	lastID := ""
	if len(records) > 0 {
		lastID = records[len(records)-1].ID
	}
	return fmt.Sprintf("triage:similar:%s:%d:%s", ownerID, len(records), lastID)
}

// dropSuperseded evicts the owner's previous cache entry once the photo set
// fingerprint changes, so stale groups do not linger until their TTL.
func (s *LibraryService) dropSuperseded(ctx context.Context, ownerID, key string) {
	if s.kv == nil {
		return
	}
	s.mu.Lock()
	prev := s.lastKeys[ownerID]
	s.lastKeys[ownerID] = key
	s.mu.Unlock()
	if prev == "" || prev == key {
		return
	}
	if err := s.kv.Delete(ctx, prev); err != nil {
		s.logger.Warn("failed to evict superseded similar-group cache entry",
			zap.String("key", prev), zap.Error(err))
	}
}

func (s *LibraryService) cachedGroups(ctx context.Context, key string) ([]models.SimilarGroup, bool) {
	if s.kv == nil {
		return nil, false
	}
	start := time.Now()
	raw, err := s.kv.Get(ctx, key)
	hit := err == nil
	s.metrics.RecordCacheOperation(hit, time.Since(start))
	if !hit {
		return nil, false
	}
	var groups []models.SimilarGroup
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		s.logger.Warn("corrupt similar-group cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return groups, true
}

func (s *LibraryService) storeGroups(ctx context.Context, key string, groups []models.SimilarGroup) {
	if s.kv == nil {
		return
	}
	payload, err := json.Marshal(groups)
	if err != nil {
		return
	}
	start := time.Now()
	if err := s.kv.SetTTL(ctx, key, string(payload), s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache similar groups", zap.String("key", key), zap.Error(err))
		return
	}
	s.metrics.ObserveCacheWrite(time.Since(start))
}
