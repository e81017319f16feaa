package service

import (
	"sort"
	"time"

	"github.com/swipeclean/triage-api/internal/models"
)

// ClusterService derives similarity groups and the low-quality subset from a
// photo collection. Both derivations are pure and deterministic; callers may
// recompute them on every change.
type ClusterService struct {
	proximityWindow time.Duration
	lowQualityMinPx int
}

// NewClusterService constructs the engine with the given proximity window
// (burst grouping) and minimum pixel dimension (low-quality threshold).
func NewClusterService(proximityWindow time.Duration, lowQualityMinPx int) *ClusterService {
	if proximityWindow <= 0 {
		proximityWindow = 8 * time.Second
	}
	if lowQualityMinPx <= 0 {
		lowQualityMinPx = 800
	}
	return &ClusterService{
		proximityWindow: proximityWindow,
		lowQualityMinPx: lowQualityMinPx,
	}
}

// DetectSimilarGroups partitions records into burst groups: a single
// left-to-right scan over a created_at-ascending copy where a gap larger
// than the proximity window always starts a new run, even if the photo is
// transitively close to a later one. Runs shorter than two are dropped.
func (s *ClusterService) DetectSimilarGroups(records []models.PhotoRecord) []models.SimilarGroup {
	if len(records) < 2 {
		return nil
	}

	sorted := make([]models.PhotoRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	windowMs := s.proximityWindow.Milliseconds()
	var groups []models.SimilarGroup
	run := []models.PhotoRecord{sorted[0]}

	for _, record := range sorted[1:] {
		if record.CreatedAt-run[len(run)-1].CreatedAt <= windowMs {
			run = append(run, record)
			continue
		}
		if len(run) >= 2 {
			groups = append(groups, models.SimilarGroup{Photos: run})
		}
		run = []models.PhotoRecord{record}
	}
	if len(run) >= 2 {
		groups = append(groups, models.SimilarGroup{Photos: run})
	}
	return groups
}

// DetectLowQuality filters records whose known dimensions fall under the
// threshold. Records with width 0 have unknown dimensions and are not
// assessable, so they are excluded. Input order is preserved.
func (s *ClusterService) DetectLowQuality(records []models.PhotoRecord) []models.PhotoRecord {
	var result []models.PhotoRecord
	for _, record := range records {
		if record.Width <= 0 {
			continue
		}
		if record.Width < s.lowQualityMinPx || record.Height < s.lowQualityMinPx {
			result = append(result, record)
		}
	}
	return result
}
