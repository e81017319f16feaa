package service

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/swipeclean/triage-api/pkg/errors"
)

type purgeLibrary interface {
	Purge(ctx context.Context, ownerID string, ids []string) error
}

// PurgeService orchestrates permanent deletion: the library purge runs
// first, and only a successful purge removes the entries from the deleted
// list. A failed or cancelled purge leaves every entry recoverable.
type PurgeService struct {
	library purgeLibrary
	logger  *zap.Logger
}

// NewPurgeService constructs a PurgeService.
func NewPurgeService(library purgeLibrary, logger *zap.Logger) *PurgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurgeService{library: library, logger: logger}
}

// Purge permanently deletes the given soft-deleted photos for the store's
// user. An empty id list purges the whole deleted list. Ids without a
// deleted entry are ignored.
func (s *PurgeService) Purge(ctx context.Context, ownerID string, store *DecisionStore, ids []string) ([]string, error) {
	if len(ids) == 0 {
		ids = store.DeletedIDs()
	} else {
		eligible := make([]string, 0, len(ids))
		deleted := make(map[string]struct{})
		for _, id := range store.DeletedIDs() {
			deleted[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := deleted[id]; ok {
				eligible = append(eligible, id)
			}
		}
		ids = eligible
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.library.Purge(ctx, ownerID, ids); err != nil {
		s.logger.Warn("permanent delete failed, entries kept recoverable",
			zap.String("owner_id", ownerID), zap.Int("count", len(ids)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPurgeFailed.Code, appErrors.ErrPurgeFailed.Status, "permanent delete failed")
	}

	removed := store.RemoveFromDeleted(ids)
	return removed, nil
}
