package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/models"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
	"github.com/swipeclean/triage-api/pkg/jobs"
)

type decisionKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// DecisionStore is the durable bookkeeping of triage outcomes for one user:
// the soft-deleted entries (most-recent-first, full records), the kept ids
// (decision order) and a single-slot undo memory. In-memory state is
// authoritative; every mutation schedules an asynchronous best-effort
// write-through of the full list snapshot to the key-value store.
type DecisionStore struct {
	userID  string
	deleted []models.PhotoRecord
	keptIDs []string
	last    *models.LastAction
	loaded  bool

	// latest enqueued snapshot sequence per key; a retried write that is
	// older than the latest enqueued one is skipped instead of clobbering it.
	seqs map[string]uint64

	mu      sync.Mutex
	manager *DecisionManager
}

func (s *DecisionStore) deletedKey() string {
	return fmt.Sprintf("triage:decisions:%s:deleted", s.userID)
}

func (s *DecisionStore) keptKey() string {
	return fmt.Sprintf("triage:decisions:%s:kept", s.userID)
}

// Load hydrates both lists from the key-value store. A missing key means an
// empty list; read failures degrade to empty lists rather than blocking the
// session. The loaded flag turns true only after both keys were attempted.
// Hydration runs at most once per store; a second Load is a no-op so it can
// never overwrite decisions recorded after the first one finished.
func (s *DecisionStore) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}

	if raw, err := s.manager.kv.Get(ctx, s.deletedKey()); err == nil {
		var entries []models.PhotoRecord
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			s.manager.logger.Warn("corrupt deleted snapshot, starting empty",
				zap.String("user_id", s.userID), zap.Error(err))
		} else {
			s.deleted = entries
		}
	} else if appErrors.FromError(err).Code != appErrors.ErrKeyMiss.Code {
		s.manager.logger.Warn("failed to load deleted snapshot",
			zap.String("user_id", s.userID), zap.Error(err))
	}

	if raw, err := s.manager.kv.Get(ctx, s.keptKey()); err == nil {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			s.manager.logger.Warn("corrupt kept snapshot, starting empty",
				zap.String("user_id", s.userID), zap.Error(err))
		} else {
			s.keptIDs = ids
		}
	} else if appErrors.FromError(err).Code != appErrors.ErrKeyMiss.Code {
		s.manager.logger.Warn("failed to load kept snapshot",
			zap.String("user_id", s.userID), zap.Error(err))
	}

	s.loaded = true
}

// Loaded reports whether both persisted lists have been loaded.
func (s *DecisionStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// RecordDeleted prepends photo to the deleted list and arms the undo slot.
// Recording an id that already carries a decision is a no-op.
func (s *DecisionStore) RecordDeleted(photo models.PhotoRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decidedLocked(photo.ID) {
		return false
	}
	s.deleted = append([]models.PhotoRecord{photo}, s.deleted...)
	s.last = &models.LastAction{Outcome: models.DecisionDeleted, Photo: photo}
	s.persistDeletedLocked()
	return true
}

// RecordKept appends photo.ID to the kept list and arms the undo slot.
// Recording an id that already carries a decision is a no-op.
func (s *DecisionStore) RecordKept(photo models.PhotoRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decidedLocked(photo.ID) {
		return false
	}
	s.keptIDs = append(s.keptIDs, photo.ID)
	s.last = &models.LastAction{Outcome: models.DecisionKept, Photo: photo}
	s.persistKeptLocked()
	return true
}

// RecoverOne removes id from the deleted list, returning the recovered
// record when present. The undo slot is left untouched.
func (s *DecisionStore) RecoverOne(id string) *models.PhotoRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.deleted {
		if entry.ID == id {
			recovered := entry
			s.deleted = append(s.deleted[:i], s.deleted[i+1:]...)
			s.persistDeletedLocked()
			return &recovered
		}
	}
	return nil
}

// RecoverAll empties the deleted list and returns the recovered records.
// Calling it on an already-empty list persists the same empty snapshot.
func (s *DecisionStore) RecoverAll() []models.PhotoRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	recovered := s.deleted
	s.deleted = nil
	s.persistDeletedLocked()
	return recovered
}

// RemoveFromDeleted bulk-removes ids after a permanent purge and returns the
// ids that were actually present.
func (s *DecisionStore) RemoveFromDeleted(ids []string) []string {
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]string, 0, len(ids))
	remaining := s.deleted[:0]
	for _, entry := range s.deleted {
		if _, ok := idSet[entry.ID]; ok {
			removed = append(removed, entry.ID)
			continue
		}
		remaining = append(remaining, entry)
	}
	s.deleted = remaining
	s.persistDeletedLocked()
	return removed
}

// UndoLast reverses the most recent decision, clears the undo slot and
// returns the reversed action. A no-op when the slot is empty.
func (s *DecisionStore) UndoLast() *models.LastAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	action := *s.last
	s.last = nil

	switch action.Outcome {
	case models.DecisionDeleted:
		for i, entry := range s.deleted {
			if entry.ID == action.Photo.ID {
				s.deleted = append(s.deleted[:i], s.deleted[i+1:]...)
				break
			}
		}
		s.persistDeletedLocked()
	case models.DecisionKept:
		for i, id := range s.keptIDs {
			if id == action.Photo.ID {
				s.keptIDs = append(s.keptIDs[:i], s.keptIDs[i+1:]...)
				break
			}
		}
		s.persistKeptLocked()
	}
	return &action
}

// LastAction returns a copy of the undo slot, nil when empty.
func (s *DecisionStore) LastAction() *models.LastAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	action := *s.last
	return &action
}

// DeletedEntries returns a copy of the deleted list, most-recent-first.
func (s *DecisionStore) DeletedEntries() []models.PhotoRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]models.PhotoRecord, len(s.deleted))
	copy(entries, s.deleted)
	return entries
}

// DeletedIDs returns the ids of the deleted list, most-recent-first.
func (s *DecisionStore) DeletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.deleted))
	for i, entry := range s.deleted {
		ids[i] = entry.ID
	}
	return ids
}

// KeptIDs returns a copy of the kept-id list in decision order.
func (s *DecisionStore) KeptIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.keptIDs))
	copy(ids, s.keptIDs)
	return ids
}

// IsDecided reports whether id carries an active decision.
func (s *DecisionStore) IsDecided(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decidedLocked(id)
}

func (s *DecisionStore) decidedLocked(id string) bool {
	for _, entry := range s.deleted {
		if entry.ID == id {
			return true
		}
	}
	for _, kept := range s.keptIDs {
		if kept == id {
			return true
		}
	}
	return false
}

func (s *DecisionStore) persistDeletedLocked() {
	payload, err := json.Marshal(s.deleted)
	if err != nil {
		s.manager.logger.Warn("failed to serialize deleted snapshot", zap.Error(err))
		return
	}
	s.enqueueSnapshotLocked(s.deletedKey(), string(payload))
}

func (s *DecisionStore) persistKeptLocked() {
	payload, err := json.Marshal(s.keptIDs)
	if err != nil {
		s.manager.logger.Warn("failed to serialize kept snapshot", zap.Error(err))
		return
	}
	s.enqueueSnapshotLocked(s.keptKey(), string(payload))
}

func (s *DecisionStore) enqueueSnapshotLocked(key, value string) {
	s.seqs[key]++
	snapshot := persistSnapshot{store: s, key: key, value: value, seq: s.seqs[key]}
	if err := s.manager.queue.Enqueue(jobs.Job{ID: key, Type: "persist-snapshot", Payload: snapshot}); err != nil {
		// Durability degrades silently; in-memory state stays authoritative.
		s.manager.logger.Warn("failed to schedule snapshot write",
			zap.String("key", key), zap.Error(err))
	}
}

func (s *DecisionStore) isLatest(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq >= s.seqs[key]
}

type persistSnapshot struct {
	store *DecisionStore
	key   string
	value string
	seq   uint64
}

// DecisionManager owns one DecisionStore per user and the shared
// single-worker write-through queue. Constructed in main and injected; no
// package-level state.
type DecisionManager struct {
	kv     decisionKV
	logger *zap.Logger
	queue  *jobs.Queue

	mu     sync.Mutex
	stores map[string]*DecisionStore
}

// NewDecisionManager constructs the manager and its persistence queue.
func NewDecisionManager(kv decisionKV, logger *zap.Logger) *DecisionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &DecisionManager{
		kv:     kv,
		logger: logger,
		stores: make(map[string]*DecisionStore),
	}
	m.queue = jobs.NewQueue("decision-persist", m.handlePersist, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 256,
		MaxRetries: 2,
		Logger:     logger,
	})
	return m
}

// Start begins processing snapshot writes.
func (m *DecisionManager) Start(ctx context.Context) {
	m.queue.Start(ctx)
}

// Stop drains the persistence queue workers.
func (m *DecisionManager) Stop() {
	m.queue.Stop()
}

// GetOrCreate returns the store for userID, loading persisted state on first
// access.
func (m *DecisionManager) GetOrCreate(ctx context.Context, userID string) *DecisionStore {
	m.mu.Lock()
	store, ok := m.stores[userID]
	if !ok {
		store = &DecisionStore{
			userID:  userID,
			seqs:    make(map[string]uint64),
			manager: m,
		}
		m.stores[userID] = store
	}
	m.mu.Unlock()

	if !store.Loaded() {
		store.Load(ctx)
	}
	return store
}

func (m *DecisionManager) handlePersist(ctx context.Context, job jobs.Job) error {
	snapshot, ok := job.Payload.(persistSnapshot)
	if !ok {
		m.logger.Warn("unexpected persist payload", zap.String("job_id", job.ID))
		return nil
	}
	// A newer snapshot for this key supersedes this one.
	if !snapshot.store.isLatest(snapshot.key, snapshot.seq) {
		return nil
	}
	if err := m.kv.Set(ctx, snapshot.key, snapshot.value); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message)
	}
	return nil
}
