package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/dto"
	"github.com/swipeclean/triage-api/internal/models"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
)

type sessionLibrary interface {
	GetPage(ctx context.Context, ownerID, cursor string, limit int) (*models.PhotoPage, error)
}

// ReviewSession drives one-at-a-time triage over a user's undecided backlog.
// The head of the queue is the item shown to the user; mutations are
// serialized behind one lock so a mutation completes before the next is
// accepted. Boundary-invalid calls (decide on empty, skip of a single item,
// undo with an empty slot) are defined no-ops, not errors.
type ReviewSession struct {
	ownerID  string
	store    *DecisionStore
	library  sessionLibrary
	logger   *zap.Logger
	pageSize int

	mu            sync.Mutex
	queue         []models.PhotoRecord
	reviewedCount int
	totalCount    int
	cursor        string
	hasMore       bool
	loadErr       string
	loading       bool

	cancel context.CancelFunc
}

// Start performs the initial page load synchronously, fixes totalCount from
// it, then continues paginating the rest of the library in the background.
func (s *ReviewSession) Start(ctx context.Context) error {
	page, err := s.library.GetPage(ctx, s.ownerID, "", s.pageSize)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "initial library load failed")
	}

	s.mu.Lock()
	s.totalCount = page.TotalCount
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	s.appendLocked(page.Records)
	s.mu.Unlock()

	s.resumeBackgroundLoad()
	return nil
}

// ResumeLoad retries background pagination after a load failure, continuing
// from the last good cursor. Already-loaded state is untouched.
func (s *ReviewSession) ResumeLoad() {
	s.mu.Lock()
	s.loadErr = ""
	s.mu.Unlock()
	s.resumeBackgroundLoad()
}

func (s *ReviewSession) resumeBackgroundLoad() {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		s.mu.Unlock()
		return
	}
	s.loading = true
	// The previous loop has already exited; release its context before
	// replacing the cancel func.
	if s.cancel != nil {
		s.cancel()
	}
	bgCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.loadRemaining(bgCtx)
}

// loadRemaining is the cooperative pagination loop. Each page append is
// atomic under the session lock; teardown supersedes it via context.
func (s *ReviewSession) loadRemaining(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		cursor, hasMore := s.cursor, s.hasMore
		s.mu.Unlock()
		if !hasMore || ctx.Err() != nil {
			return
		}

		page, err := s.library.GetPage(ctx, s.ownerID, cursor, s.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			s.loadErr = appErrors.ErrLoadFailed.Message
			s.mu.Unlock()
			s.logger.Warn("background pagination failed",
				zap.String("owner_id", s.ownerID), zap.Error(err))
			return
		}

		s.mu.Lock()
		s.cursor = page.NextCursor
		s.hasMore = page.HasMore
		s.appendLocked(page.Records)
		s.mu.Unlock()
	}
}

// AppendPage filters out already-decided records and appends the remainder
// to the tail of the queue.
func (s *ReviewSession) AppendPage(records []models.PhotoRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(records)
}

func (s *ReviewSession) appendLocked(records []models.PhotoRecord) {
	queued := make(map[string]struct{}, len(s.queue))
	for _, record := range s.queue {
		queued[record.ID] = struct{}{}
	}
	for _, record := range records {
		if _, ok := queued[record.ID]; ok {
			continue
		}
		if s.store.IsDecided(record.ID) {
			continue
		}
		s.queue = append(s.queue, record)
	}
}

// Decide records the given outcome for the queue head and advances. A no-op
// when the queue is empty.
func (s *ReviewSession) Decide(outcome models.DecisionOutcome) dto.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return s.snapshotLocked()
	}
	head := s.queue[0]

	var recorded bool
	switch outcome {
	case models.DecisionDeleted:
		recorded = s.store.RecordDeleted(head)
	case models.DecisionKept:
		recorded = s.store.RecordKept(head)
	default:
		return s.snapshotLocked()
	}

	s.queue = s.queue[1:]
	if recorded {
		s.reviewedCount++
	}
	return s.snapshotLocked()
}

// Skip moves the head to the tail without recording anything. Skipping the
// only item is a no-op.
func (s *ReviewSession) Skip() dto.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 1 {
		head := s.queue[0]
		s.queue = append(s.queue[1:], head)
	}
	return s.snapshotLocked()
}

// Undo reverses the last decision and restores its photo to the queue head.
// A no-op when the undo slot is empty.
func (s *ReviewSession) Undo() dto.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	action := s.store.UndoLast()
	if action == nil {
		return s.snapshotLocked()
	}
	s.queue = append([]models.PhotoRecord{action.Photo}, s.queue...)
	if s.reviewedCount > 0 {
		s.reviewedCount--
	}
	return s.snapshotLocked()
}

// Snapshot returns the presentation-facing view of the session.
func (s *ReviewSession) Snapshot() dto.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ReviewSession) snapshotLocked() dto.SessionSnapshot {
	snapshot := dto.SessionSnapshot{
		QueueLength:   len(s.queue),
		ReviewedCount: s.reviewedCount,
		TotalCount:    s.totalCount,
		LastAction:    s.store.LastAction(),
		Loaded:        s.store.Loaded(),
		LoadError:     s.loadErr,
	}
	if len(s.queue) > 0 {
		current := s.queue[0]
		snapshot.Current = &current
	}
	if len(s.queue) > 1 {
		next := s.queue[1]
		snapshot.Next = &next
	}
	if s.totalCount > 0 {
		progress := float64(s.reviewedCount) / float64(s.totalCount)
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
		snapshot.Progress = progress
	}
	return snapshot
}

// Close supersedes any in-flight background pagination.
func (s *ReviewSession) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SessionManager owns at most one review session per user, bound to that
// user's decision store.
type SessionManager struct {
	decisions *DecisionManager
	library   sessionLibrary
	logger    *zap.Logger
	pageSize  int

	mu       sync.Mutex
	sessions map[string]*ReviewSession
}

// NewSessionManager constructs a session manager.
func NewSessionManager(decisions *DecisionManager, library sessionLibrary, logger *zap.Logger, pageSize int) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &SessionManager{
		decisions: decisions,
		library:   library,
		logger:    logger,
		pageSize:  pageSize,
	}
}

// Start creates a fresh session for userID, replacing and closing any
// previous one, and performs the initial load.
func (m *SessionManager) Start(ctx context.Context, userID string) (*ReviewSession, error) {
	store := m.decisions.GetOrCreate(ctx, userID)
	session := &ReviewSession{
		ownerID:  userID,
		store:    store,
		library:  m.library,
		logger:   m.logger,
		pageSize: m.pageSize,
	}
	if err := session.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.sessions == nil {
		m.sessions = make(map[string]*ReviewSession)
	}
	if previous, ok := m.sessions[userID]; ok {
		previous.Close()
	}
	m.sessions[userID] = session
	m.mu.Unlock()

	return session, nil
}

// Get returns the active session for userID.
func (m *SessionManager) Get(userID string) (*ReviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, appErrors.ErrNoSession
	}
	return session, nil
}

// Close tears down every active session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		session.Close()
	}
	m.sessions = nil
}
