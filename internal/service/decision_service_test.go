package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/models"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
)

type kvStub struct {
	mu   sync.Mutex
	data map[string]string
}

func newKVStub() *kvStub {
	return &kvStub{data: make(map[string]string)}
}

func (s *kvStub) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return "", appErrors.ErrKeyMiss
	}
	return value, nil
}

func (s *kvStub) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *kvStub) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok
}

func photo(id string, createdAt int64) models.PhotoRecord {
	return models.PhotoRecord{
		ID:          id,
		LocationRef: "lib://" + id,
		DisplayName: id + ".jpg",
		CreatedAt:   createdAt,
		Width:       4032,
		Height:      3024,
	}
}

func newTestStore(t *testing.T, kv *kvStub) (*DecisionStore, func()) {
	t.Helper()
	manager := NewDecisionManager(kv, zap.NewNop())
	manager.Start(context.Background())
	store := manager.GetOrCreate(context.Background(), "user-1")
	return store, manager.Stop
}

func TestDecisionStoreMutualExclusion(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	store.RecordDeleted(photo("a", 1))
	store.RecordKept(photo("b", 2))
	store.RecordDeleted(photo("c", 3))
	store.RecoverOne("a")
	store.RecordKept(photo("a", 1))
	store.UndoLast()
	store.RecordDeleted(photo("a", 1))

	deleted := map[string]struct{}{}
	for _, entry := range store.DeletedEntries() {
		deleted[entry.ID] = struct{}{}
	}
	for _, kept := range store.KeptIDs() {
		_, both := deleted[kept]
		assert.False(t, both, "id %s present in both lists", kept)
	}
}

func TestDecisionStoreUndoReversesExactlyOneStep(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	store.RecordDeleted(photo("a", 1))
	action := store.UndoLast()
	require.NotNil(t, action)
	assert.Equal(t, models.DecisionDeleted, action.Outcome)
	assert.Empty(t, store.DeletedEntries())
	assert.Empty(t, store.KeptIDs())
	assert.Nil(t, store.LastAction())

	store.RecordKept(photo("b", 2))
	action = store.UndoLast()
	require.NotNil(t, action)
	assert.Equal(t, models.DecisionKept, action.Outcome)
	assert.Empty(t, store.KeptIDs())
	assert.Nil(t, store.LastAction())
}

func TestDecisionStoreUndoEmptySlotNoOp(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	assert.Nil(t, store.UndoLast())
}

func TestDecisionStoreDuplicateSubmissionNoOp(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	require.True(t, store.RecordDeleted(photo("a", 1)))
	assert.False(t, store.RecordDeleted(photo("a", 1)))
	assert.Len(t, store.DeletedEntries(), 1)

	// A duplicate must not rearm the undo slot either.
	store.UndoLast()
	store.RecordDeleted(photo("a", 1))
	assert.False(t, store.RecordKept(photo("a", 1)))
	assert.Empty(t, store.KeptIDs())
}

func TestDecisionStoreDeletedListOrderMostRecentFirst(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	store.RecordDeleted(photo("a", 1))
	store.RecordDeleted(photo("b", 2))
	store.RecordDeleted(photo("c", 3))

	entries := store.DeletedEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "a", entries[2].ID)
}

func TestDecisionStoreRecoverOneLeavesUndoSlot(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	store.RecordDeleted(photo("a", 1))
	store.RecordDeleted(photo("b", 2))

	recovered := store.RecoverOne("a")
	require.NotNil(t, recovered)
	assert.Equal(t, "a", recovered.ID)
	assert.Len(t, store.DeletedEntries(), 1)
	require.NotNil(t, store.LastAction())
	assert.Equal(t, "b", store.LastAction().Photo.ID)

	assert.Nil(t, store.RecoverOne("missing"))
}

func TestDecisionStoreRecoverAllIdempotent(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	store.RecordDeleted(photo("a", 1))
	store.RecordDeleted(photo("b", 2))

	first := store.RecoverAll()
	assert.Len(t, first, 2)
	assert.Empty(t, store.DeletedEntries())

	second := store.RecoverAll()
	assert.Empty(t, second)
	assert.Empty(t, store.DeletedEntries())
}

func TestDecisionStoreRemoveFromDeleted(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	store.RecordDeleted(photo("a", 1))
	store.RecordDeleted(photo("b", 2))
	store.RecordDeleted(photo("c", 3))

	removed := store.RemoveFromDeleted([]string{"a", "c", "ghost"})
	assert.ElementsMatch(t, []string{"a", "c"}, removed)

	entries := store.DeletedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ID)
}

func TestDecisionStoreWritesThroughSnapshots(t *testing.T) {
	kv := newKVStub()
	store, stop := newTestStore(t, kv)
	defer stop()

	store.RecordDeleted(photo("a", 1))
	store.RecordKept(photo("b", 2))

	require.Eventually(t, func() bool {
		raw, ok := kv.get("triage:decisions:user-1:deleted")
		if !ok {
			return false
		}
		var entries []models.PhotoRecord
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return false
		}
		return len(entries) == 1 && entries[0].ID == "a"
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		raw, ok := kv.get("triage:decisions:user-1:kept")
		if !ok {
			return false
		}
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return false
		}
		return len(ids) == 1 && ids[0] == "b"
	}, time.Second, 10*time.Millisecond)
}

func TestDecisionStoreLoadsPersistedState(t *testing.T) {
	kv := newKVStub()
	deleted, _ := json.Marshal([]models.PhotoRecord{photo("a", 1)})
	kept, _ := json.Marshal([]string{"b"})
	kv.data["triage:decisions:user-1:deleted"] = string(deleted)
	kv.data["triage:decisions:user-1:kept"] = string(kept)

	store, stop := newTestStore(t, kv)
	defer stop()

	assert.True(t, store.Loaded())
	require.Len(t, store.DeletedEntries(), 1)
	assert.Equal(t, "a", store.DeletedEntries()[0].ID)
	assert.Equal(t, []string{"b"}, store.KeptIDs())
	assert.True(t, store.IsDecided("a"))
	assert.True(t, store.IsDecided("b"))
	assert.False(t, store.IsDecided("c"))
}

func TestDecisionStoreRepeatedLoadKeepsNewDecisions(t *testing.T) {
	kv := newKVStub()
	deleted, _ := json.Marshal([]models.PhotoRecord{photo("old", 1)})
	kv.data["triage:decisions:user-1:deleted"] = string(deleted)

	store, stop := newTestStore(t, kv)
	defer stop()
	require.True(t, store.Loaded())

	// A second loader that lost the first-access race must not re-hydrate
	// over decisions recorded since the first hydration.
	require.True(t, store.RecordDeleted(photo("x", 2)))
	store.Load(context.Background())

	entries := store.DeletedEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "x", entries[0].ID)
	assert.Equal(t, "old", entries[1].ID)
	assert.True(t, store.IsDecided("x"))
}

func TestDecisionStoreConcurrentFirstAccess(t *testing.T) {
	kv := newKVStub()
	manager := NewDecisionManager(kv, zap.NewNop())
	manager.Start(context.Background())
	defer manager.Stop()

	var wg sync.WaitGroup
	stores := make([]*DecisionStore, 8)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i] = manager.GetOrCreate(context.Background(), "user-1")
		}(i)
	}
	wg.Wait()

	for _, store := range stores[1:] {
		assert.Same(t, stores[0], store)
	}
	assert.True(t, stores[0].Loaded())
}

func TestDecisionStoreMissingKeysMeanEmptyLists(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	assert.True(t, store.Loaded())
	assert.Empty(t, store.DeletedEntries())
	assert.Empty(t, store.KeptIDs())
}
