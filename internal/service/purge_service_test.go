package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/swipeclean/triage-api/pkg/errors"
)

type purgeLibraryStub struct {
	mu     sync.Mutex
	err    error
	purged [][]string
}

func (l *purgeLibraryStub) Purge(ctx context.Context, ownerID string, ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.purged = append(l.purged, ids)
	return nil
}

func TestPurgeRemovesOnlyAfterLibrarySuccess(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()
	store.RecordDeleted(photo("a", 1))
	store.RecordDeleted(photo("b", 2))

	lib := &purgeLibraryStub{}
	svc := NewPurgeService(lib, zap.NewNop())

	removed, err := svc.Purge(context.Background(), "user-1", store, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, removed)
	require.Len(t, lib.purged, 1)
	assert.Equal(t, []string{"a"}, lib.purged[0])

	entries := store.DeletedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ID)
}

func TestPurgeEmptyIDsPurgesWholeList(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()
	store.RecordDeleted(photo("a", 1))
	store.RecordDeleted(photo("b", 2))

	lib := &purgeLibraryStub{}
	svc := NewPurgeService(lib, zap.NewNop())

	removed, err := svc.Purge(context.Background(), "user-1", store, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, removed)
	assert.Empty(t, store.DeletedEntries())
}

func TestPurgeIgnoresIDsOutsideDeletedList(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()
	store.RecordDeleted(photo("a", 1))

	lib := &purgeLibraryStub{}
	svc := NewPurgeService(lib, zap.NewNop())

	removed, err := svc.Purge(context.Background(), "user-1", store, []string{"ghost"})
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Empty(t, lib.purged)
	assert.Len(t, store.DeletedEntries(), 1)
}

func TestPurgeFailureKeepsEntriesRecoverable(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()
	store.RecordDeleted(photo("a", 1))

	lib := &purgeLibraryStub{err: errors.New("provider rejected delete")}
	svc := NewPurgeService(lib, zap.NewNop())

	removed, err := svc.Purge(context.Background(), "user-1", store, []string{"a"})
	require.Error(t, err)
	assert.Nil(t, removed)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPurgeFailed.Code, appErr.Code)

	// The entry stays in the deleted list and can still be recovered.
	require.Len(t, store.DeletedEntries(), 1)
	assert.NotNil(t, store.RecoverOne("a"))
}

func TestPurgeNothingDeletedNoOp(t *testing.T) {
	store, stop := newTestStore(t, newKVStub())
	defer stop()

	lib := &purgeLibraryStub{}
	svc := NewPurgeService(lib, zap.NewNop())

	removed, err := svc.Purge(context.Background(), "user-1", store, nil)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Empty(t, lib.purged)
}
