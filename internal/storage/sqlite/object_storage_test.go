package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
)

func setupTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()

	config := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "accounts.db"),
		BusyTimeoutMS: 5000,
	}

	manager, err := NewManager(arbor.NewLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return manager
}

func TestObjectStorage_SaveIsUpsert(t *testing.T) {
	store := setupTestManager(t).ObjectStorage("Accounts")
	ctx := context.Background()

	require.NoError(t, store.SaveObject(ctx, "A", `{"v":1}`))
	require.NoError(t, store.SaveObject(ctx, "A", `{"v":2}`))

	all, err := store.GetAllObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"v":2}`}, all)

	content, err := store.GetObject(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, content)
}

func TestObjectStorage_PreservesInsertionOrder(t *testing.T) {
	store := setupTestManager(t).ObjectStorage("Accounts")
	ctx := context.Background()

	require.NoError(t, store.SaveObject(ctx, "first", "1"))
	require.NoError(t, store.SaveObject(ctx, "second", "2"))
	require.NoError(t, store.SaveObject(ctx, "third", "3"))
	require.NoError(t, store.SaveObject(ctx, "first", "1b"))

	all, err := store.GetAllObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1b", "2", "3"}, all)
}

func TestObjectStorage_UpdateAndDelete(t *testing.T) {
	store := setupTestManager(t).ObjectStorage("Accounts")
	ctx := context.Background()

	err := store.UpdateObject(ctx, "missing", "x")
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)

	require.NoError(t, store.SaveObject(ctx, "A", "old"))
	require.NoError(t, store.UpdateObject(ctx, "A", "new"))

	content, err := store.GetObject(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "new", content)

	require.NoError(t, store.DeleteObject(ctx, "A"))
	require.NoError(t, store.DeleteObject(ctx, "A"), "deleting twice is not an error")

	_, err = store.GetObject(ctx, "A")
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
}

func TestObjectStorage_ScopesAreIsolated(t *testing.T) {
	manager := setupTestManager(t)
	accounts := manager.ObjectStorage("Accounts")
	other := manager.ObjectStorage("Other")
	ctx := context.Background()

	require.NoError(t, accounts.SaveObject(ctx, "A", "accounts"))
	require.NoError(t, other.SaveObject(ctx, "A", "other"))

	all, err := accounts.GetAllObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts"}, all)
	assert.Equal(t, "Other", other.Scope())
}

func TestObjectStorage_ConcurrentWrites(t *testing.T) {
	store := setupTestManager(t).ObjectStorage("Accounts")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, store.SaveObject(ctx, "shared", "value"))
		}(i)
	}
	wg.Wait()

	all, err := store.GetAllObjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
