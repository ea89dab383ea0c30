package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
)

func testConfig(t *testing.T, storageType string) *common.Config {
	t.Helper()
	dir := t.TempDir()
	config := common.NewDefaultConfig()
	config.Storage.Type = storageType
	config.Storage.SQLite.Path = filepath.Join(dir, "accounts.db")
	config.Storage.Badger.Path = filepath.Join(dir, "badger")
	return config
}

func TestNewStorageManager_Backends(t *testing.T) {
	for _, storageType := range []string{"sqlite", "badger"} {
		t.Run(storageType, func(t *testing.T) {
			logger := arbor.NewLogger()
			config := testConfig(t, storageType)

			manager, err := NewStorageManager(logger, config)
			require.NoError(t, err)
			defer manager.Close()

			store, err := NewAccountStorage(logger, manager, config)
			require.NoError(t, err)
			assert.Equal(t, "Accounts", store.Scope())

			ctx := context.Background()
			require.NoError(t, store.SaveObject(ctx, "A", `{"token":"t"}`))
			content, err := store.GetObject(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, `{"token":"t"}`, content)
		})
	}
}

func TestNewStorageManager_Unsupported(t *testing.T) {
	config := testConfig(t, "postgres")
	_, err := NewStorageManager(arbor.NewLogger(), config)
	assert.ErrorContains(t, err, "unsupported storage type")
}

func TestNewAccountStorage_Sealed(t *testing.T) {
	logger := arbor.NewLogger()
	config := testConfig(t, "sqlite")
	config.Storage.Sealed.IdentityFile = filepath.Join(t.TempDir(), "accounts.age")

	manager, err := NewStorageManager(logger, config)
	require.NoError(t, err)
	defer manager.Close()

	store, err := NewAccountStorage(logger, manager, config)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.SaveObject(ctx, "A", `{"token":"secret"}`))

	raw, err := manager.ObjectStorage("Accounts").GetObject(ctx, "A")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret")

	content, err := store.GetObject(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"secret"}`, content)
}
