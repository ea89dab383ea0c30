package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/models"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	config := common.NewDefaultConfig()
	config.SpeckleDir = dir
	config.Accounts.Dir = filepath.Join(dir, "Accounts")
	config.Storage.SQLite.Path = filepath.Join(dir, "Accounts.db")
	config.Storage.Badger.Path = filepath.Join(dir, "badger")
	return config
}

func TestNew_WiresServices(t *testing.T) {
	for _, storageType := range []string{"sqlite", "badger"} {
		t.Run(storageType, func(t *testing.T) {
			config := testConfig(t)
			config.Storage.Type = storageType
			config.Storage.Sealed.IdentityFile = filepath.Join(config.SpeckleDir, "accounts.age")

			application, err := New(config, arbor.NewLogger())
			require.NoError(t, err)
			defer application.Close()

			ctx := context.Background()
			acc := &models.Account{
				Token:      "t",
				IsDefault:  true,
				ServerInfo: &models.ServerInfo{Name: "S", URL: "https://speckle.xyz"},
				UserInfo:   &models.UserInfo{ID: "u1", Name: "U", Email: "u@example.com"},
			}
			require.NoError(t, application.AccountService.SaveAccount(ctx, acc))

			def, err := application.AccountService.GetDefaultAccount(ctx)
			require.NoError(t, err)
			require.NotNil(t, def)
			assert.True(t, def.Equal(acc))

			w, err := application.StreamResolver.New(ctx, "8fecc9aa6d")
			require.NoError(t, err)
			assert.Equal(t, "https://speckle.xyz/streams/8fecc9aa6d?u=u1", w.String())
		})
	}
}

func TestNew_InvalidStorage(t *testing.T) {
	config := testConfig(t)
	config.Storage.Type = "postgres"

	_, err := New(config, arbor.NewLogger())
	assert.Error(t, err)
}
