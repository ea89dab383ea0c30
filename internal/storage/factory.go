package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
	"github.com/ternarybob/speckle-accounts/internal/storage/badger"
	"github.com/ternarybob/speckle-accounts/internal/storage/sealed"
	"github.com/ternarybob/speckle-accounts/internal/storage/sqlite"
)

// NewStorageManager creates a new storage manager based on config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Type {
	case "sqlite", "":
		return sqlite.NewManager(logger, &config.Storage.SQLite)
	case "badger":
		return badger.NewManager(logger, &config.Storage.Badger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (valid: sqlite, badger)", config.Storage.Type)
	}
}

// NewAccountStorage returns the object storage for managed accounts, sealed
// with age when an identity file is configured.
func NewAccountStorage(logger arbor.ILogger, manager interfaces.StorageManager, config *common.Config) (interfaces.ObjectStorage, error) {
	store := manager.ObjectStorage(config.Accounts.Scope)

	if config.Storage.Sealed.IdentityFile == "" {
		return store, nil
	}

	sealedStore, err := sealed.NewObjectStorage(store, config.Storage.Sealed.IdentityFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to seal account storage: %w", err)
	}

	logger.Debug().Str("scope", store.Scope()).Msg("Account storage sealed with age identity")
	return sealedStore, nil
}
