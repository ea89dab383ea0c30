package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// ObjectStorage returns the object storage for a scope
func (m *Manager) ObjectStorage(scope string) interfaces.ObjectStorage {
	return NewObjectStorage(m.db, scope, m.logger)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
