package sqlite

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
)

// Manager implements the StorageManager interface for SQLite
type Manager struct {
	db     *SQLiteDB
	mu     sync.Mutex
	logger arbor.ILogger
}

// NewManager creates a new SQLite storage manager
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("path", config.Path).Msg("SQLite storage manager initialized")

	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// ObjectStorage returns the object storage for a scope
func (m *Manager) ObjectStorage(scope string) interfaces.ObjectStorage {
	return NewObjectStorage(m.db, scope, &m.mu, m.logger)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
