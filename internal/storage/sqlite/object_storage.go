package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
)

// ObjectStorage implements the ObjectStorage interface for SQLite
type ObjectStorage struct {
	db     *SQLiteDB
	scope  string
	logger arbor.ILogger
	mu     *sync.Mutex // Shared across scopes; prevents SQLITE_BUSY on concurrent writes
}

// NewObjectStorage creates a new ObjectStorage bound to one scope
func NewObjectStorage(db *SQLiteDB, scope string, mu *sync.Mutex, logger arbor.ILogger) interfaces.ObjectStorage {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &ObjectStorage{
		db:     db,
		scope:  scope,
		logger: logger,
		mu:     mu,
	}
}

func (s *ObjectStorage) Scope() string {
	return s.scope
}

// GetAllObjects returns every object in the scope, oldest first
func (s *ObjectStorage) GetAllObjects(ctx context.Context) ([]string, error) {
	query := `SELECT content FROM objects WHERE scope = ? ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.db.QueryContext(ctx, query, s.scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	var contents []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		contents = append(contents, content)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate objects: %w", err)
	}

	return contents, nil
}

func (s *ObjectStorage) GetObject(ctx context.Context, id string) (string, error) {
	var content string
	query := `SELECT content FROM objects WHERE scope = ? AND hash = ?`

	err := s.db.db.QueryRowContext(ctx, query, s.scope, id).Scan(&content)
	if err == sql.ErrNoRows {
		return "", interfaces.ErrObjectNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get object: %w", err)
	}

	return content, nil
}

// SaveObject inserts or replaces an object, preserving its creation time
func (s *ObjectStorage) SaveObject(ctx context.Context, id string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	query := `
		INSERT INTO objects (scope, hash, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope, hash) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.db.ExecContext(ctx, query, s.scope, id, content, now, now); err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}

	return nil
}

func (s *ObjectStorage) UpdateObject(ctx context.Context, id string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE objects SET content = ?, updated_at = ? WHERE scope = ? AND hash = ?`

	result, err := s.db.db.ExecContext(ctx, query, content, time.Now().UnixNano(), s.scope, id)
	if err != nil {
		return fmt.Errorf("failed to update object: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return interfaces.ErrObjectNotFound
	}

	return nil
}

func (s *ObjectStorage) DeleteObject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `DELETE FROM objects WHERE scope = ? AND hash = ?`

	if _, err := s.db.db.ExecContext(ctx, query, s.scope, id); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}
