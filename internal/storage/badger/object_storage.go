package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// StoredObject is one serialized object within a scope
type StoredObject struct {
	Key       string
	Scope     string `badgerholdIndex:"Scope"`
	Hash      string
	Content   string
	CreatedAt int64
	UpdatedAt int64
}

// ObjectStorage implements the ObjectStorage interface for Badger
type ObjectStorage struct {
	db     *BadgerDB
	scope  string
	logger arbor.ILogger
}

// NewObjectStorage creates a new ObjectStorage bound to one scope
func NewObjectStorage(db *BadgerDB, scope string, logger arbor.ILogger) interfaces.ObjectStorage {
	return &ObjectStorage{
		db:     db,
		scope:  scope,
		logger: logger,
	}
}

func (s *ObjectStorage) Scope() string {
	return s.scope
}

func (s *ObjectStorage) key(id string) string {
	return s.scope + ":" + id
}

// GetAllObjects returns every object in the scope, oldest first
func (s *ObjectStorage) GetAllObjects(ctx context.Context) ([]string, error) {
	var objects []StoredObject
	err := s.db.Store().Find(&objects, badgerhold.Where("Scope").Eq(s.scope).Index("Scope").SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	contents := make([]string, len(objects))
	for i := range objects {
		contents[i] = objects[i].Content
	}
	return contents, nil
}

func (s *ObjectStorage) GetObject(ctx context.Context, id string) (string, error) {
	var object StoredObject
	err := s.db.Store().Get(s.key(id), &object)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return "", interfaces.ErrObjectNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get object: %w", err)
	}
	return object.Content, nil
}

// SaveObject inserts or replaces an object, preserving its creation time
func (s *ObjectStorage) SaveObject(ctx context.Context, id string, content string) error {
	now := time.Now().UnixNano()
	object := StoredObject{
		Key:       s.key(id),
		Scope:     s.scope,
		Hash:      id,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var existing StoredObject
	err := s.db.Store().Get(object.Key, &existing)
	if err == nil {
		object.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to check object existence: %w", err)
	}

	if err := s.db.Store().Upsert(object.Key, &object); err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}
	return nil
}

func (s *ObjectStorage) UpdateObject(ctx context.Context, id string, content string) error {
	var existing StoredObject
	err := s.db.Store().Get(s.key(id), &existing)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get object: %w", err)
	}

	existing.Content = content
	existing.UpdatedAt = time.Now().UnixNano()

	if err := s.db.Store().Update(existing.Key, &existing); err != nil {
		return fmt.Errorf("failed to update object: %w", err)
	}
	return nil
}

func (s *ObjectStorage) DeleteObject(ctx context.Context, id string) error {
	err := s.db.Store().Delete(s.key(id), &StoredObject{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
