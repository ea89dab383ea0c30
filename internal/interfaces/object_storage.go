package interfaces

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when an object id is not present in its scope
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is a scoped key/value store of serialized objects.
// Implementations serialize concurrent writers themselves.
type ObjectStorage interface {
	// GetAllObjects returns the content of every object in the scope
	GetAllObjects(ctx context.Context) ([]string, error)

	// GetObject returns one object's content, ErrObjectNotFound if absent
	GetObject(ctx context.Context, id string) (string, error)

	// SaveObject inserts or replaces an object (upsert by id)
	SaveObject(ctx context.Context, id string, content string) error

	// UpdateObject replaces an existing object, ErrObjectNotFound if absent
	UpdateObject(ctx context.Context, id string, content string) error

	// DeleteObject removes an object; deleting a missing id is not an error
	DeleteObject(ctx context.Context, id string) error

	// Scope returns the logical name the storage is bound to
	Scope() string
}

// StorageManager owns a database connection and hands out scoped object storages
type StorageManager interface {
	ObjectStorage(scope string) ObjectStorage
	Close() error
}
