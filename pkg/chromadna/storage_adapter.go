package chromadna

import (
	"context"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/storage"
)

// NewSQLiteStorage opens (or creates) the SQLite signature store at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewPostgresStorage connects to a PostgreSQL database with the pgvector
// extension available.
func NewPostgresStorage(ctx context.Context, connString string) (Storage, error) {
	pg, err := storage.NewPostgresStore(ctx, connString)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// NewMemoryStorage returns a non-durable store, mostly useful in tests.
func NewMemoryStorage() Storage {
	return storage.NewMemoryStore()
}
