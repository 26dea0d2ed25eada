// Package store persists topology documents by name.
//
// Two backends are provided: [FileStore] keeps one JSON file per topology in
// a directory, [MongoStore] keeps one record per topology in a MongoDB
// collection. Both store the canonical document form; graphs are never
// persisted here.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// ErrNotFound is returned when no topology has the requested name.
var ErrNotFound = errors.New(errors.ErrCodeNotFound, "topology not found")

// Store is a named collection of topology documents. Implementations are
// safe for concurrent use.
type Store interface {
	// Get returns the topology stored under name.
	Get(ctx context.Context, name string) (*topology.Document, error)
	// Put stores doc under doc.Name, replacing any previous version.
	Put(ctx context.Context, doc *topology.Document) error
	// Delete removes a topology. Deleting a missing topology returns
	// ErrNotFound.
	Delete(ctx context.Context, name string) error
	// List returns all stored topologies ordered by name.
	List(ctx context.Context) ([]Entry, error)
	Close(ctx context.Context) error
}

// Entry summarizes a stored topology.
type Entry struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Nodes       int       `json:"nodes"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Dir is the FileStore directory.
	Dir string
	// MongoURI, MongoDatabase and MongoCollection configure MongoStore.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open returns the backend named by opts.Backend. An empty backend means
// BackendFile.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		s, err := NewFileStore(opts.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMongo:
		s, err := NewMongoStore(ctx, MongoOptions{
			URI:        opts.MongoURI,
			Database:   opts.MongoDatabase,
			Collection: opts.MongoCollection,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", opts.Backend)
	}
}

func checkName(name string) error {
	if err := errors.ValidateName(name); err != nil {
		return fmt.Errorf("topology name: %w", err)
	}
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
