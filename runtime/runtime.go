// Package runtime holds the platform dependencies of a deck build: where slide
// sources are read from, where artifacts are written, and where run events go.
package runtime

import (
	"context"
	"io"
)

// Storage abstracts file storage (local filesystem, object stores, ...)
type Storage interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	List(ctx context.Context, prefix string, delimiter string) (*ListResult, error)
	Delete(ctx context.Context, key string) error
}

// FilesystemStorage is implemented by storage backends that map to local
// directories, so native tools and watchers can be pointed at real paths.
type FilesystemStorage interface {
	Storage
	FullPath(key string) (string, error)
}

// ListResult holds storage listing results
type ListResult struct {
	Keys              []string
	DelimitedPrefixes []string
}

// Publisher abstracts event publishing (NATS, etc.)
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Runtime holds all platform-specific dependencies
type Runtime struct {
	InputStorage  Storage
	OutputStorage Storage
	Publisher     Publisher
}

// Current is the process-wide runtime, set once by the entry point.
var Current *Runtime

// SetRuntime sets the global runtime
func SetRuntime(r *Runtime) {
	Current = r
}

// Input returns the slide source storage
func Input() Storage {
	if Current == nil || Current.InputStorage == nil {
		return &noopStorage{}
	}
	return Current.InputStorage
}

// Output returns the artifact storage
func Output() Storage {
	if Current == nil || Current.OutputStorage == nil {
		return &noopStorage{}
	}
	return Current.OutputStorage
}

// Events returns the run event publisher
func Events() Publisher {
	if Current == nil || Current.Publisher == nil {
		return noopPublisher{}
	}
	return Current.Publisher
}

// noopStorage is used when storage isn't configured
type noopStorage struct{}

func (s *noopStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, io.EOF
}

func (s *noopStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func (s *noopStorage) List(ctx context.Context, prefix string, delimiter string) (*ListResult, error) {
	return &ListResult{}, nil
}

func (s *noopStorage) Delete(ctx context.Context, key string) error {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []byte) error { return nil }
