// Package loader resolves animation identities to encoded byte streams.
package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned when an identity does not resolve to a resource. It matches fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("resource not found: %w", fs.ErrNotExist)

// Resolver maps an animation identity to a readable byte stream.
// The caller owns the returned stream and must close it.
type Resolver[K comparable] interface {
	// Resolve opens the encoded resource identified by id.
	//
	// Parameters:
	//   - id: the identity to resolve
	//
	// Returns:
	//   - io.ReadCloser: the encoded resource, to be closed by the caller
	//   - error: an error matching ErrNotFound if id does not exist
	Resolve(id K) (io.ReadCloser, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc[K comparable] func(id K) (io.ReadCloser, error)

// Resolve calls f(id).
func (f ResolverFunc[K]) Resolve(id K) (io.ReadCloser, error) {
	return f(id)
}

// LoaderBackendType identifies where a Loader reads resources from.
type LoaderBackendType int

const (
	// BackendTypeFS reads resources from an fs.FS, by default the working directory.
	BackendTypeFS LoaderBackendType = iota

	// BackendTypeMemory serves resources registered in memory with WithAsset or Put.
	BackendTypeMemory
)

// DefaultExtensions are the file extensions a Loader serves when none are configured.
var DefaultExtensions = []string{".gif"}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	backend loaderBackend

	// pending holds assets registered before the backend is chosen.
	pending    map[string][]byte
	fsys       fs.FS
	extensions []string

	log *slog.Logger
}

// Loader resolves slash-separated resource names, as used by fs.FS, to encoded animations.
type Loader interface {
	Resolver[string]

	// List returns the names of every resource with a served extension, sorted.
	//
	// Returns:
	//   - []string: the resource names
	//   - error: error if the backend cannot be enumerated
	List() ([]string, error)

	// Put registers or replaces an in-memory resource. Backends that cannot store resources
	// return an error.
	//
	// Parameters:
	//   - name: the resource name
	//   - data: the encoded resource, retained by the Loader
	//
	// Returns:
	//   - error: error if name is invalid or the backend is read-only
	Put(name string, data []byte) error
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the specified backend type and options applied.
//
// Parameters:
//   - backendType: where resources are read from (e.g., BackendTypeFS)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		pending:    make(map[string][]byte),
		extensions: DefaultExtensions,
		log:        slog.Default(),
	}

	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeMemory:
		l.backend = newMemoryLoaderBackend(l.pending)
	case BackendTypeFS:
		fallthrough
	default:
		l.backend = newFSLoaderBackend(l.fsys)
	}
	l.pending = nil
	return l
}

func (l *loader) Resolve(name string) (io.ReadCloser, error) {
	clean, err := l.cleanName(name)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	rc, err := l.backend.Open(clean)
	l.mu.RUnlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}
	l.log.Debug("resolved resource", slog.String("name", clean))
	return rc, nil
}

func (l *loader) List() ([]string, error) {
	l.mu.RLock()
	names, err := l.backend.List()
	l.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	names = slices.DeleteFunc(names, func(n string) bool {
		return !l.served(n)
	})
	slices.Sort(names)
	return names, nil
}

func (l *loader) Put(name string, data []byte) error {
	clean, err := l.cleanName(name)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backend.Put(clean, data)
}

// cleanName validates name and normalises it to the form expected by fs.FS.
func (l *loader) cleanName(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./"))
	if !fs.ValidPath(clean) || clean == "." {
		return "", fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	if !l.served(clean) {
		return "", fmt.Errorf("%w: unsupported extension %q", ErrNotFound, path.Ext(clean))
	}
	return clean, nil
}

// served reports whether name carries one of the configured extensions.
func (l *loader) served(name string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	return slices.Contains(l.extensions, ext)
}
