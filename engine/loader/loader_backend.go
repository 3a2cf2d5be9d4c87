package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
)

// errReadOnly is returned by backends that cannot store resources.
var errReadOnly = errors.New("loader backend is read-only")

// loaderBackend defines the generic interface for resource storage.
// Concrete implementations (e.g., fsLoaderBackend) handle where the bytes live.
type loaderBackend interface {
	// Open opens the named resource.
	//
	// Parameters:
	//   - name: a valid fs.FS path
	//
	// Returns:
	//   - io.ReadCloser: the resource contents
	//   - error: an error matching fs.ErrNotExist if the resource does not exist
	Open(name string) (io.ReadCloser, error)

	// List returns the names of every stored resource.
	//
	// Returns:
	//   - []string: the resource names
	//   - error: error if the storage cannot be enumerated
	List() ([]string, error)

	// Put stores a resource.
	//
	// Parameters:
	//   - name: a valid fs.FS path
	//   - data: the resource contents
	//
	// Returns:
	//   - error: error if the backend cannot store resources
	Put(name string, data []byte) error
}

// fsLoaderBackend serves resources from an fs.FS.
type fsLoaderBackend struct {
	fsys fs.FS
}

var _ loaderBackend = &fsLoaderBackend{}

// newFSLoaderBackend creates a backend reading from fsys, or from the working directory when fsys is nil.
func newFSLoaderBackend(fsys fs.FS) *fsLoaderBackend {
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	return &fsLoaderBackend{fsys: fsys}
}

func (b *fsLoaderBackend) Open(name string) (io.ReadCloser, error) {
	f, err := b.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory: %w", name, fs.ErrNotExist)
	}
	return f, nil
}

func (b *fsLoaderBackend) List() ([]string, error) {
	var names []string
	err := fs.WalkDir(b.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	return names, err
}

func (b *fsLoaderBackend) Put(string, []byte) error {
	return errReadOnly
}

// memoryLoaderBackend serves resources held in memory.
type memoryLoaderBackend struct {
	assets map[string][]byte
}

var _ loaderBackend = &memoryLoaderBackend{}

func newMemoryLoaderBackend(assets map[string][]byte) *memoryLoaderBackend {
	if assets == nil {
		assets = make(map[string][]byte)
	}
	return &memoryLoaderBackend{assets: assets}
}

func (b *memoryLoaderBackend) Open(name string) (io.ReadCloser, error) {
	data, ok := b.assets[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memoryLoaderBackend) List() ([]string, error) {
	return slices.Collect(maps.Keys(b.assets)), nil
}

func (b *memoryLoaderBackend) Put(name string, data []byte) error {
	b.assets[name] = data
	return nil
}

// NewMemoryResolver returns a Resolver serving a fixed set of in-memory resources under arbitrary
// comparable identities.
//
// Parameters:
//   - assets: the encoded resources keyed by identity, retained by the Resolver
//
// Returns:
//   - Resolver[K]: the resolver
func NewMemoryResolver[K comparable](assets map[K][]byte) Resolver[K] {
	return ResolverFunc[K](func(id K) (io.ReadCloser, error) {
		data, ok := assets[id]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}
