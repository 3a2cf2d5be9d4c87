package loader

import (
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS is an option builder that sets the file system read by the BackendTypeFS backend.
//
// Parameters:
//   - fsys: the file system
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = fsys
	}
}

// WithDir is an option builder that makes the BackendTypeFS backend read from a directory on disk.
//
// Parameters:
//   - dir: the root directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the directory option to a loader
func WithDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = os.DirFS(dir)
	}
}

// WithAsset is an option builder that pre-populates the BackendTypeMemory backend with a resource.
//
// Parameters:
//   - name: the resource name
//   - data: the encoded resource
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(name string, data []byte) LoaderBuilderOption {
	return func(l *loader) {
		l.pending[name] = data
	}
}

// WithExtensions is an option builder that sets the file extensions the Loader serves.
// Extensions are matched case-insensitively; an empty list serves every name.
//
// Parameters:
//   - exts: the extensions including the leading dot, e.g. ".gif"
//
// Returns:
//   - LoaderBuilderOption: a function that applies the extensions option to a loader
func WithExtensions(exts ...string) LoaderBuilderOption {
	return func(l *loader) {
		l.extensions = make([]string, len(exts))
		for i, e := range exts {
			l.extensions[i] = strings.ToLower(e)
		}
	}
}

// WithLogger is an option builder that sets the Loader's logger.
//
// Parameters:
//   - log: the logger, nil keeps slog.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(log *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if log != nil {
			l.log = log
		}
	}
}
