package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jathurchan/davlock/etag"
	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/types"
	"golang.org/x/net/webdav"
)

// FileSystemSource derives entity tags from a webdav.FileSystem the same way
// golang.org/x/net/webdav's handler does: a file info implementing
// webdav.ETager supplies its own tag, otherwise the tag is built from the
// modification time and size.
type FileSystemSource struct {
	fs webdav.FileSystem
}

// NewFileSystemSource returns a source reading from fsys.
func NewFileSystemSource(fsys webdav.FileSystem) (*FileSystemSource, error) {
	if fsys == nil {
		return nil, fmt.Errorf("%w: nil file system", ErrInvalidConfig)
	}
	return &FileSystemSource{fs: fsys}, nil
}

// NewDirSource returns a source over the local directory root.
func NewDirSource(root string) (*FileSystemSource, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty directory", ErrInvalidConfig)
	}
	return NewFileSystemSource(webdav.Dir(root))
}

// EntityTag implements EntityTagSource.
func (s *FileSystemSource) EntityTag(ctx context.Context, path string) (etag.EntityTag, bool, error) {
	if err := ctx.Err(); err != nil {
		return etag.EntityTag{}, false, err
	}

	name := types.CleanPath(path)
	fi, err := s.fs.Stat(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return etag.EntityTag{}, false, nil
		}
		return etag.EntityTag{}, false, fmt.Errorf("%w: stat %s: %w", ErrSourceUnavailable, name, err)
	}

	if et, ok := fi.(webdav.ETager); ok {
		raw, err := et.ETag(ctx)
		switch {
		case err == nil:
			tag, perr := header.ParseEntityTag(raw)
			if perr != nil {
				return etag.EntityTag{}, false, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, perr)
			}
			return tag, true, nil
		case !errors.Is(err, webdav.ErrNotImplemented):
			return etag.EntityTag{}, false, fmt.Errorf("%w: etag %s: %w", ErrSourceUnavailable, name, err)
		}
	}

	return etag.New(fmt.Sprintf("%x%x", fi.ModTime().UnixNano(), fi.Size())), true, nil
}
