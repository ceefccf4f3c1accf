package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Locator resolves a model ref to its blob stream. Implementations return
// an error satisfying errors.Is(err, fs.ErrNotExist) when the resource does
// not exist.
type Locator interface {
	Open(ctx context.Context, ref Ref) (io.ReadCloser, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context, ref Ref) (io.ReadCloser, error)

// Open implements Locator.
func (f LocatorFunc) Open(ctx context.Context, ref Ref) (io.ReadCloser, error) {
	return f(ctx, ref)
}

// FSLocator serves blobs named Ref.FileName() from a file system.
type FSLocator struct {
	FS fs.FS
}

// Open implements Locator.
func (l FSLocator) Open(ctx context.Context, ref Ref) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", fs.ErrNotExist, err)
	}
	return l.FS.Open(ref.FileName())
}

// DirLocator returns a locator over the blobs in dir.
func DirLocator(dir string) FSLocator {
	return FSLocator{FS: os.DirFS(dir)}
}

// Chain tries each locator in order and returns the first hit. A locator
// failing with anything other than not-exist stops the search.
type Chain []Locator

// Open implements Locator.
func (c Chain) Open(ctx context.Context, ref Ref) (io.ReadCloser, error) {
	for _, loc := range c {
		rc, err := loc.Open(ctx, ref)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, fs.ErrNotExist)
}
