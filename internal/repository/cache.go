// Package repository caches views of the repositories jobs install into. A view is dropped whenever an
// install job into that repository completes, so later readers see the merged package.
package repository

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
)

// View is a snapshot of a repository's installed packages.
type View struct {
	LoadedAt time.Time
	ID       job.RepositoryID
	Packages []string
}

// Has reports whether the view lists the package.
func (view *View) Has(name string) bool {
	return slices.Contains(view.Packages, name)
}

// Loader reads a repository view.
type Loader func(ctx context.Context, id job.RepositoryID) (*View, error)

// Cache holds loaded views until they are invalidated.
type Cache struct {
	views         *xsync.MapOf[job.RepositoryID, *View]
	loader        Loader
	invalidations atomic.Int64
}

func NewCache(loader Loader) *Cache {
	return &Cache{
		views:  xsync.NewMapOf[job.RepositoryID, *View](),
		loader: loader,
	}
}

// Get returns the cached view or loads it.
func (cache *Cache) Get(ctx context.Context, id job.RepositoryID) (*View, error) {
	if view, ok := cache.views.Load(id); ok {
		return view, nil
	}

	view, err := cache.loader(ctx, id)
	if err != nil {
		return nil, err
	}

	actual, _ := cache.views.LoadOrStore(id, view)

	return actual, nil
}

// Invalidate drops the view of the repository.
func (cache *Cache) Invalidate(id job.RepositoryID) {
	cache.views.Delete(id)
	cache.invalidations.Add(1)
}

// Invalidations returns how many times a view was dropped.
func (cache *Cache) Invalidations() int {
	return int(cache.invalidations.Load())
}

// DirLoader loads views from `<root>/<repository>/<category>/<package>` directories, the layout of an
// installed-packages database.
func DirLoader(root string) Loader {
	return func(_ context.Context, id job.RepositoryID) (*View, error) {
		view := &View{ID: id, LoadedAt: time.Now()}

		dir := filepath.Join(root, string(id))

		categories, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			return view, nil
		}

		if err != nil {
			return nil, errors.New(err)
		}

		for _, category := range categories {
			if !category.IsDir() {
				continue
			}

			packages, err := os.ReadDir(filepath.Join(dir, category.Name()))
			if err != nil {
				return nil, errors.New(err)
			}

			for _, pkg := range packages {
				if pkg.IsDir() {
					view.Packages = append(view.Packages, category.Name()+"/"+pkg.Name())
				}
			}
		}

		return view, nil
	}
}
