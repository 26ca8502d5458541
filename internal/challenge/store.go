package challenge

import (
	"io/fs"
	"sync/atomic"
)

// Store holds the current challenge Catalog and swaps it on Reload.
type Store struct {
	cur atomic.Pointer[Catalog]
}

// NewStore returns a Store serving cat.
func NewStore(cat *Catalog) *Store {
	s := &Store{}
	s.cur.Store(cat)
	return s
}

// Catalog returns the current catalog.
func (s *Store) Catalog() *Catalog { return s.cur.Load() }

// Reload loads challenges.yaml from fsys; on failure the previous catalog stays current.
func (s *Store) Reload(fsys fs.FS) error {
	cat, err := LoadCatalog(fsys)
	if err != nil {
		return err
	}
	s.cur.Store(cat)
	return nil
}
