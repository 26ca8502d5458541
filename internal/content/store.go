package content

import (
	"errors"
	"io/fs"
	"sync/atomic"
)

// Store holds the current Catalog and swaps it atomically on Reload. Safe for concurrent use.
type Store struct {
	cur atomic.Pointer[Catalog]
}

// NewStore returns a Store serving cat.
func NewStore(cat *Catalog) *Store {
	s := &Store{}
	s.cur.Store(cat)
	return s
}

// Catalog returns the current catalog; nil when nothing has been loaded.
func (s *Store) Catalog() *Catalog {
	return s.cur.Load()
}

// Reload loads a new catalog from fsys and swaps it in. On failure the previous catalog stays current.
func (s *Store) Reload(fsys fs.FS) error {
	if fsys == nil {
		return errors.New("content: reload with nil filesystem")
	}
	cat, err := Load(fsys)
	if err != nil {
		return err
	}
	s.cur.Store(cat)
	return nil
}
