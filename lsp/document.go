// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"errors"
	"sort"
	"sync"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// ErrStaleVersion is returned when a change carries a version no newer than
// the one already stored.
var ErrStaleVersion = errors.New("lsp: stale document version")

// DocumentStore holds the current snapshot of every open document.  A
// snapshot is immutable; edits replace it wholesale, so handlers can use a
// snapshot returned by Get without holding any lock.
type DocumentStore struct {
	parser syntax.Parser

	mu   sync.RWMutex
	docs map[string]*analysis.Snapshot
}

// NewDocumentStore creates an empty document store that parses with p.
func NewDocumentStore(p syntax.Parser) *DocumentStore {
	return &DocumentStore{parser: p, docs: make(map[string]*analysis.Snapshot)}
}

// Open stores a fresh snapshot of a document, replacing any previous one.
// A parse error is returned along with the stored snapshot, which then has
// no tree.
func (s *DocumentStore) Open(uri string, version int32, text string) (*analysis.Snapshot, error) {
	snap, err := analysis.NewSnapshot(s.parser, version, []byte(text), nil)
	s.mu.Lock()
	s.docs[uri] = snap
	s.mu.Unlock()
	return snap, err
}

// Change replaces the snapshot of a document with one for the new text.
// Changes that arrive out of order are rejected with ErrStaleVersion and
// leave the store untouched.
func (s *DocumentStore) Change(uri string, version int32, text string) (*analysis.Snapshot, error) {
	prev := s.Get(uri)
	if prev != nil && version <= prev.Version {
		return nil, ErrStaleVersion
	}
	// Parse outside the lock; the version is checked again before the swap.
	snap, err := analysis.NewSnapshot(s.parser, version, []byte(text), prev)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.docs[uri]; ok && version <= cur.Version {
		return nil, ErrStaleVersion
	}
	s.docs[uri] = snap
	return snap, err
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get returns the current snapshot of a document, or nil if it is not open.
func (s *DocumentStore) Get(uri string) *analysis.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// IsCurrent reports whether version is still the stored version of uri.
// Results computed for a superseded version should be discarded.
func (s *DocumentStore) IsCurrent(uri string, version int32) bool {
	snap := s.Get(uri)
	return snap != nil && snap.Version == version
}

// URIs returns the URIs of all open documents in sorted order.
func (s *DocumentStore) URIs() []string {
	s.mu.RLock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.RUnlock()
	sort.Strings(uris)
	return uris
}
