// Package proofcache caches TXT answers by verification name for the
// duration of one verification run. Distinct rules can normalize to
// the same name (a wildcard removed alongside its base domain added),
// and the cache keeps those from issuing duplicate queries.
package proofcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/psl-verify/internal/psl/domain"
	"github.com/haukened/psl-verify/internal/psl/services/verifier"
)

// Cache is an in-memory LRU over classified proof answers. Entries
// never expire; a run is short-lived and never wants a second query
// for the same name.
type Cache struct {
	lru *lru.Cache[string, domain.ProofAnswer]
}

// New returns a Cache bounded to size entries.
func New(size int) (*Cache, error) {
	backing, err := lru.New[string, domain.ProofAnswer](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: backing}, nil
}

// Get returns the cached answer for the verification name, if present.
func (c *Cache) Get(name string) (domain.ProofAnswer, bool) {
	return c.lru.Get(name)
}

// Set stores the answer for the verification name.
func (c *Cache) Set(name string, answer domain.ProofAnswer) {
	c.lru.Add(name, answer)
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	return c.lru.Len()
}

var _ verifier.AnswerCache = (*Cache)(nil)
