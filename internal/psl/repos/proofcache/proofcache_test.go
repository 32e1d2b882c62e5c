package proofcache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/psl-verify/internal/psl/domain"
)

func TestCacheSetGet(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)

	answer := domain.ProofAnswer{
		Status:  domain.ProofAnswered,
		Records: []string{"https://github.com/publicsuffix/list/pull/1"},
	}
	c.Set("_psl.example.com", answer)

	got, ok := c.Get("_psl.example.com")
	assert.True(t, ok)
	assert.Equal(t, answer, got)

	_, ok = c.Get("_psl.other.com")
	assert.False(t, ok)
}

func TestCacheStoresNegativeAnswers(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)

	c.Set("_psl.example.com", domain.ProofAnswer{Status: domain.ProofNXDomain})

	got, ok := c.Get("_psl.example.com")
	assert.True(t, ok)
	assert.Equal(t, domain.ProofNXDomain, got.Status)
}

func TestCacheEvictsLRU(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("_psl.%d.example.com", i), domain.ProofAnswer{Status: domain.ProofNoAnswer})
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("_psl.0.example.com")
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}
