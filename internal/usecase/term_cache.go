package usecase

import (
	"sync"

	"skill-match/internal/domain/feature"
	"skill-match/internal/domain/job"

	"github.com/google/uuid"
)

type termKey struct {
	jobID     uuid.UUID
	updatedAt int64
}

// termCache memoises job term vectors for one vocabulary version. Seeing a different
// version drops every entry.
type termCache struct {
	mu      sync.Mutex
	version int
	vocabID uuid.UUID
	entries map[termKey]feature.TermVector
}

func newTermCache() *termCache {
	return &termCache{entries: make(map[termKey]feature.TermVector)}
}

func (c *termCache) jobTerms(v *feature.Vocabulary, j job.Job) *feature.TermVector {
	if v == nil {
		return nil
	}
	key := termKey{jobID: j.ID, updatedAt: j.UpdatedAt.UnixNano()}

	c.mu.Lock()
	if c.version != v.Version || c.vocabID != v.ID {
		c.version, c.vocabID = v.Version, v.ID
		c.entries = make(map[termKey]feature.TermVector)
	}
	if tv, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return &tv
	}
	c.mu.Unlock()

	tv := v.Transform(feature.JobDocument(j))

	c.mu.Lock()
	if c.version == v.Version && c.vocabID == v.ID {
		c.entries[key] = tv
	}
	c.mu.Unlock()
	return &tv
}

func (c *termCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
