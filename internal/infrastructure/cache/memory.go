package cache

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local Store with the same key semantics as Redis.
type Memory struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{data: make(map[string]memoryEntry), ttl: ttlOrDefault(ttl), now: time.Now}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) getLocked(key string) ([]byte, bool) {
	e, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.data, key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) GetJSON(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	b, ok := m.getLocked(key)
	m.mu.Unlock()
	if !ok || len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.ttl
	}
	m.mu.Lock()
	m.data[key] = memoryEntry{value: b, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0)
	for k := range m.data {
		if _, live := m.getLocked(k); !live {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }
