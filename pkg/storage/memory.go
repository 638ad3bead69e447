package storage

import (
	"sync"
	"time"
)

// MemoryStore keeps the streams in process memory. It backs runs without
// a database and the test suites.
type MemoryStore struct {
	mu       sync.Mutex
	stats    []*StatsRow
	comments []*Comment
}

var _ Storage = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AppendStats(row *StatsRow) error {
	if _, err := ParseStamp(row.Stamp); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]float64, len(row.Values))
	for k, v := range row.Values {
		values[k] = v
	}
	s.stats = append(s.stats, &StatsRow{Stamp: row.Stamp, Addr: row.Addr, Values: values})
	return nil
}

func (s *MemoryStore) AppendComment(c *Comment) error {
	if _, err := ParseStamp(c.Stamp); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, &Comment{Stamp: c.Stamp, Addr: c.Addr, Text: c.Text})
	return nil
}

func (s *MemoryStore) QueryStats(start, end time.Time) ([]*StatsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*StatsRow, 0)
	for _, row := range s.stats {
		if inRange(row.Stamp, start, end) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *MemoryStore) QueryComments(start, end time.Time) ([]*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Comment, 0)
	for _, c := range s.comments {
		if inRange(c.Stamp, start, end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() {
}

func inRange(stamp string, start, end time.Time) bool {
	t, err := ParseStamp(stamp)
	if err != nil {
		return false
	}
	return !t.Before(start) && !t.After(end)
}
