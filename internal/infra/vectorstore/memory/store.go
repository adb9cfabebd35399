package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bryanwahyu/automaton-sar/internal/domain/knowledge"
)

// Store is an in-process vector index with exact search. It backs local
// runs and tests; production deployments use the Milvus store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]knowledge.Document
	dim  int
}

func New() *Store {
	return &Store{docs: make(map[string]knowledge.Document)}
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

func (s *Store) Upsert(_ context.Context, docs ...knowledge.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("memory store: document without id")
		}
		if len(d.Embedding) == 0 {
			return fmt.Errorf("memory store: document %s has no embedding", d.ID)
		}
		if s.dim == 0 {
			s.dim = len(d.Embedding)
		} else if len(d.Embedding) != s.dim {
			return fmt.Errorf("memory store: document %s has dimension %d, want %d", d.ID, len(d.Embedding), s.dim)
		}
		d.Distance = 0
		d.Embedding = append([]float32(nil), d.Embedding...)
		d.Tags = copyTags(d.Tags)
		s.docs[d.ID] = d
	}
	return nil
}

// Nearest ranks by squared euclidean distance, ties by ID.
func (s *Store) Nearest(_ context.Context, vector []float32, k int) ([]knowledge.Document, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.docs) == 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("memory store: query dimension %d, want %d", len(vector), s.dim)
	}

	out := make([]knowledge.Document, 0, len(s.docs))
	for _, d := range s.docs {
		d.Distance = squaredL2(vector, d.Embedding)
		d.Tags = copyTags(d.Tags)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func copyTags(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
