package memory

import (
	"context"
	"sync"

	"formflow-service/internal/domain"
)

// ResponseStore collects completed submissions in memory (tests/demos).
type ResponseStore struct {
	mu        sync.RWMutex
	responses []domain.Response
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{}
}

func (s *ResponseStore) SaveResponse(_ context.Context, resp domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}

// Responses returns a snapshot of everything saved so far.
func (s *ResponseStore) Responses() []domain.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Response, len(s.responses))
	copy(out, s.responses)
	return out
}
