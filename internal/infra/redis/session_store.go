package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"formflow-service/internal/app"
	"formflow-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - It keeps a local in-memory map of sessions to reuse the in-process
//     broadcast logic.
//   - Answers are mirrored to a Redis hash per session
//     (HSET form:session:{id}:answers {questionID} {json}) so a widget
//     that reconnects to another instance resumes where it left off.
//   - For true distribution you'd pair this with a pub/sub projector
//     that fans out page updates across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID, formID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := app.NewSession(sessionID, formID)
	if answers := s.restoreAnswers(sessionID); len(answers) > 0 {
		session.SeedAnswers(answers)
	}
	s.sessions[sessionID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.metaKey(sessionID), formID, s.ttl).Err()
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) DeleteIfCompleted(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if session.IsCompleted() {
		delete(s.sessions, sessionID)
		_ = s.client.Del(context.Background(),
			s.metaKey(sessionID), s.answersKey(sessionID)).Err()
	}
}

// PersistAnswer mirrors one answer into the session's Redis hash.
func (s *SessionStore) PersistAnswer(ctx context.Context, sessionID, questionID string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	key := s.answersKey(sessionID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, questionID, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

// ForgetAnswer removes a cleared answer from the Redis hash.
func (s *SessionStore) ForgetAnswer(ctx context.Context, sessionID, questionID string) {
	_ = s.client.HDel(ctx, s.answersKey(sessionID), questionID).Err()
}

func (s *SessionStore) restoreAnswers(sessionID string) domain.AnswerSet {
	raw, err := s.client.HGetAll(context.Background(), s.answersKey(sessionID)).Result()
	if err != nil || len(raw) == 0 {
		return nil
	}
	answers := make(domain.AnswerSet, len(raw))
	for questionID, encoded := range raw {
		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			continue
		}
		answers[questionID] = value
	}
	return answers
}

func (s *SessionStore) metaKey(sessionID string) string {
	return "form:session:" + sessionID
}

func (s *SessionStore) answersKey(sessionID string) string {
	return "form:session:" + sessionID + ":answers"
}
