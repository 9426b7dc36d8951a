package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"formflow-service/internal/domain"
	"formflow-service/internal/logic"
)

// SessionRepository abstracts how form sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID, formID string) *Session
	Get(sessionID string) (*Session, bool)
	DeleteIfCompleted(sessionID string)
}

// FormRepository loads form definitions (from cache/backing store).
type FormRepository interface {
	GetForm(ctx context.Context, formID string) (domain.Form, error)
}

// ResponseRepository persists completed submissions.
type ResponseRepository interface {
	SaveResponse(ctx context.Context, resp domain.Response) error
}

// AnswerPersister is an optional SessionRepository extension for stores
// that can keep answers durable so a reconnecting widget resumes.
type AnswerPersister interface {
	PersistAnswer(ctx context.Context, sessionID, questionID string, value any)
	ForgetAnswer(ctx context.Context, sessionID, questionID string)
}

// PageView is the render payload for the widget: the current page of
// the recomputed, logic-aware pagination.
type PageView struct {
	FormID     string            `json:"formId"`
	SessionID  string            `json:"sessionId"`
	Title      string            `json:"title,omitempty"`
	PageIndex  int               `json:"pageIndex"`
	PageCount  int               `json:"pageCount"`
	Questions  []domain.Question `json:"questions"`
	Done       bool              `json:"done"`
	ResponseID string            `json:"responseId,omitempty"`
}

// FormService contains the form rendering use cases.
type FormService struct {
	sessions  SessionRepository
	forms     FormRepository
	responses ResponseRepository
}

func NewFormService(sessions SessionRepository, forms FormRepository, responses ResponseRepository) *FormService {
	return &FormService{sessions: sessions, forms: forms, responses: responses}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, formID string) *Session {
	return newSessionWithClock(id, formID, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, formID string, now func() time.Time) *Session {
	return newSessionWithClock(id, formID, now)
}

// StartSession loads the form, creates or refreshes the session, and
// returns the current page.
func (s *FormService) StartSession(ctx context.Context, formID, sessionID string) (PageView, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return PageView{}, err
	}
	session := s.sessions.GetOrCreate(sessionID, formID)
	return session.view(form), nil
}

// SubmitAnswer records one answer and returns the recomputed current
// page. An empty value clears the entry: absence, not nil, signals
// "no answer" to the engine.
func (s *FormService) SubmitAnswer(ctx context.Context, sessionID, questionID string, value any) (PageView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return PageView{}, domain.ErrSessionNotFound
	}
	form, err := s.loadForm(ctx, session.FormID())
	if err != nil {
		return PageView{}, err
	}

	cleared, err := session.setAnswer(questionID, value)
	if err != nil {
		return PageView{}, err
	}
	if persister, ok := s.sessions.(AnswerPersister); ok {
		if cleared {
			persister.ForgetAnswer(ctx, sessionID, questionID)
		} else {
			persister.PersistAnswer(ctx, sessionID, questionID, value)
		}
	}

	view := session.view(form)
	session.broadcast(view)
	return view, nil
}

// Next validates the current page's required questions and advances.
// The second return is true once the session is completed, either by a
// skip rule resolving to END or by walking past the last page.
func (s *FormService) Next(ctx context.Context, sessionID string) (PageView, bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return PageView{}, false, domain.ErrSessionNotFound
	}
	form, err := s.loadForm(ctx, session.FormID())
	if err != nil {
		return PageView{}, false, err
	}

	answers := session.answersSnapshot()
	pages := logic.ComputePages(form, answers)
	index := clamp(session.pageCursor(), len(pages))
	page := pages[index]

	if missing := logic.ValidatePage(page, answers); len(missing) > 0 {
		return PageView{}, false, &domain.ValidationError{Missing: missing}
	}

	if logic.NextForPage(page, answers) == logic.NavComplete || index+1 >= len(pages) {
		view, err := s.complete(ctx, form, session)
		return view, err == nil, err
	}

	session.advance()
	view := session.view(form)
	session.broadcast(view)
	return view, false, nil
}

// Back moves one page backwards; it never validates.
func (s *FormService) Back(ctx context.Context, sessionID string) (PageView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return PageView{}, domain.ErrSessionNotFound
	}
	form, err := s.loadForm(ctx, session.FormID())
	if err != nil {
		return PageView{}, err
	}
	session.retreat()
	view := session.view(form)
	session.broadcast(view)
	return view, nil
}

// Complete force-submits the session regardless of position, after
// validating every remaining page.
func (s *FormService) Complete(ctx context.Context, sessionID string) (PageView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return PageView{}, domain.ErrSessionNotFound
	}
	form, err := s.loadForm(ctx, session.FormID())
	if err != nil {
		return PageView{}, err
	}

	answers := session.answersSnapshot()
	for _, page := range logic.ComputePages(form, answers) {
		if missing := logic.ValidatePage(page, answers); len(missing) > 0 {
			return PageView{}, &domain.ValidationError{Missing: missing}
		}
	}
	return s.complete(ctx, form, session)
}

// Subscribe returns a channel that receives page updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *FormService) Subscribe(ctx context.Context, sessionID string) (<-chan PageView, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	form, err := s.loadForm(ctx, session.FormID())
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe(form)
	return ch, cancel, nil
}

// Leave drops completed sessions once the widget disconnects; live
// sessions stay around so a reconnect resumes where the user left off.
func (s *FormService) Leave(_ context.Context, sessionID string) {
	s.sessions.DeleteIfCompleted(sessionID)
}

func (s *FormService) loadForm(ctx context.Context, formID string) (domain.Form, error) {
	form, err := s.forms.GetForm(ctx, formID)
	if err != nil {
		return domain.Form{}, err
	}
	// Stable ids at ingestion; the engine never keys answers positionally.
	return domain.EnsureIDs(form), nil
}

func (s *FormService) complete(ctx context.Context, form domain.Form, session *Session) (PageView, error) {
	resp := domain.Response{
		ID:          uuid.NewString(),
		FormID:      form.ID,
		SessionID:   session.ID(),
		Answers:     session.answersSnapshot(),
		CompletedAt: session.now(),
	}
	if err := s.responses.SaveResponse(ctx, resp); err != nil {
		return PageView{}, err
	}
	session.markCompleted(resp.ID)
	view := session.view(form)
	session.broadcast(view)
	return view, nil
}

// Session is the in-memory state of one widget walking one form.
type Session struct {
	id        string
	formID    string
	createdAt time.Time
	now       func() time.Time

	mu          sync.RWMutex
	answers     domain.AnswerSet
	pageIndex   int
	completed   bool
	responseID  string
	subscribers map[chan PageView]struct{}
}

func newSessionWithClock(id, formID string, now func() time.Time) *Session {
	return &Session{
		id:          id,
		formID:      formID,
		createdAt:   now(),
		now:         now,
		answers:     make(domain.AnswerSet),
		subscribers: make(map[chan PageView]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) FormID() string {
	return s.formID
}

// IsCompleted reports whether the session has been submitted.
func (s *Session) IsCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed
}

// Answers returns a snapshot of the recorded answer set.
func (s *Session) Answers() domain.AnswerSet {
	return s.answersSnapshot()
}

// SeedAnswers loads previously persisted answers into a fresh session.
func (s *Session) SeedAnswers(answers domain.AnswerSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range answers {
		s.answers[id] = v
	}
}

func (s *Session) setAnswer(questionID string, value any) (cleared bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false, domain.ErrSessionCompleted
	}
	if value == nil || value == "" {
		delete(s.answers, questionID)
		return true, nil
	}
	s.answers[questionID] = value
	return false, nil
}

func (s *Session) answersSnapshot() domain.AnswerSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answers.Clone()
}

func (s *Session) pageCursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageIndex
}

func (s *Session) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageIndex++
}

func (s *Session) retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pageIndex > 0 {
		s.pageIndex--
	}
}

func (s *Session) markCompleted(responseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.responseID = responseID
}

// view recomputes the pagination and snapshots the current page. The
// cursor is clamped: answers can shrink the page list under it.
func (s *Session) view(form domain.Form) PageView {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages := logic.ComputePages(form, s.answers.Clone())
	s.pageIndex = clamp(s.pageIndex, len(pages))
	return PageView{
		FormID:     form.ID,
		SessionID:  s.id,
		Title:      form.Title,
		PageIndex:  s.pageIndex,
		PageCount:  len(pages),
		Questions:  pages[s.pageIndex],
		Done:       s.completed,
		ResponseID: s.responseID,
	}
}

func (s *Session) subscribe(form domain.Form) (<-chan PageView, func()) {
	ch := make(chan PageView, 8)

	initial := s.view(form)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcast(view PageView) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the stale update so a slow widget never blocks the rest.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func clamp(index, pageCount int) int {
	if pageCount == 0 {
		return 0
	}
	if index >= pageCount {
		return pageCount - 1
	}
	if index < 0 {
		return 0
	}
	return index
}
