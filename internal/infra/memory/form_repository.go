package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"formflow-service/internal/domain"
)

// FormLoader fetches form definitions from a backing store (e.g., Postgres).
type FormLoader interface {
	LoadForm(ctx context.Context, formID string) (domain.Form, error)
}

// FormRepository caches form definitions with TTL to avoid repeated DB
// hits; the widget re-renders on every keystroke, the definition never
// changes mid-session.
type FormRepository struct {
	loader FormLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedForm
}

type cachedForm struct {
	form      domain.Form
	expiresAt time.Time
}

func NewFormRepository(loader FormLoader, ttl time.Duration) *FormRepository {
	return &FormRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedForm),
	}
}

func (r *FormRepository) GetForm(ctx context.Context, formID string) (domain.Form, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[formID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.form, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(formID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[formID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.form, nil
		}
		r.mu.RUnlock()

		form, err := r.loader.LoadForm(ctx, formID)
		if err != nil {
			return domain.Form{}, err
		}

		r.mu.Lock()
		r.cache[formID] = cachedForm{
			form:      form,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return form, nil
	})
	if err != nil {
		return domain.Form{}, err
	}
	return result.(domain.Form), nil
}

// StaticFormLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticFormLoader struct {
	forms map[string]domain.Form
}

func NewStaticFormLoader(forms map[string]domain.Form) *StaticFormLoader {
	return &StaticFormLoader{forms: forms}
}

func (l *StaticFormLoader) LoadForm(_ context.Context, formID string) (domain.Form, error) {
	if form, ok := l.forms[formID]; ok {
		return form, nil
	}
	return domain.Form{}, domain.ErrFormNotFound
}

func (r *FormRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
