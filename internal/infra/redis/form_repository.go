package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"formflow-service/internal/domain"
)

// FormLoader fetches form definitions from a backing store (e.g., Postgres).
type FormLoader interface {
	LoadForm(ctx context.Context, formID string) (domain.Form, error)
}

// FormRepository caches form definition JSON in Redis and falls back to
// a loader on cache miss. Definitions are stored as:
//
//	SET form:{formID}:def {json} EX ttl
type FormRepository struct {
	client *redis.Client
	loader FormLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewFormRepository(client *redis.Client, loader FormLoader, ttl time.Duration) *FormRepository {
	return &FormRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *FormRepository) GetForm(ctx context.Context, formID string) (domain.Form, error) {
	key := r.defKey(formID)

	if form, ok := r.cachedForm(ctx, key); ok {
		return form, nil
	}

	result, err, _ := r.sf.Do(formID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if form, ok := r.cachedForm(ctx, key); ok {
			return form, nil
		}

		form, err := r.loader.LoadForm(ctx, formID)
		if err != nil {
			return domain.Form{}, err
		}

		if data, err := json.Marshal(form); err == nil {
			// best-effort fill; a cache write failure never fails the read
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return form, nil
	})
	if err != nil {
		return domain.Form{}, err
	}
	return result.(domain.Form), nil
}

func (r *FormRepository) cachedForm(ctx context.Context, key string) (domain.Form, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Form{}, false
	}
	var form domain.Form
	if err := json.Unmarshal(raw, &form); err != nil {
		return domain.Form{}, false
	}
	return form, true
}

func (r *FormRepository) defKey(formID string) string {
	return "form:" + formID + ":def"
}

func (r *FormRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
