package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"formflow-service/internal/domain"
)

// FormLoader loads form definition JSONB from Postgres.
type FormLoader struct {
	pool *pgxpool.Pool
}

func NewFormLoader(pool *pgxpool.Pool) *FormLoader {
	return &FormLoader{pool: pool}
}

func (l *FormLoader) LoadForm(ctx context.Context, formID string) (domain.Form, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM forms WHERE id=$1`, formID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Form{}, domain.ErrFormNotFound
	}
	if err != nil {
		return domain.Form{}, fmt.Errorf("load form: %w", err)
	}
	var form domain.Form
	if err := json.Unmarshal(raw, &form); err != nil {
		return domain.Form{}, fmt.Errorf("unmarshal form: %w", err)
	}
	if form.ID == "" {
		form.ID = formID
	}
	return form, nil
}
