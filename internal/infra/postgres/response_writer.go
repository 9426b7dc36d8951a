package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"formflow-service/internal/domain"
)

// ResponseWriter persists completed submissions as JSONB rows.
type ResponseWriter struct {
	pool *pgxpool.Pool
}

func NewResponseWriter(pool *pgxpool.Pool) *ResponseWriter {
	return &ResponseWriter{pool: pool}
}

func (w *ResponseWriter) SaveResponse(ctx context.Context, resp domain.Response) error {
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = w.pool.Exec(ctx,
		`INSERT INTO responses (id, form_id, session_id, answers, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		resp.ID, resp.FormID, resp.SessionID, answers, resp.CompletedAt)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}
