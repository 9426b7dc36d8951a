package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"formflow-service/internal/app"
	"formflow-service/internal/domain"
	pgloader "formflow-service/internal/infra/postgres"
	pgmigrations "formflow-service/internal/infra/postgres/migrations"
	infraredis "formflow-service/internal/infra/redis"
)

func TestFormWalkEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := seedForm(t, ctx, pgURL, sampleForm())
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewFormLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	formRepo := infraredis.NewFormRepository(redisClient, loader, 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	responses := pgloader.NewResponseWriter(pool)
	service := app.NewFormService(sessions, formRepo, responses)

	view, err := service.StartSession(ctx, "form-1", "s1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", view.PageCount)
	}

	if _, err := service.SubmitAnswer(ctx, "s1", "happy", "yes"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, done, err := service.Next(ctx, "s1"); err != nil || done {
		t.Fatalf("expected advance, done=%v err=%v", done, err)
	}
	if _, err := service.SubmitAnswer(ctx, "s1", "comments", "all good"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	view, done, err := service.Next(ctx, "s1")
	if err != nil || !done {
		t.Fatalf("expected completion, done=%v err=%v", done, err)
	}

	// The response must have landed in Postgres.
	var answersRaw []byte
	err = pool.QueryRow(ctx,
		`SELECT answers FROM responses WHERE id=$1`, view.ResponseID).Scan(&answersRaw)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var answers domain.AnswerSet
	if err := json.Unmarshal(answersRaw, &answers); err != nil {
		t.Fatalf("unmarshal answers: %v", err)
	}
	if answers["happy"] != "yes" || answers["comments"] != "all good" {
		t.Fatalf("unexpected persisted answers %v", answers)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "formflow", "POSTGRES_PASSWORD": "formflowpass", "POSTGRES_DB": "formflowdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://formflow:formflowpass@%s:%s/formflowdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedForm(t *testing.T, ctx context.Context, dsn string, form domain.Form) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(form)
	if err != nil {
		t.Fatalf("marshal form: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO forms (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, form.ID, string(data)); err != nil {
		t.Fatalf("insert form: %v", err)
	}
	return db
}

func sampleForm() domain.Form {
	return domain.Form{
		ID:           "form-1",
		Title:        "Customer feedback",
		DisplayStyle: domain.StyleFreeform,
		Widget:       domain.WidgetForm,
		Questions: []domain.Question{
			{
				ID: "happy", DisplayOrder: 0, Type: domain.TypeRadio,
				Label: "Are you happy?", IsRequired: true,
				Options: []domain.Option{{ID: "yes", Label: "Yes"}, {ID: "no", Label: "No"}},
			},
			{ID: "pb", DisplayOrder: 1, Type: domain.TypePageBreak},
			{ID: "comments", DisplayOrder: 2, Type: domain.TypeTextarea, Label: "Anything else?"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
