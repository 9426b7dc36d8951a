package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"formflow-service/internal/app"
	"formflow-service/internal/config"
	"formflow-service/internal/domain"
	"formflow-service/internal/infra/memory"
	pgloader "formflow-service/internal/infra/postgres"
	redisinfra "formflow-service/internal/infra/redis"
	transport "formflow-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the form rendering server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.FormLoader = memory.NewStaticFormLoader(sampleForms())
	if pool != nil {
		loader = pgloader.NewFormLoader(pool)
	}

	formTTL := config.TTLDuration(cfg.Form.TTL, 10*time.Minute)
	var formRepo app.FormRepository
	if redisClient != nil {
		formRepo = redisinfra.NewFormRepository(redisClient, loader, formTTL)
	} else {
		formRepo = memory.NewFormRepository(loader, formTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var responses app.ResponseRepository = memory.NewResponseStore()
	if pool != nil {
		responses = pgloader.NewResponseWriter(pool)
	}

	service := app.NewFormService(sessions, formRepo, responses)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting formflow service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleForms provides minimal demo content; swap the loader for the
// Postgres-backed one in production.
func sampleForms() map[string]domain.Form {
	return map[string]domain.Form{
		"demo-feedback": {
			ID:           "demo-feedback",
			Title:        "Product feedback",
			DisplayStyle: domain.StyleFreeform,
			Widget:       domain.WidgetForm,
			Questions: []domain.Question{
				{
					ID: "recommend", DisplayOrder: 0, Type: domain.TypeRadio,
					Label: "Would you recommend us?", IsRequired: true,
					Options: []domain.Option{{ID: "yes", Label: "Yes"}, {ID: "no", Label: "No"}},
					Logic: &domain.LogicRules{
						SkipTo: &domain.SkipRule{
							Enabled: true,
							Rules: []domain.SkipRuleEntry{{
								Conditions: []domain.Condition{{QuestionID: "recommend", Operator: domain.OpEquals, Value: "yes"}},
								Combinator: domain.CombinatorAnd,
								Target:     "rating",
							}},
						},
					},
				},
				{
					ID: "improve", DisplayOrder: 1, Type: domain.TypeTextarea,
					Label: "What should we improve?",
				},
				{ID: "pb-1", DisplayOrder: 2, Type: domain.TypePageBreak},
				{
					ID: "rating", DisplayOrder: 3, Type: domain.TypeRating,
					Label: "How would you rate us overall?",
				},
			},
		},
	}
}
