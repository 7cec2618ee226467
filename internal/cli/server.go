package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	pgstore "quiz-session-service/internal/infra/postgres"
	rediscache "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/token"
	transport "quiz-session-service/internal/transport/http"
)

// fallbackTokenSecret keeps local demo runs working; production sets
// security.tokenSecret in the config.
const fallbackTokenSecret = "mysecretkey12345678901234567890"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	secret := cfg.Security.TokenSecret
	if secret == "" {
		log.Printf("security.tokenSecret not set, using built-in fallback")
		secret = fallbackTokenSecret
	}
	codec := token.NewCodec(secret)

	var sessions app.SessionStore
	var content app.ContentStore

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		sessions = pgstore.NewSessionStore(db)
		content = pgstore.NewContentStore(pool)
	} else {
		log.Printf("postgres url not configured, using in-memory stores")
		sessions = memory.NewSessionStore()
		content = memory.NewContentStore(sampleQuizzes())
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
		content = rediscache.NewContentCache(client, content, quizTTL)
	}

	broker := app.NewProgressBroker()
	engine := app.NewEngine(sessions, content, codec, broker)
	router := transport.NewRouter(engine, broker)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session service on :%s", finalPort)
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

// sampleQuizzes seeds the in-memory content store for database-less runs.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:         1,
			Question:   "What is 2 + 2?",
			TimeLimit:  30,
			MaxReward:  100,
			Difficulty: domain.DifficultyEasy,
			CategoryID: 1,
			Answers: []domain.Answer{
				{ID: 1, Label: "A", Text: "3", Correct: false},
				{ID: 2, Label: "B", Text: "4", Correct: true},
				{ID: 3, Label: "C", Text: "5", Correct: false},
				{ID: 4, Label: "D", Text: "22", Correct: false},
			},
		},
		2: {
			ID:         2,
			Question:   "Which planet is closest to the sun?",
			TimeLimit:  20,
			MaxReward:  150,
			Difficulty: domain.DifficultyMedium,
			CategoryID: 1,
			Answers: []domain.Answer{
				{ID: 5, Label: "A", Text: "Venus", Correct: false},
				{ID: 6, Label: "B", Text: "Mars", Correct: false},
				{ID: 7, Label: "C", Text: "Mercury", Correct: true},
				{ID: 8, Label: "D", Text: "Earth", Correct: false},
			},
		},
	}
}
