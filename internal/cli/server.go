package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizarena-service/internal/app"
	"quizarena-service/internal/config"
	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/grok"
	"quizarena-service/internal/infra/memory"
	infrapg "quizarena-service/internal/infra/postgres"
	infraredis "quizarena-service/internal/infra/redis"
	"quizarena-service/internal/notify"
	transport "quizarena-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz platform server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

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

	var users app.UserRepository
	var quizzes app.QuizRepository
	var results app.ResultRepository
	var submissions app.SubmissionStore

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := infrapg.NewStore(pool)
		users, quizzes, results, submissions = store, store, store, store
	} else {
		log.Warn("no postgres configured, using in-memory store")
		store := memory.NewStore()
		users, quizzes, results, submissions = store, store, store, store
	}

	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		ttl := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
		quizzes = infraredis.NewQuizCache(client, quizzes, ttl)
	}

	var generator app.Generator
	if cfg.Generator.APIKey != "" {
		timeout := config.Duration(cfg.Generator.Timeout, 60*time.Second)
		generator = grok.NewClient(cfg.Generator.APIKey, cfg.Generator.BaseURL, timeout)
	} else {
		log.Warn("no generator api key configured, using canned quizzes")
		generator = cannedGenerator{}
	}

	hub := notify.NewHub()
	service := app.NewService(users, quizzes, results, submissions, generator, hub)

	handler := transport.NewHandler(service, log)
	wsHandler := transport.NewWSHandler(hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz platform")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// cannedGenerator authors a fixed quiz; useful for local runs without an API
// key. Swap in the grok client for real generation.
type cannedGenerator struct{}

func (cannedGenerator) Generate(_ context.Context, topic string, difficulty int) (domain.GeneratedQuiz, error) {
	questions := make([]domain.Question, 0, 10)
	for i := 0; i < 10; i++ {
		questions = append(questions, domain.Question{
			Text:          fmt.Sprintf("Placeholder question %d about %s?", i+1, topic),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: i % 4,
			Explanation:   "Canned quiz for local development.",
		})
	}
	return domain.GeneratedQuiz{
		Title:     fmt.Sprintf("%s Quiz - Level %d (%s)", topic, difficulty, uuid.NewString()[:8]),
		Topic:     topic,
		Category:  "General",
		Questions: questions,
	}, nil
}
