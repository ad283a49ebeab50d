package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/escolanoar/vocacional/internal/auth"
	"github.com/escolanoar/vocacional/internal/cache"
	"github.com/escolanoar/vocacional/internal/config"
	"github.com/escolanoar/vocacional/internal/database"
	"github.com/escolanoar/vocacional/internal/events"
	"github.com/escolanoar/vocacional/internal/middleware"
	"github.com/escolanoar/vocacional/internal/narrative"
	"github.com/escolanoar/vocacional/internal/vocacional"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Assessment service and its optional collaborators
	service := vocacional.NewService(vocacional.NewStore(db), cfg.Engine,
		cfg.Assessment.MaxCompleted, cfg.Assessment.SimilarDelta)

	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("WARN: redis unavailable at %s, bank cache disabled: %v", cfg.Redis.Address, err)
			rdb.Close()
		} else {
			defer rdb.Close()
			service.SetBankCache(cache.NewBankCache(rdb, cfg.Redis.BankTTL))
			log.Printf("Question bank cache enabled (ttl=%s)", cfg.Redis.BankTTL)
		}
		cancel()
	}

	publisher, err := events.NewPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("WARN: rabbitmq unavailable, finalized events disabled: %v", err)
	} else {
		defer publisher.Close()
		service.SetPublisher(publisher)
	}

	var llm narrative.LLMClient
	if cfg.Anthropic.APIKey != "" {
		llm = narrative.NewAPIClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
		log.Printf("LLM summaries enabled (model=%s)", cfg.Anthropic.Model)
	}
	service.SetSummarizer(narrative.NewWriter(llm))

	// Initialize handlers
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authHandler := auth.NewHandler(db, tokens)
	vocHandler := vocacional.NewHandler(service)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(tokens))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	vocHandler.Register(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Printf("Server stopped")
}
