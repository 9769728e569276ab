package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/docufind/backend/internal/config"
	"github.com/docufind/backend/internal/database"
	"github.com/docufind/backend/internal/jobs"
	"github.com/docufind/backend/internal/queue"
	"github.com/docufind/backend/internal/routes"
	"github.com/docufind/backend/internal/services/ai"
	"github.com/docufind/backend/internal/services/billing"
	"github.com/docufind/backend/internal/services/cases"
	"github.com/docufind/backend/internal/services/claims"
	"github.com/docufind/backend/internal/services/match"
	"github.com/docufind/backend/internal/services/matching"
	"github.com/docufind/backend/internal/services/notify"
	"github.com/docufind/backend/internal/services/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := config.New()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	store, err := storage.NewLocalStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Model client behind retry + circuit breaker.
	model := ai.WithResilience(ai.NewClient(cfg.AI), ai.NewExecutor(cfg.AI))

	caseService := cases.NewService(db, model, model, cfg.Matching)
	matcher := matching.NewService(db, model, model, cfg.Matching)
	matchService := match.NewService(db, caseService, matcher)
	billingService := billing.NewService(db)
	claimService := claims.NewService(db, store, billingService)

	// Background workers.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	dispatcher := queue.NewRedisClient(redisClient, db)
	workers := queue.NewWorkerManager(dispatcher)
	recovery := queue.NewQueue(db)
	notifier := notify.New(workers)

	jobs.RegisterJobs(workers, recovery, db, matcher, notifier, store)
	workers.StartAll()
	defer workers.StopAll()
	recovery.StartProcessing()
	defer recovery.Close()

	scheduler := jobs.StartScheduler(workers)
	defer scheduler.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	routes.RegisterRoutes(router, db, cfg, routes.Services{
		Cases:   caseService,
		Matcher: matcher,
		Matches: matchService,
		Claims:  claimService,
		Billing: billingService,
		Store:   store,
	}, workers, notifier)

	fmt.Printf("API server running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
