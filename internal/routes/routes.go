package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/docufind/backend/internal/config"
	"github.com/docufind/backend/internal/handlers"
	"github.com/docufind/backend/internal/middleware"
	"github.com/docufind/backend/internal/queue"
	"github.com/docufind/backend/internal/services/billing"
	"github.com/docufind/backend/internal/services/cases"
	"github.com/docufind/backend/internal/services/claims"
	"github.com/docufind/backend/internal/services/match"
	"github.com/docufind/backend/internal/services/matching"
	"github.com/docufind/backend/internal/services/notify"
	"github.com/docufind/backend/internal/services/storage"
)

// Services bundles the wired service layer handed to the router.
type Services struct {
	Cases   *cases.Service
	Matcher *matching.Service
	Matches *match.Service
	Claims  *claims.Service
	Billing *billing.Service
	Store   storage.BlobStore
}

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, svcs Services, workers *queue.WorkerManager, notifier *notify.Notifier) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// 60 requests/s per IP, 10 auth attempts per minute.
	rateLimiter := middleware.NewRateLimiter(60, 10, 120, 5)
	router.Use(rateLimiter.IPRateLimiterMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db)
	caseHandler := handlers.NewCaseHandler(svcs.Cases, workers, notifier)
	matchingHandler := handlers.NewMatchingHandler(svcs.Matcher)
	matchHandler := handlers.NewMatchHandler(svcs.Matches, notifier)
	claimHandler := handlers.NewClaimHandler(svcs.Claims, notifier)
	referenceHandler := handlers.NewReferenceHandler(db)

	authGroup := router.Group("/api/auth")
	authGroup.Use(rateLimiter.AuthRateLimiterMiddleware())
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
	}

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/me", authHandler.Me)

		api.GET("/document-types", referenceHandler.ListDocumentTypes)
		api.GET("/pickup-stations", referenceHandler.ListPickupStations)
		api.GET("/addresses", referenceHandler.ListAddresses)
		api.POST("/addresses", referenceHandler.CreateAddress)

		caseGroup := api.Group("/cases")
		{
			caseGroup.POST("/found", caseHandler.CreateFound)
			caseGroup.POST("/lost", caseHandler.CreateLost)
			caseGroup.GET("/:id", caseHandler.Get)
			caseGroup.GET("/:id/status", caseHandler.Status)
			caseGroup.GET("/:id/history", caseHandler.History)
			caseGroup.POST("/:id/submit", caseHandler.Submit)
		}

		matchGroup := api.Group("/matches")
		{
			matchGroup.GET("", matchHandler.List)
			matchGroup.GET("/:id", matchHandler.Get)
			matchGroup.POST("/:id/accept", matchHandler.Accept)
			matchGroup.POST("/:id/reject", matchHandler.Reject)
		}

		claimGroup := api.Group("/claims")
		{
			claimGroup.POST("", claimHandler.Create)
			claimGroup.GET("", claimHandler.List)
			claimGroup.GET("/:id", claimHandler.Get)
			claimGroup.GET("/:id/history", claimHandler.History)
			claimGroup.POST("/:id/cancel", claimHandler.Cancel)
			claimGroup.POST("/:id/dispute", claimHandler.Dispute)
		}
	}

	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("/document-types", referenceHandler.CreateDocumentType)
		admin.POST("/pickup-stations", referenceHandler.CreatePickupStation)

		admin.POST("/cases/:id/verify", middleware.RequirePermission(middleware.ActionVerifyCase), caseHandler.Verify)
		admin.POST("/cases/:id/reject", middleware.RequirePermission(middleware.ActionRejectCase), caseHandler.Reject)

		admin.GET("/matching/candidates/:document_id", middleware.RequirePermission(middleware.ActionSearchMatches), matchingHandler.Candidates)
		admin.POST("/matching/sweep/:case_id", middleware.RequirePermission(middleware.ActionSearchMatches), matchingHandler.Sweep)

		admin.POST("/matches/:id/complete", matchHandler.Complete)
		admin.POST("/matches/:id/verify", middleware.RequirePermission(middleware.ActionAdminVerify), matchHandler.AdminVerify)

		admin.POST("/claims/:id/verify", middleware.RequirePermission(middleware.ActionVerifyClaim), claimHandler.Verify)
		admin.POST("/claims/:id/reject", middleware.RequirePermission(middleware.ActionRejectClaim), claimHandler.Reject)
		admin.POST("/claims/:id/review", middleware.RequirePermission(middleware.ActionReviewDispute), claimHandler.ReviewDispute)
	}
}
