package router

import (
	"net/http"
	"time"

	"sinedi/config"
	"sinedi/internal/domain"
	"sinedi/internal/handler"
	"sinedi/internal/middleware"
	"sinedi/internal/repository"
	"sinedi/internal/service"
	"sinedi/internal/session"
	"sinedi/internal/store"
	"sinedi/internal/ws"
	"sinedi/pkg/cloudinary"
	"sinedi/pkg/payment"

	"github.com/gin-gonic/gin"
)

// Deps are the external collaborators chosen by main. Cloud and FCM may be
// nil; Sessions defaults to an in-process KV.
type Deps struct {
	Store    store.Store
	Cloud    cloudinary.Client
	FCM      *service.FCMService
	Sessions session.KV
	Events   service.EventPublisher
	Payments payment.Provider
}

// App is the wired server: the HTTP engine plus the services main starts
// and stops around it.
type App struct {
	Engine   *gin.Engine
	Auth     *service.AuthService
	Wallet   *service.WalletService
	Feed     *service.FeedService
	Sessions *session.Holder

	limiter *middleware.InMemoryRateLimiter
}

func (a *App) Close() {
	a.Feed.Stop()
	a.Sessions.Close()
	if a.limiter != nil {
		a.limiter.Stop()
	}
}

func Setup(cfg *config.Config, deps Deps) *App {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewMemoryKV()
	}
	if deps.Payments == nil {
		deps.Payments = payment.NewStubProvider()
	}
	st := deps.Store

	r := gin.New()
	r.Use(gin.Recovery())
	var limiter *middleware.InMemoryRateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, time.Minute)
	}
	r.Use(middleware.RateLimit(limiter))

	// Repositories
	userRepo := repository.NewUserRepository(st)
	jobRepo := repository.NewJobRepository(st)
	videoRepo := repository.NewVideoRepository(st)
	walletRepo := repository.NewWalletRepository(st)
	reviewRepo := repository.NewReviewRepository(st)
	messageRepo := repository.NewMessageRepository(st)
	notificationRepo := repository.NewNotificationRepository(st)
	withdrawalRepo := repository.NewWithdrawalRepository(jobRepo)
	adminRepo := repository.NewAdminRepository(st, jobRepo)

	liveHub := ws.NewHub()
	chatHub := ws.NewChatHub()

	// Services
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, deps.FCM, liveHub, deps.Events)
	authSvc := service.NewAuthService(cfg, userRepo)
	profileSvc := service.NewProfileService(userRepo)
	ledgerSvc := service.NewLedgerService(st, jobRepo, userRepo, videoRepo, notifSvc, deps.Payments, cfg.Ledger)
	walletSvc := service.NewWalletService(st, userRepo, jobRepo, walletRepo, notifSvc, cfg.Wallet)
	reviewSvc := service.NewReviewService(st, userRepo, reviewRepo, notifSvc)
	chatSvc := service.NewChatService(st, jobRepo, messageRepo, notifSvc, chatHub)
	videoSvc := service.NewVideoService(videoRepo, ledgerSvc, deps.Cloud)
	feedSvc := service.NewFeedService(st, liveHub)
	holder := session.NewHolder(st, userRepo, deps.Sessions, cfg.Redis.SessionTTL)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	meHandler := handler.NewMeHandler(profileSvc, walletSvc, ledgerSvc, withdrawalRepo)
	jobHandler := handler.NewJobHandler(ledgerSvc, reviewSvc, chatSvc)
	videoHandler := handler.NewVideoHandler(videoSvc)
	tutorHandler := handler.NewTutorHandler(profileSvc, reviewSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	uploadHandler := handler.NewUploadHandler(deps.Cloud)
	adminHandler := handler.NewAdminHandler(adminRepo, withdrawalRepo, profileSvc, ledgerSvc, walletSvc)

	authMw := middleware.AuthRequired(&cfg.JWT, holder)
	tutorOnly := middleware.RequireRole(domain.RoleTutor)
	studentOnly := middleware.RequireRole(domain.RoleStudent)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/profile", meHandler.GetProfile)
			me.PATCH("/profile", meHandler.UpdateProfile)
			me.GET("/wallet", meHandler.GetWallet)
			me.GET("/wallet/transactions", meHandler.Transactions)
			me.POST("/wallet/recalculate", meHandler.Recalculate)
			me.GET("/stats", tutorOnly, meHandler.Stats)
			me.GET("/withdraw/quote", meHandler.WithdrawQuote)
			me.POST("/withdraw", tutorOnly, meHandler.Withdraw)
			me.GET("/withdrawals", meHandler.Withdrawals)
			me.GET("/activity", meHandler.Activity)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			me.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
		}

		jobs := api.Group("/jobs")
		jobs.Use(authMw)
		{
			jobs.POST("", studentOnly, jobHandler.Create)
			jobs.GET("/:id", jobHandler.Get)
			jobs.POST("/:id/payment-intent", studentOnly, jobHandler.PaymentIntent)
			jobs.POST("/:id/pay", jobHandler.Pay)
			jobs.POST("/:id/take", tutorOnly, jobHandler.Take)
			jobs.POST("/:id/finish", jobHandler.Finish)
			jobs.POST("/:id/reject", tutorOnly, jobHandler.Reject)
			jobs.PUT("/:id/meeting-link", tutorOnly, jobHandler.SetMeetingLink)
			jobs.POST("/:id/review", studentOnly, jobHandler.Review)
			jobs.GET("/:id/messages", jobHandler.Messages)
			jobs.POST("/:id/messages", jobHandler.SendMessage)
		}
		api.GET("/queue", authMw, tutorOnly, jobHandler.Queue)

		tutors := api.Group("/tutors")
		tutors.Use(authMw)
		{
			tutors.GET("", tutorHandler.List)
			tutors.GET("/:id/reviews", tutorHandler.Reviews)
		}

		videos := api.Group("/videos")
		videos.Use(authMw)
		{
			videos.GET("", videoHandler.List)
			videos.POST("", tutorOnly, videoHandler.Add)
			videos.POST("/upload", tutorOnly, videoHandler.Upload)
			videos.POST("/:id/buy", studentOnly, videoHandler.Buy)
		}

		api.POST("/uploads/result", authMw, tutorOnly, uploadHandler.UploadResult)

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/:id", adminHandler.GetUser)
			admin.GET("/withdrawals", adminHandler.ListWithdrawals)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/uploads/proof", uploadHandler.UploadProof)
			admin.POST("/audit", adminHandler.AuditWallets)
		}
	}

	r.GET("/ws/chat", authMw, handler.UpgradeChatWS(chatSvc, chatHub))
	r.GET("/ws/live", authMw, handler.UpgradeLiveWS(liveHub))

	return &App{
		Engine:   r,
		Auth:     authSvc,
		Wallet:   walletSvc,
		Feed:     feedSvc,
		Sessions: holder,
		limiter:  limiter,
	}
}
