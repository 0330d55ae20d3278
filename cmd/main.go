package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"skill-exchange/challenge-service/internal/config"
	"skill-exchange/challenge-service/internal/handler"
	"skill-exchange/challenge-service/internal/repository"
	"skill-exchange/challenge-service/internal/services"
	"skill-exchange/challenge-service/internal/utils"
	"skill-exchange/challenge-service/internal/utils/mongodb"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// MongoDB
	client, err := mongodb.Connect(ctx, cfg.MongoDB)
	if err != nil {
		log.Fatal("Mongo connect:", err)
	}
	db := client.Database(cfg.MongoDB.DBName)
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Disconnecting MongoDB...")
		return client.Disconnect(ctx)
	})

	// Redis catalog cache
	cache, err := utils.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal("Redis connect:", err)
	}
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis...")
		return cache.Close()
	})

	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	ranker := services.NewRanker(cfg.Engine.RankerSeed)
	streak := services.StreakTracker{ResetOnMissedDay: cfg.Engine.StreakResetOnMissedDay}
	svc := services.NewChallengeService(userRepo, challengeRepo, ranker, streak, cache)

	services.NewCacheRefresher(svc).Start(ctx)

	challengeHandler := handler.NewChallengeHandler(svc)
	progressionHandler := handler.NewProgressionHandler(svc)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.RedirectTrailingSlash = false

	authMW := utils.JWTAuthMiddleware(cfg.Auth.JWTSecret)

	api := router.Group("/api")
	api.Use(authMW)
	{
		api.GET("/users/progress", progressionHandler.GetProgress)

		challenges := api.Group("/challenges")
		{
			challenges.GET("", challengeHandler.ListAll)
			challenges.GET("/personalized", challengeHandler.ListPersonalized)
			challenges.GET("/daily", challengeHandler.ListDaily)
			challenges.GET("/recommended", challengeHandler.ListRecommended)
			challenges.GET("/completed", challengeHandler.ListCompleted)
			challenges.GET("/:id", challengeHandler.GetByID)
			challenges.POST("/:id/complete", challengeHandler.Complete)
		}

		admin := api.Group("/admin/challenges")
		admin.Use(utils.RequireRoles("admin"))
		{
			admin.POST("", challengeHandler.Create)
			admin.PUT("/:id", challengeHandler.Update)
			admin.DELETE("/:id", challengeHandler.Delete)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.Println("Challenge service listening on :" + cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] HTTP server shutting down...")
		return srv.Shutdown(ctx)
	})

	shutdownManager.Wait()
}
