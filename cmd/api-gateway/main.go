package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/urjc-apps/checkin-api/api/swagger"
	"github.com/urjc-apps/checkin-api/internal/handler"
	"github.com/urjc-apps/checkin-api/internal/middleware"
	"github.com/urjc-apps/checkin-api/internal/models"
	"github.com/urjc-apps/checkin-api/internal/repository"
	"github.com/urjc-apps/checkin-api/internal/service"
	"github.com/urjc-apps/checkin-api/pkg/cache"
	"github.com/urjc-apps/checkin-api/pkg/config"
	"github.com/urjc-apps/checkin-api/pkg/database"
	"github.com/urjc-apps/checkin-api/pkg/jobs"
	"github.com/urjc-apps/checkin-api/pkg/logger"
	corsmiddleware "github.com/urjc-apps/checkin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/urjc-apps/checkin-api/pkg/middleware/requestid"
)

// @title URJCheckIn API
// @version 1.0.0
// @description Lesson scheduling, attendance check-in and feed service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats will not be cached", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	checkinRepo := repository.NewCheckInRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "checkin-api",
	})
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	scheduleSvc := service.NewScheduleService(lessonRepo, timetableRepo, subjectRepo, roomRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, subjectRepo, profileRepo, logr)
	statsSvc := service.NewStatsService(checkinRepo, enrollmentRepo, lessonRepo, cacheRepo, cfg.Stats.CacheTTL, logr)
	statsSvc.SetMetrics(metricsSvc)
	checkinSvc := service.NewCheckInService(checkinRepo, lessonRepo, profileRepo, enrollmentRepo, statsSvc, nil, logr)
	feedSvc := service.NewFeedService(commentRepo, reportRepo, lessonRepo, subjectRepo, enrollmentRepo, cfg.Feeds.BootstrapWindow, nil, logr)

	statsQueue := jobs.NewQueue("stats-refresh", statsSvc.HandleRefreshJob, jobs.QueueConfig{
		Workers:    cfg.Stats.RefreshWorkers,
		BufferSize: cfg.Stats.RefreshBufferSize,
		Logger:     logr,
	})
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	statsQueue.Start(queueCtx)
	defer statsQueue.Stop()
	statsSvc.SetQueue(statsQueue)

	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc, enrollmentSvc, scheduleSvc)
	lessonHandler := handler.NewLessonHandler(scheduleSvc, statsSvc, feedSvc)
	checkinHandler := handler.NewCheckInHandler(checkinSvc)
	feedHandler := handler.NewFeedHandler(feedSvc)
	roomHandler := handler.NewRoomHandler(scheduleSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := middleware.JWT(authSvc)
	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.POST("/auth/logout", auth, authHandler.Logout)
		api.GET("/auth/me", auth, authHandler.Me)

		api.GET("/subjects", auth, subjectHandler.List)
		api.GET("/subjects/:id", auth, subjectHandler.Get)
		api.POST("/subjects", auth, staff, subjectHandler.Create)
		api.POST("/subjects/:id/enrollment", auth, subjectHandler.ToggleEnrollment)

		api.GET("/subjects/:id/timetables", auth, subjectHandler.ListTimetables)
		api.POST("/subjects/:id/timetables", auth, staff, subjectHandler.CreateTimetable)
		api.PUT("/timetables/:id", auth, staff, subjectHandler.UpdateTimetable)

		api.POST("/subjects/:id/lessons", auth, staff, subjectHandler.CreateLesson)
		api.GET("/lessons/feed", auth, lessonHandler.Feed)
		api.GET("/lessons/:id", auth, lessonHandler.Get)
		api.PUT("/lessons/:id", auth, staff, lessonHandler.Update)
		api.DELETE("/lessons/:id", auth, staff, lessonHandler.Delete)

		api.POST("/checkins", auth, checkinHandler.Create)
		api.GET("/lessons/:id/stats", auth, middleware.RequireCapability(models.CapSeeStatistics), lessonHandler.Stats)
		api.GET("/lessons/:id/checkins", auth, middleware.RequireCapability(models.CapSeeCodes), checkinHandler.ListByLesson)

		api.GET("/lessons/:id/comments", auth, lessonHandler.Comments)
		api.POST("/lessons/:id/comments", auth, lessonHandler.AddComment)
		api.GET("/forum/comments", auth, feedHandler.ForumComments)
		api.POST("/forum/comments", auth, feedHandler.AddForumComment)
		api.GET("/reports", auth, feedHandler.Reports)
		api.POST("/reports", auth, feedHandler.CreateReport)

		api.GET("/rooms", auth, roomHandler.List)
		api.GET("/rooms/free", auth, roomHandler.Free)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
