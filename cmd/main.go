// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"go_5_course_market/internal/config"
	"go_5_course_market/internal/handlers"
	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/repository"
	"go_5_course_market/internal/service"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	//　設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)
	log.Println("Log Config Loading...")

	// Configを読み込み
	if err := config.LoadConfig("./configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}

	// 開発環境では色付きテキスト、それ以外はJSONで出力する
	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		tintOpts := &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		}
		handler = tint.NewHandler(os.Stderr, tintOpts)
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}
		handler = slog.NewJSONHandler(os.Stderr, jsonOpts)
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Application starting...")

	// 2. Initialize Database Connection (GORM)
	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()

	if err := repository.AutoMigrate(db); err != nil {
		slog.Error("Error migrating database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Dependency Injection
	courseRepo := repository.NewGormCourseRepository()
	enrollmentRepo := repository.NewGormEnrollmentRepository()
	userRepo := repository.NewGormUserRepository()

	// Redis有効時のみ集計キャッシュを使う。無効時は常にミスするNoop実装
	var analyticsCache repository.AnalyticsCache = repository.NoopAnalyticsCache{}
	if config.Cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: config.Cfg.Redis.Addr,
			DB:   config.Cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			slog.Error("Error connecting to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		ttl := time.Duration(config.Cfg.App.AnalyticsCacheTTL) * time.Second
		analyticsCache = repository.NewRedisAnalyticsCache(redisClient, ttl)
		slog.Info("Redis analytics cache enabled", slog.String("addr", config.Cfg.Redis.Addr))
	}

	gateway := service.NewRestyPaymentGateway(&config.Cfg)
	notifier := service.NewNotifier(&config.Cfg)

	entitlementService := service.NewEntitlementService(db, courseRepo, enrollmentRepo)
	enrollmentService := service.NewEnrollmentService(db, enrollmentRepo, courseRepo, userRepo, gateway, notifier)
	progressService := service.NewProgressService(db, courseRepo, enrollmentRepo, &config.Cfg)
	analyticsService := service.NewAnalyticsService(db, courseRepo, enrollmentRepo, analyticsCache)

	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService, logger)
	lessonHandler := handlers.NewLessonHandler(entitlementService, progressService, logger)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, logger)

	// 4. Setup Router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	// CORS 設定と適用 (設定ファイルから読み込んだ値を使用)
	corsOptions := cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   config.Cfg.CORS.AllowedMethods,
		AllowedHeaders:   config.Cfg.CORS.AllowedHeaders,
		ExposedHeaders:   config.Cfg.CORS.ExposedHeaders,
		AllowCredentials: config.Cfg.CORS.AllowCredentials,
		MaxAge:           config.Cfg.CORS.MaxAge,
		Debug:            false,
	}
	corsHandler := cors.New(corsOptions)
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/courses/{course_id}", func(r chi.Router) {
			// レッスン閲覧は匿名でもアクセス可能（プレビュー判定はサービス側）
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuthMiddleware(&config.Cfg))
				r.Get("/lessons/{lesson_id}", lessonHandler.GetLesson)
			})

			// 受講登録・進捗は認証必須
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuthMiddleware(&config.Cfg))
				r.Post("/enrollments", enrollmentHandler.PostEnrollment)
				r.Get("/enrollment", enrollmentHandler.GetEnrollment)
				r.Get("/progress", lessonHandler.GetCourseProgress)
				r.Get("/analytics", analyticsHandler.GetCourseAnalytics)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuthMiddleware(&config.Cfg))
			r.Post("/enrollments/{enrollment_id}/lessons/{lesson_id}/complete", enrollmentHandler.CompleteLesson)
			r.Get("/instructors/{instructor_id}/analytics", analyticsHandler.GetInstructorAnalytics)
		})
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sqlDB, err := db.DB()
		if err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not get DB object", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not ping DB", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	log.Println("Server exiting")
}
