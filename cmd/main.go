package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/gyanguru/gyanguru-backend/config"
	"github.com/gyanguru/gyanguru-backend/controllers"
	"github.com/gyanguru/gyanguru-backend/events"
	"github.com/gyanguru/gyanguru-backend/middleware"
	"github.com/gyanguru/gyanguru-backend/otpstore"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/routes"
	"github.com/gyanguru/gyanguru-backend/services"
	"github.com/gyanguru/gyanguru-backend/utils"
	"github.com/gyanguru/gyanguru-backend/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading the process environment")
	}
	cfg := config.Load()

	appLogger := utils.NewLoggerForEnvironment(cfg.Environment)
	logger := appLogger.Slog()
	utils.RegisterGinValidators()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Error("Database initialisation failed", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Database handle unavailable", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	var (
		pending otpstore.Store[services.PendingRegistration]
		codes   otpstore.Store[services.OneTimeCode]
	)
	rdb, err := config.NewRedisClient(ctx, cfg)
	switch {
	case err != nil:
		logger.Error("Redis unavailable", "error", err)
		os.Exit(1)
	case rdb != nil:
		defer rdb.Close()
		pending = otpstore.NewRedisStore[services.PendingRegistration](rdb, "gyanguru:pending")
		codes = otpstore.NewRedisStore[services.OneTimeCode](rdb, "gyanguru:otp")
		logger.Info("Using redis for one-time codes")
	default:
		pending = otpstore.NewMemoryStore[services.PendingRegistration](nil)
		codes = otpstore.NewMemoryStore[services.OneTimeCode](nil)
		logger.Warn("REDIS_URL not set, one-time codes are kept in process memory")
	}

	bus, err := events.NewBus(events.BusConfig{
		Kind:          cfg.EventsPublisher,
		KafkaBrokers:  cfg.KafkaBrokers,
		Topic:         cfg.EventsTopic,
		ConsumerGroup: "gyanguru-performance",
	}, logger)
	if err != nil {
		logger.Error("Event bus initialisation failed", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Email:    cfg.SMTPEmail,
		Password: cfg.SMTPPassword,
	})
	var delivery services.Delivery = services.NewLogDelivery(logger)
	if mailer.Configured() {
		delivery = services.NewMailDelivery(mailer, delivery)
	}

	var storage utils.FileStorage
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		storage = utils.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	} else {
		storage = utils.NewLocalStorage(cfg.UploadFolder)
		logger.Warn("Supabase not configured, storing uploads on local disk", "folder", cfg.UploadFolder)
	}

	var generator services.Generator
	if gemini, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err != nil {
		logger.Warn("AI analysis disabled", "error", err)
	} else {
		defer gemini.Close()
		generator = gemini
	}
	var synthesizer services.Synthesizer
	if tts, err := services.NewGoogleSynthesizer(ctx, cfg.GoogleCredentialsJSON, logger); err != nil {
		logger.Warn("Text to speech disabled", "error", err)
	} else {
		defer tts.Close()
		synthesizer = tts
	}

	users := repositories.NewUserRepository(db)
	quizRepo := repositories.NewQuizRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)
	roomRepo := repositories.NewDoubtRoomRepository(db)
	assignmentRepo := repositories.NewAssignmentRepository(db)
	institutionRepo := repositories.NewInstitutionRepository(db)
	analyticsRepo := repositories.NewAnalyticsRepository(db)

	hub := ws.NewHub(logger)

	analysis := services.NewAnalysisService(generator, logger)
	registration := services.NewRegistrationService(users, pending, codes, delivery, tokens, bus.Publisher, services.RegistrationConfig{
		CodeTTL:       cfg.RegistrationOTPTTL,
		LoginCodeTTL:  cfg.LoginOTPTTL,
		Grace:         cfg.OTPGrace,
		AutoProvision: cfg.OTPAutoProvision,
	}, logger)
	authService := services.NewAuthService(users, tokens, services.NewIDTokenVerifier(cfg.GoogleClientID), mailer, logger)
	quizService := services.NewQuizService(quizRepo, attemptRepo, bus.Publisher, logger)
	roomService := services.NewDoubtRoomService(roomRepo, users, hub, bus.Publisher, time.Duration(cfg.DoubtRoomDefaultHours)*time.Hour, logger)
	assignmentService := services.NewAssignmentService(assignmentRepo, storage, analysis, bus.Publisher, logger)
	analyticsService := services.NewAnalyticsService(analyticsRepo, users, analysis, logger)
	adminService := services.NewAdminService(institutionRepo, users, analyticsRepo, logger)

	projector := events.NewPerformanceProjector(bus.Subscriber, bus.Topic, analyticsService, logger)
	go func() {
		if err := projector.Run(ctx); err != nil {
			logger.Error("Performance projector stopped", "error", err)
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), utils.LoggerMiddleware(appLogger), utils.ContextLogger(appLogger))
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRouter(r, routes.Controllers{
		Auth:       controllers.NewAuthController(registration, authService),
		Quiz:       controllers.NewQuizController(quizService),
		Doubt:      controllers.NewDoubtController(roomService),
		Upload:     controllers.NewUploadController(analysis, synthesizer, assignmentService, cfg.MaxUploadBytes),
		Assignment: controllers.NewAssignmentController(assignmentService),
		Analytics:  controllers.NewAnalyticsController(analyticsService),
		Admin:      controllers.NewAdminController(adminService),
		Health:     controllers.NewHealthController(sqlDB, hub),
		WS:         ws.NewHandler(hub, tokens, roomService, cfg.CORSOrigins, logger),
	}, middleware.AuthMiddleware(tokens, users))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server running", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
