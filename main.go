package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"streakMateAPI/handlers"
	"streakMateAPI/internal/notification"
	"streakMateAPI/internal/realtime"
	"streakMateAPI/middleware"
	"streakMateAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool             *pgxpool.Pool
	hub                *realtime.Hub
	listener           *realtime.Listener
	identityService    *services.IdentityService
	streakService      *services.StreakService
	leaderboardService *services.LeaderboardService
	sweeperService     *services.SweeperService
	feedbackService    *services.FeedbackService
	chatService        *services.ChatService
	fcmService         *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	hub = realtime.NewHub()
	listener = realtime.NewListener(dbPool, hub)

	identityService = services.NewIdentityService(dbPool)
	streakService = services.NewStreakService(dbPool, hub)
	leaderboardService = services.NewLeaderboardService(dbPool)
	feedbackService = services.NewFeedbackService(dbPool)
	chatService = services.NewChatService(dbPool)

	var push services.PushProvider
	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		push = fcmService
		log.Println("FCM Push Provider initialized successfully")
	}

	sweeperService = services.NewSweeperService(dbPool, streakService, push, 0)

	middleware.InitPrometheus()
	services.InitStreakMetrics()
	services.InitSweeperMetrics()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	backgroundCtx, stopBackground := context.WithCancel(context.Background())

	go listener.Run(backgroundCtx)
	go sweeperService.Run(backgroundCtx)

	streakHandler := handlers.NewStreakHandler(identityService, streakService)
	leaderboardHandler := handlers.NewLeaderboardHandler(identityService, leaderboardService, hub)
	guestHandler := handlers.NewGuestHandler(identityService)
	feedbackHandler := handlers.NewFeedbackHandler(identityService, feedbackService)
	chatHandler := handlers.NewChatHandler(identityService, chatService)
	webhookHandler := handlers.NewWebhookHandler(identityService)

	r := mux.NewRouter()

	// WebSocket upgrades bypass the rate limiter and monitoring middleware.
	r.Handle("/api/v1/leaderboard/ws", middleware.AuthMiddleware(http.HandlerFunc(leaderboardHandler.StreamLeaderboard)))

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "streakMate-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/guest/register", guestHandler.Register).Methods("POST")
	api.HandleFunc("/guest/login", guestHandler.Login).Methods("POST")
	api.HandleFunc("/guest/anonymous", guestHandler.Anonymous).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)

	protected.HandleFunc("/streak", streakHandler.GetStreak).Methods("GET")
	protected.HandleFunc("/streak/start", streakHandler.StartChallenge).Methods("POST")
	protected.HandleFunc("/streak/relapse", streakHandler.Relapse).Methods("POST")
	protected.HandleFunc("/streak/confirm", streakHandler.ConfirmActive).Methods("POST")
	protected.HandleFunc("/streak/days", streakHandler.GetDaysCount).Methods("GET")

	protected.HandleFunc("/leaderboard", leaderboardHandler.GetLeaderboard).Methods("GET")

	protected.HandleFunc("/chat", chatHandler.GetMessages).Methods("GET")
	protected.HandleFunc("/chat", chatHandler.SendMessage).Methods("POST")

	protected.HandleFunc("/feedback", feedbackHandler.SubmitFeedback).Methods("POST")

	protected.HandleFunc("/notifications/register-device", streakHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	stopBackground()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
