package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/skillforge/backend/internal/auth"
	"github.com/skillforge/backend/internal/database"
	"github.com/skillforge/backend/internal/leaderboard"
	"github.com/skillforge/backend/internal/middleware"
	"github.com/skillforge/backend/internal/progression"
	"github.com/skillforge/backend/internal/seasonal"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Services
	progressionService := progression.NewService(progression.NewSQLStore(db), progression.DefaultConfig())
	leaderboardService := leaderboard.NewService(leaderboard.NewSQLStore(db))
	seasonalService := seasonal.NewService(seasonal.NewSQLStore(db))

	// Cross-service wiring: seasonal multipliers and leaderboard feeds
	// hang off the progression pipeline; challenge completions award XP
	// back through it.
	progressionService.Seasonal = seasonalService
	progressionService.Boards = leaderboardService
	seasonalService.Awards = progressionService

	// Handlers
	authHandler := auth.NewHandler(db)
	progressionHandler := progression.NewHandler(progressionService)
	leaderboardHandler := leaderboard.NewHandler(leaderboardService)
	seasonalHandler := seasonal.NewHandler(seasonalService)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/progress", progressionHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/progress/events", progressionHandler.ProcessEvent).Methods("POST")
	protected.HandleFunc("/xp/award", progressionHandler.AwardXP).Methods("POST")
	protected.HandleFunc("/streaks/{type}", progressionHandler.UpdateStreak).Methods("POST")
	protected.HandleFunc("/achievements", progressionHandler.ListAchievements).Methods("GET")
	protected.HandleFunc("/badges", progressionHandler.ListBadges).Methods("GET")
	protected.HandleFunc("/avatars", progressionHandler.ListAvatars).Methods("GET")
	protected.HandleFunc("/avatars/{id}/unlock", progressionHandler.UnlockAvatar).Methods("POST")

	protected.HandleFunc("/leaderboard/{category}/{period}", leaderboardHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/leaderboard/{category}/{period}", leaderboardHandler.UpdateEntry).Methods("PUT")

	protected.HandleFunc("/events", seasonalHandler.ListEvents).Methods("GET")
	protected.HandleFunc("/events/{id}/join", seasonalHandler.JoinEvent).Methods("POST")
	protected.HandleFunc("/events/{id}/progress", seasonalHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/events/{id}/challenges", seasonalHandler.CompleteChallenge).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Event lifecycle worker
	stop := make(chan struct{})
	defer close(stop)
	go seasonalService.RunLifecycle(time.Hour, stop)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
