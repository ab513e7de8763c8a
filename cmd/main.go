package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"roastradar/internal/account"
	"roastradar/internal/api"
	"roastradar/internal/config"
	"roastradar/internal/database"
	"roastradar/internal/mailer"
	"roastradar/internal/ratelimit"
	"roastradar/internal/session"
	"roastradar/internal/suggest"
)

func init() {
	// Load environment variables from .env file.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create a context for initialization.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := database.ConnectMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from DB: %v", err)
		}
	}()

	userCol := database.UserCollection(client, cfg.MongoDB)
	if err := database.EnsureUserIndexes(ctx, userCol); err != nil {
		log.Fatalf("Index creation error: %v", err)
	}

	store := account.NewMongoStore(userCol)
	mail := mailer.NewSMTPSender(cfg.SMTPServer, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	accounts := account.NewService(store, mail, cfg.VerifyCodeTTL)
	sessions := session.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	limiter := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMax)
	generator := suggest.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SuggestTimeout)

	server := api.NewServer(accounts, sessions, limiter, generator)

	// Wrap the router with logging middleware.
	loggedRouter := handlers.LoggingHandler(os.Stdout, server.Router())

	addr := ":" + cfg.Port
	srv := &http.Server{
		Handler:      loggedRouter,
		Addr:         addr,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine.
	go func() {
		log.Printf("Server running on http://localhost%s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting gracefully.")
}
