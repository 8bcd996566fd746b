// This is a **mock authentication service**, issuing JWT tokens for the
// admin operations of the simulation worker, simulating operator login.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/app"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/auth"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/config"
	"go.uber.org/zap"
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// tokenHandler signs a token for the "subject" query parameter, defaulting
// to a fixed operator.
func tokenHandler(secret string, ttl time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := r.URL.Query().Get("subject")
		if subject == "" {
			subject = "operator"
		}

		token, err := auth.GenerateToken(subject, secret, ttl)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		resp := TokenResponse{Token: token, ExpiresIn: int64(ttl.Seconds())}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("TYCOON_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := app.NewLogger(cfg.Observability)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	logger = logger.Named("auth_service")
	defer func() { _ = logger.Sync() }()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret must be set")
	}

	mux := http.NewServeMux()
	mux.Handle("/token", tokenHandler(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Auth.TokenServicePort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Authentication service running", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Token server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Token server shutdown error", zap.Error(err))
	}
}
