// server is the FoodBridge API: donation listings, the claim flow, auth,
// role management, and image uploads. Notifications are published to Kafka
// and delivered by the separate notifier binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foodbridge/foodbridge/config"
	"github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/donations"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/roles"
	"github.com/foodbridge/foodbridge/internal/token"
	"github.com/foodbridge/foodbridge/internal/web/handlers"
	"github.com/foodbridge/foodbridge/pkg/models"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("foodbridge-server %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg := config.Load()

	if cfg.JWT.SigningKey == "" {
		key, err := token.GenerateSigningKey()
		if err != nil {
			log.Fatalf("Failed to generate signing key: %v", err)
		}
		log.Println("WARNING: JWT_SIGNING_KEY is empty — using a random key, tokens will not survive a restart")
		cfg.JWT.SigningKey = key
	}

	// Initialize SQLite database.
	db, err := database.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// The outbox is optional: without brokers, events are logged and dropped
	// so the API stays fully usable in local development.
	var dispatcher notify.Dispatcher = notify.LogDispatcher{}
	if cfg.Kafka.Brokers != "" {
		outbox := notify.NewOutbox(strings.Split(cfg.Kafka.Brokers, ","))
		defer outbox.Close()
		dispatcher = outbox
		log.Printf("Notification outbox enabled (brokers=%s)", cfg.Kafka.Brokers)
	} else {
		log.Println("KAFKA_BROKERS not set — notifications will be logged, not delivered")
	}

	// Initialize services.
	authService := auth.New(db, dispatcher)
	donationService := donations.New(db, dispatcher)
	roleService := roles.New(db, dispatcher)
	tokenService := token.New(cfg.JWT.SigningKey, cfg.JWT.Issuer)

	// Seed the bootstrap admin if configured.
	seedAdmin(db, os.Getenv("ADMIN_EMAIL"))

	// Initialize router.
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Initialize handlers.
	h := handlers.New(db, cfg, authService, donationService, roleService, tokenService, dispatcher)

	// Processed donation photos.
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir))))

	r.Route("/api", func(r chi.Router) {
		// Public routes.
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Get("/donations", h.ListDonations)

		// Protected routes (login required).
		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(tokenService))

			r.Get("/donations/browse", h.BrowseDonations)
			r.Get("/donations/mine", h.MyDonations)
			r.Post("/donations", h.CreateDonation)
			r.Put("/donations/{id}", h.UpdateDonation)
			r.Delete("/donations/{id}", h.DeleteDonation)
			r.Post("/donations/{id}/claim", h.ClaimDonation)
			r.Post("/uploads", h.UploadImage)
		})

		// Admin routes (login + admin role required).
		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(tokenService))
			r.Use(handlers.AdminMiddleware(roleService))

			r.Post("/admin/promote", h.AdminPromote)
			r.Post("/admin/digest", h.AdminDigest)
		})
	})

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("FoodBridge server starting on %s (env: %s)", addr, cfg.Server.Env)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

// seedAdmin ensures the configured bootstrap account holds the admin role.
// Every later admin is promoted through the API by an existing one.
func seedAdmin(db *database.DB, email string) {
	if email == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		log.Printf("Error looking up admin user: %v", err)
		return
	}
	if user == nil {
		log.Printf("ADMIN_EMAIL %s has no account yet — sign up first, then restart", email)
		return
	}

	if err := db.AddRole(ctx, user.ID, models.RoleAdmin); err != nil {
		log.Printf("Failed to set admin role for %s: %v", email, err)
		return
	}
	log.Printf("Admin role ensured for %s (%s)", email, user.ID)
}
