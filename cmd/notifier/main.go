// notifier is a long-running Kafka consumer that reads notification events
// from the "notify-outbox" topic, resolves them against the FoodBridge
// database, and delivers the resulting emails via Resend.
//
// Configuration is done entirely via environment variables so the binary runs
// identically in Docker, on bare metal, or in any CI environment:
//
//	KAFKA_BROKERS   comma-separated broker list, e.g. "kafka:9092"
//	RESEND_API_KEY  Resend API key (starts with "re_...")
//	MAIL_FROM       sender address, e.g. "FoodBridge <notifications@foodbridge.org>"
//	DB_PATH         path to the shared SQLite database file
//	PLATFORM_EMAIL  optional inbox for new-donation notices
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/foodbridge/foodbridge/config"
	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/notify"
)

func main() {
	cfg := config.Load()

	brokers := requireEnv("KAFKA_BROKERS")
	apiKey := requireEnv("RESEND_API_KEY")

	db, err := database.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("notifier: failed to open database: %v", err)
	}
	defer db.Close()

	composer := notify.NewComposer(db, os.Getenv("PLATFORM_EMAIL"))
	sender := notify.NewResendSender(apiKey, cfg.Mail.FromAddress)

	consumer := notify.NewConsumer(strings.Split(brokers, ","), composer, sender)
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Printf("notifier: error closing consumer: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("notifier: starting (brokers=%s from=%s)", brokers, cfg.Mail.FromAddress)
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("notifier: fatal error: %v", err)
	}
	log.Println("notifier: shutdown complete")
}

// requireEnv returns the value of the named environment variable or calls
// log.Fatal if it is empty.  This keeps startup-time misconfiguration loud and
// obvious rather than surfacing as a runtime nil-pointer or auth failure later.
func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("notifier: required environment variable %q is not set", key)
	}
	return v
}
