package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/lifecycle"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/notify"
	"github.com/safar/storefront/internal/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Migrate database: %v", err)
		}
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		provider, err := metrics.Setup("storefront")
		if err != nil {
			log.Fatalf("Setup metrics: %v", err)
		}
		defer func() {
			if err := metrics.Shutdown(context.Background(), provider); err != nil {
				log.Printf("Shutdown metrics: %v", err)
			}
		}()
		metricsHandler = promhttp.Handler()
	}

	m, err := metrics.New(nil)
	if err != nil {
		log.Fatalf("Create metrics: %v", err)
	}

	directory := auth.NewDirectory(db)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Notification.SendGridAPIKey != "" {
		client := notify.NewSendGridClient(cfg.Notification.SendGridAPIKey, cfg.Notification.StoreName)
		notifier = notify.NewMailer(client, directory, cfg.Notification.FromAddress, cfg.Notification.StoreName)
		log.Printf("[notify] sendgrid mailer enabled: from=%s", cfg.Notification.FromAddress)
	} else {
		log.Printf("[notify] SENDGRID_API_KEY is empty, notifications are logged only")
	}

	if cfg.Auth.ProxySecret == "" {
		log.Printf("[auth] WARN: AUTH_PROXY_SECRET is empty, identity headers are trusted from any caller")
	}

	handler := &api.Handler{
		Carts:     cart.NewService(db, cfg.Checkout.MaxRetries),
		Checkout:  checkout.NewService(db, notifier, m, cfg.Checkout.MaxRetries),
		Orders:    lifecycle.NewManager(db, notifier, m, cfg.Checkout.MaxRetries),
		Catalog:   catalog.New(db, m, cfg.Import.Workers, cfg.Import.MaxAttempts),
		Customers: directory,
		Payments:  payment.NewManualGateway(),
		DB:        db,
	}

	gin.SetMode(gin.ReleaseMode)
	authn := auth.NewHeaderAuthenticator(cfg.Auth.ProxySecret, directory)
	router := api.NewRouter(handler, authn, cfg.Metrics.Path, metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
