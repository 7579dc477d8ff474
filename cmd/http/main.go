package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gigantefleur/storefront/internal/config"
	"gigantefleur/storefront/internal/handler"
	"gigantefleur/storefront/internal/repository"
	"gigantefleur/storefront/internal/service"
	"gigantefleur/storefront/internal/service/identity"
	"gigantefleur/storefront/internal/service/mail"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup clients
	inf, err := NewInfra(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}
	defer inf.Close()

	// 3. Setup Logic
	var admin identity.Admin
	if inf.FirebaseAuth != nil {
		admin = inf.FirebaseAuth
	}
	auth := identity.NewAuth(identity.NewClient(identity.Config{
		APIURL:   cfg.Firebase.IdentityURL,
		TokenURL: cfg.Firebase.TokenURL,
		APIKey:   cfg.Firebase.APIKey,
	}), inf.Store, admin)
	if err := auth.Restore(ctx); err != nil {
		log.Printf("[main] WARN: failed to restore auth state: %v", err)
	}

	var mailer service.Mailer
	if cfg.Mail.SendGridAPIKey != "" {
		mailer = mail.NewOrderMailer(mail.NewSendGridClient(cfg.Mail.SendGridAPIKey), cfg.Mail.From)
	}

	sessions := service.NewSessionManager(auth, repository.NewUserRepositoryFS(inf.Firestore), inf.Store, service.FallbackCredentials{
		Email:    cfg.Fallback.Email,
		Password: cfg.Fallback.Password,
		Name:     cfg.Fallback.Name,
	})
	defer sessions.Close()
	cart := service.NewCartManager(inf.Store)
	catalog := service.NewCatalogSync(
		repository.NewFlowerRepositoryFS(inf.Firestore),
		repository.NewImageRepositoryGCS(inf.GCS, cfg.Firebase.StorageBucket),
		inf.Store,
	)
	checkout := service.NewCheckoutService(sessions, cart, repository.NewOrderRepositoryFS(inf.Firestore), mailer)

	// The three managers restore independently of each other.
	restore, rctx := errgroup.WithContext(ctx)
	restore.Go(func() error { return sessions.Restore(rctx) })
	restore.Go(func() error { return cart.Restore(rctx) })
	restore.Go(func() error {
		catalog.Load(rctx)
		return nil
	})
	if err := restore.Wait(); err != nil {
		log.Fatalf("Failed to restore state: %v", err)
	}

	h := handler.NewHandler(sessions, cart, catalog, checkout, cfg.CORSOrigins)

	// 4. Setup Server
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Run server and token watcher until a signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("Starting server on port %s\n", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return auth.Watch(gctx, cfg.Firebase.TokenCheck)
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	fmt.Println("Server exiting")
}
