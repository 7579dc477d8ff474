package main

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"

	"gigantefleur/storefront/internal/config"
	"gigantefleur/storefront/internal/repository"
	"gigantefleur/storefront/internal/service"
)

// Infra holds the external clients. Every Google client is best-effort: a
// nil client makes its repository report repository.ErrUnavailable, which
// the managers treat as the remote being down.
type Infra struct {
	DB           *pgxpool.Pool
	Store        service.KeyValueStore
	Firestore    *firestore.Client
	GCS          *storage.Client
	FirebaseAuth *fbauth.Client
}

func NewInfra(ctx context.Context, cfg *config.Config) (*Infra, error) {
	inf := &Infra{}

	var clientOpts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		log.Printf("[infra] using credentials file for GCP clients")
	} else {
		log.Printf("[infra] using Application Default Credentials")
	}

	if err := config.ResolveSecrets(ctx, cfg, clientOpts...); err != nil {
		return nil, err
	}

	// Local store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		kv := repository.NewKVRepository(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		inf.DB = pool
		inf.Store = kv
		log.Printf("[infra] local store on PostgreSQL")
	} else {
		inf.Store = repository.NewMemoryKV()
		log.Printf("[infra] WARN: DATABASE_URL is empty, local store lives in memory")
	}

	if fs, err := firestore.NewClient(ctx, cfg.Firebase.ProjectID, clientOpts...); err != nil {
		log.Printf("[infra] WARN: firestore.NewClient failed: %v (catalog runs local-only)", err)
	} else {
		inf.Firestore = fs
		log.Printf("[infra] Firestore connected project=%s", cfg.Firebase.ProjectID)
	}

	if gcs, err := storage.NewClient(ctx, clientOpts...); err != nil {
		log.Printf("[infra] WARN: storage.NewClient failed: %v (image uploads will fail)", err)
	} else {
		inf.GCS = gcs
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
	}, clientOpts...)
	if err != nil {
		log.Printf("[infra] WARN: firebase app init failed: %v", err)
	} else if authClient, err := fbApp.Auth(ctx); err != nil {
		log.Printf("[infra] WARN: firebase auth init failed: %v", err)
	} else {
		inf.FirebaseAuth = authClient
		log.Printf("[infra] Firebase Auth initialized")
	}

	return inf, nil
}

func (i *Infra) Close() {
	if i.Firestore != nil {
		_ = i.Firestore.Close()
	}
	if i.GCS != nil {
		_ = i.GCS.Close()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
