package main

import (
	"log"
	"net/http"
	"os"

	"github.com/adboardhq/adboard/internal/api"
	"github.com/adboardhq/adboard/internal/config"
	"github.com/adboardhq/adboard/internal/db"
	"github.com/adboardhq/adboard/internal/integration"
	"github.com/adboardhq/adboard/internal/providers"
	"github.com/adboardhq/adboard/internal/providers/googleads"
	"github.com/adboardhq/adboard/internal/providers/metaads"
	"github.com/adboardhq/adboard/internal/service"
	"github.com/adboardhq/adboard/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deploys set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("ADBOARD_CONFIG")
	if configPath == "" {
		configPath = "adboard.yml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := db.InitDB(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	var tokenStore store.Store
	switch cfg.Storage.Driver {
	case "memory":
		tokenStore = store.NewMemory(cfg.Storage.SnapshotPath)
	default:
		tokenStore = store.NewGorm(database)
	}

	registry := providers.NewRegistry(
		googleads.New(cfg.Providers.Google.DeveloperToken),
		metaads.New(),
	)
	svc := service.New(tokenStore, registry, map[integration.Provider]providers.Credentials{
		integration.ProviderGoogleAds: {
			ClientID:       cfg.Providers.Google.ClientID,
			ClientSecret:   cfg.Providers.Google.ClientSecret,
			DeveloperToken: cfg.Providers.Google.DeveloperToken,
		},
		integration.ProviderMetaAds: {
			ClientID:     cfg.Providers.Meta.ClientID,
			ClientSecret: cfg.Providers.Meta.ClientSecret,
		},
	})

	router := api.NewRouter(svc, database)

	addr := cfg.Addr()
	log.Printf("🚀 adboard backend starting on http://%s", addr)
	log.Printf("🔌 OAuth endpoints: http://%s/auth/{provider}", addr)
	log.Printf("📊 Campaign endpoints: http://%s/campaigns/{provider}/{integrationId}", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
