// Package main provides the diagnostic API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/diagnomed/ddx/internal/api"
	"github.com/diagnomed/ddx/internal/auth"
	"github.com/diagnomed/ddx/internal/catalog"
	"github.com/diagnomed/ddx/internal/database"
	"github.com/diagnomed/ddx/internal/evidence"
	"github.com/diagnomed/ddx/internal/imaging"
	"github.com/diagnomed/ddx/internal/matcher"
	"github.com/diagnomed/ddx/internal/priors"
	"github.com/diagnomed/ddx/internal/session"
	"github.com/diagnomed/ddx/internal/treatment"
)

func main() {
	var (
		port        = flag.String("port", getEnv("PORT", "8080"), "Server port")
		migrateOnly = flag.Bool("migrate", false, "Run migrations and exit")
	)
	flag.Parse()

	// Knowledge bases are embedded; loading only fails on a broken build.
	mapper, err := matcher.New()
	if err != nil {
		log.Fatalf("Failed to load disease registry: %v", err)
	}
	epidemiology, err := priors.NewEpidemiology()
	if err != nil {
		log.Fatalf("Failed to load epidemiology priors: %v", err)
	}
	genomic, err := priors.NewGenomic()
	if err != nil {
		log.Fatalf("Failed to load genomic priors: %v", err)
	}
	recommender, err := treatment.New()
	if err != nil {
		log.Fatalf("Failed to load treatment protocols: %v", err)
	}
	testCatalog := catalog.Load(os.Getenv("CATALOG_PATH"))

	// Case persistence is optional; without DATABASE_URL sessions stay
	// in memory only and case-history endpoints are disabled.
	var db *database.DB
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		log.Println("Running database migrations...")
		if err := database.Migrate(dbURL); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations complete")

		if *migrateOnly {
			return
		}

		db, err = database.New(context.Background(), dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	} else {
		log.Println("DATABASE_URL not set, case persistence disabled")
		if *migrateOnly {
			log.Fatal("DATABASE_URL is required with -migrate")
		}
	}

	// Clinician auth is optional for local deployments.
	var authVerifier *auth.Verifier
	if issuer := os.Getenv("AUTH_ISSUER"); issuer != "" {
		authVerifier, err = auth.NewVerifier(auth.Config{
			Issuer:   issuer,
			Audience: os.Getenv("AUTH_AUDIENCE"),
		})
		if err != nil {
			log.Fatalf("Failed to create auth verifier: %v", err)
		}
	} else {
		log.Println("AUTH_ISSUER not set, running without authentication")
	}

	var imagingClient *imaging.Client
	if os.Getenv("CNN_SERVICE_URL") != "" {
		imagingClient, err = imaging.NewClient()
		if err != nil {
			log.Fatalf("Failed to create imaging client: %v", err)
		}
	}

	var cases session.CaseStore
	if db != nil {
		cases = db
	}
	engine := session.NewEngine(session.Config{
		Repository: session.NewMemoryRepository(),
		Matcher:    mapper,
		Aggregator: evidence.New(epidemiology, genomic, mapper),
		Catalog:    testCatalog,
		Treatment:  recommender,
		Cases:      cases,
	})

	server := api.NewServer(api.Config{
		Engine:            engine,
		Matcher:           mapper,
		Epidemiology:      epidemiology,
		Genomic:           genomic,
		Treatment:         recommender,
		Catalog:           testCatalog,
		Imaging:           imagingClient,
		DB:                db,
		AuthVerifier:      authVerifier,
		RequestsPerSecond: envFloat("RATE_LIMIT_RPS", 20),
		Burst:             int(envFloat("RATE_LIMIT_BURST", 40)),
	})

	addr := fmt.Sprintf(":%s", *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Fatalf("Invalid %s: %v", key, err)
	}
	return v
}
