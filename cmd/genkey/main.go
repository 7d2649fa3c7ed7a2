package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/service"
	"github.com/marnevik/prompt-service-api/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	name := flag.String("name", "Unnamed Key", "Display name for the key")
	totalCalls := flag.Int("total-calls", 100, "Call quota for the key")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if *totalCalls <= 0 {
		log.Fatal("total-calls must be greater than zero")
	}

	token, err := service.GenerateToken()
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewAPIKeyRepository(pool, logger)

	created, err := repo.Create(context.Background(), &apikey.APIKey{
		Token:      token,
		Name:       *name,
		TotalCalls: *totalCalls,
		IsActive:   true,
	})
	if err != nil {
		log.Fatalf("Failed to save API key to database: %v", err)
	}

	fmt.Printf("Generated API Key (SAVE THIS securely!):\n%s\n\n", token)
	fmt.Printf("ID:          %s\n", created.ID)
	fmt.Printf("Name:        %s\n", created.Name)
	fmt.Printf("Total calls: %d\n", created.TotalCalls)
}
