package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/escolanoar/vocacional/internal/cache"
	"github.com/escolanoar/vocacional/internal/config"
	"github.com/escolanoar/vocacional/internal/database"
	"github.com/escolanoar/vocacional/internal/importer"
)

func main() {
	wipe := flag.Bool("wipe", false, "delete every dimension and question before importing")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: import-bank [--wipe] [--dry-run] <bank.json|bank.yaml>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	file, err := importer.ParseFile(path)
	if err != nil {
		log.Fatalf("Failed to read bank file: %v", err)
	}
	plan, err := importer.Normalize(file)
	if err != nil {
		log.Fatalf("Invalid bank file: %v", err)
	}
	log.Printf("[importer] %s: %d dimensions, %d questions, %d skipped",
		path, len(plan.Dimensions), len(plan.Questions), plan.Skipped)
	if *dryRun {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := importer.New(db).Import(ctx, plan, *wipe)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Printf("[importer] imported %d questions (%d updated) across %d dimensions",
		result.Created, result.Updated, result.Dimensions)

	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := cache.NewBankCache(rdb, cfg.Redis.BankTTL).Invalidate(ctx); err != nil {
			log.Printf("WARN: could not invalidate cached bank: %v", err)
		}
	}
}
