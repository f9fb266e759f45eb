// Command main runs the Redis seeder for Whisperwall.
package main

import (
	"context"
	"flag"
	"log"

	"whisperwall/internal/cache"
	"whisperwall/internal/config"
	"whisperwall/internal/seed"
)

func main() {
	count := flag.Int("count", 40, "Number of public confessions to create")
	pending := flag.Int("pending", 5, "Number of pending confessions to create")
	shouldClean := flag.Bool("clean", true, "Clear existing data before seeding")
	flag.Parse()

	log.Println("🌱 Confession Seeder")
	log.Printf("Target: %d public, %d pending, clean=%v\n", *count, *pending, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cache.InitRedis(cfg.RedisURL); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(cache.GetClient())

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if err := s.Confessions(ctx, *count, *pending); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Seeding complete")
}
