// Command seed fills the configured database with demo users and posts.
package main

import (
	"context"
	"flag"
	"log"

	"connector/internal/config"
	"connector/internal/database"
	"connector/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed, 0 for time based")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{Seed: *randSeed, BcryptCost: cfg.BcryptCost})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(ctx, *numUsers, *numPosts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d likes, %d comments", res.Users, res.Posts, res.Likes, res.Comments)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
