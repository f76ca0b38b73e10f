// Command seed fills the configured database with fake murmur data.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"murmur/internal/auth"
	"murmur/internal/bootstrap"
	"murmur/internal/config"
	"murmur/internal/database"
	"murmur/internal/middleware"
	"murmur/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Users, "users", opts.Users, "number of accounts to create")
	flag.IntVar(&opts.PostsPerUser, "posts", opts.PostsPerUser, "posts per account")
	flag.IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "comments per post")
	flag.Float64Var(&opts.FollowRatio, "follow-ratio", opts.FollowRatio, "probability that one account follows another")
	flag.Float64Var(&opts.LikeRatio, "like-ratio", opts.LikeRatio, "probability that an account likes a post")
	flag.StringVar(&opts.Password, "password", opts.Password, "password shared by every seeded account")
	flag.BoolVar(&opts.Clean, "clean", opts.Clean, "delete existing data first")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}
	middleware.ConfigureLogger(cfg.Env)

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = database.Close() }()

	s := seed.NewSeeder(db, auth.NewBcryptHasher(cfg.BcryptCost), *randSeed, cfg.PostTextMaxLen)
	if _, err := s.Run(ctx, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
