// Package seed fills a development database with fake accounts, follows,
// posts, comments and likes. Everything goes through the repositories so the
// denormalized counters stay consistent with the rows.
package seed

import (
	"context"
	"fmt"

	"murmur/internal/auth"
	"murmur/internal/middleware"
	"murmur/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls how much data Run creates.
type Options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	// FollowRatio and LikeRatio are probabilities in [0,1] applied per user pair and per post.
	FollowRatio float64
	LikeRatio   float64
	Password    string
	Clean       bool
}

// DefaultOptions is a small but lively network.
var DefaultOptions = Options{
	Users:           25,
	PostsPerUser:    4,
	CommentsPerPost: 2,
	FollowRatio:     0.2,
	LikeRatio:       0.3,
	Password:        "password123",
	Clean:           true,
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Follows  int
	Posts    int
	Comments int
	Likes    int
}

// Seeder creates fake data against one database.
type Seeder struct {
	db      *gorm.DB
	hasher  auth.PasswordHasher
	users   repository.UserRepository
	follows repository.FollowRepository
	posts   repository.PostRepository
	faker   *gofakeit.Faker
	textMax int
}

// NewSeeder returns a Seeder. The same randSeed always produces the same data.
func NewSeeder(db *gorm.DB, hasher auth.PasswordHasher, randSeed int64, postTextMax int) *Seeder {
	if postTextMax <= 0 {
		postTextMax = 200
	}
	return &Seeder{
		db:      db,
		hasher:  hasher,
		users:   repository.NewUserRepository(db, hasher),
		follows: repository.NewFollowRepository(db),
		posts:   repository.NewPostRepository(db),
		faker:   gofakeit.New(randSeed),
		textMax: postTextMax,
	}
}

// ClearAll removes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, table := range []string{"post_likes", "posts", "follows", "users"} {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "Cleared existing data")
	return nil
}

// Run seeds the database according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}
	if opts.Password == "" {
		opts.Password = DefaultOptions.Password
	}

	var sum Summary
	users, err := s.createUsers(ctx, opts.Users, opts.Password)
	if err != nil {
		return nil, err
	}
	sum.Users = len(users)

	for _, a := range users {
		for _, b := range users {
			if a.ID == b.ID || s.faker.Float64() >= opts.FollowRatio {
				continue
			}
			changed, err := s.follows.Follow(ctx, a.ID, b.ID)
			if err != nil {
				return nil, fmt.Errorf("follow %s -> %s: %w", a.UserAt, b.UserAt, err)
			}
			if changed {
				sum.Follows++
			}
		}
	}

	for _, owner := range users {
		for range opts.PostsPerUser {
			post := s.buildPost(owner.ID)
			if err := s.posts.Create(ctx, post); err != nil {
				return nil, fmt.Errorf("create post: %w", err)
			}
			sum.Posts++

			for range opts.CommentsPerPost {
				author := users[s.faker.Number(0, len(users)-1)]
				if err := s.posts.CreateComment(ctx, post.ID, s.buildPost(author.ID)); err != nil {
					return nil, fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
			}

			for _, fan := range users {
				if s.faker.Float64() >= opts.LikeRatio {
					continue
				}
				changed, err := s.posts.Like(ctx, fan.ID, post.ID)
				if err != nil {
					return nil, fmt.Errorf("like post: %w", err)
				}
				if changed {
					sum.Likes++
				}
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "Seeding completed",
		"users", sum.Users, "follows", sum.Follows, "posts", sum.Posts,
		"comments", sum.Comments, "likes", sum.Likes)
	return &sum, nil
}
