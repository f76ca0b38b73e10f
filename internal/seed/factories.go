package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"murmur/internal/models"
	"murmur/internal/validation"
)

const maxHandleLen = 20

func (s *Seeder) createUsers(ctx context.Context, n int, password string) ([]*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, n)
	users := make([]*models.User, 0, n)
	for i := range n {
		handle := s.uniqueHandle(seen, i)
		user := &models.User{
			Username: s.displayName(),
			UserAt:   handle,
			Email:    handle + "@" + strings.ToLower(s.faker.DomainName()),
			Password: hash,
			Bio:      s.faker.HipsterSentence(8),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", handle, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// uniqueHandle derives a valid, unused handle from a fake username.
func (s *Seeder) uniqueHandle(seen map[string]bool, i int) string {
	handle := sanitizeHandle(s.faker.Username())
	if len(handle) < 2 {
		handle = fmt.Sprintf("user_%d", i)
	}
	base := handle
	for n := 2; seen[handle] || validation.ValidateUserAt(handle) != nil; n++ {
		suffix := fmt.Sprintf("_%d", n)
		handle = base[:min(len(base), maxHandleLen-len(suffix))] + suffix
	}
	seen[handle] = true
	return handle
}

func sanitizeHandle(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > maxHandleLen {
		out = out[:maxHandleLen]
	}
	return out
}

func (s *Seeder) displayName() string {
	name := s.faker.FirstName()
	if validation.ValidateUsername(name) != nil {
		return "Murmurer"
	}
	return name
}

// buildPost returns an unsaved post by ownerID, stamped somewhere in the last 90 days.
func (s *Seeder) buildPost(ownerID uint) *models.Post {
	text := s.faker.Sentence(s.faker.Number(4, 18))
	if len(text) > s.textMax {
		text = text[:s.textMax]
	}
	age := time.Duration(s.faker.Number(0, 90*24*60)) * time.Minute
	return &models.Post{
		OwnerID:  ownerID,
		Text:     text,
		UnixTime: time.Now().Add(-age).UnixMilli(),
	}
}
