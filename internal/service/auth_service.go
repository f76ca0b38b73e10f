package service

import (
	"context"
	"errors"
	"time"

	"murmur/internal/auth"
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
	"murmur/internal/validation"
)

const (
	MsgUsernameInUse      = "Username already in use"
	MsgEmailInUse         = "Email already in use"
	MsgInvalidCredentials = "Invalid credentials"
)

// SessionIssuer signs session tokens for a claim.
type SessionIssuer interface {
	Issue(claim auth.Claim) (auth.Session, error)
}

// TokenRevoker blacklists a token id until it would have expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService handles signup, login, logout and account deletion.
type AuthService struct {
	users    repository.UserRepository
	hasher   auth.PasswordHasher
	sessions SessionIssuer
	revoker  TokenRevoker
	now      func() time.Time
}

type SignupInput struct {
	Username string
	UserAt   string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher, sessions SessionIssuer, revoker TokenRevoker) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		revoker:  revoker,
		now:      time.Now,
	}
}

// Signup validates and stores a new account, then opens a session for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (auth.Session, error) {
	ctx, span := observability.GetTraceLayer().TraceAPIToServiceCall(ctx, "AuthService", "Signup")
	defer span.End()

	in.Username = trim(in.Username)
	in.UserAt = validation.NormalizeUserAt(in.UserAt)
	in.Email = validation.NormalizeEmail(in.Email)

	for _, check := range []error{
		validation.ValidateUsername(in.Username),
		validation.ValidateUserAt(in.UserAt),
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
	} {
		if check != nil {
			return auth.Session{}, validationError(check)
		}
	}
	userAt := in.UserAt

	taken, err := s.users.ExistsByUserAt(ctx, userAt)
	if err != nil {
		return auth.Session{}, err
	}
	if taken {
		return auth.Session{}, models.NewConflictError(MsgUsernameInUse)
	}
	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return auth.Session{}, err
	}
	if taken {
		return auth.Session{}, models.NewConflictError(MsgEmailInUse)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return auth.Session{}, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		UserAt:   userAt,
		Email:    in.Email,
		Password: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserAtTaken):
			return auth.Session{}, models.NewConflictError(MsgUsernameInUse)
		case errors.Is(err, repository.ErrEmailTaken):
			return auth.Session{}, models.NewConflictError(MsgEmailInUse)
		}
		return auth.Session{}, err
	}

	middleware.Logger.InfoContext(ctx, "User created", "user_id", user.ID, "user_at", user.UserAt)
	return s.issue(auth.Claim{ID: user.ID, UserAt: user.UserAt, Email: user.Email}, "signup")
}

// Login checks the credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (auth.Session, error) {
	ctx, span := observability.GetTraceLayer().TraceAPIToServiceCall(ctx, "AuthService", "Login")
	defer span.End()

	in.Email = validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(in.Email); err != nil {
		return auth.Session{}, validationError(err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return auth.Session{}, validationError(err)
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return auth.Session{}, err
	}
	if user == nil || !s.hasher.Verify(user.Password, in.Password) {
		return auth.Session{}, models.NewValidationError(MsgInvalidCredentials)
	}

	return s.issue(auth.Claim{ID: user.ID, UserAt: user.UserAt, Email: user.Email}, "login")
}

// Logout revokes the presented token for the rest of its lifetime.
// A nil token (an unreadable cookie) is a no-op.
func (s *AuthService) Logout(ctx context.Context, token *auth.TokenInfo) error {
	if token == nil || s.revoker == nil {
		return nil
	}
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, token.JTI, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "Token revocation failed", "error", err)
		return models.NewInternalError(err)
	}
	observability.SessionsRevoked.Inc()
	return nil
}

// DeleteAccount removes the account named by claim and everything it owns.
func (s *AuthService) DeleteAccount(ctx context.Context, claim auth.Claim) error {
	if !s.users.HasCredentials(ctx, claim) {
		return models.NewUnauthorizedError(MsgUnauthorizedUser)
	}
	if err := s.users.Delete(ctx, claim.ID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.NewUnauthorizedError(MsgUnauthorizedUser)
		}
		return err
	}
	middleware.Logger.InfoContext(ctx, "User deleted", "user_id", claim.ID)
	return nil
}

func (s *AuthService) issue(claim auth.Claim, reason string) (auth.Session, error) {
	session, err := s.sessions.Issue(claim)
	if err != nil {
		return auth.Session{}, models.NewInternalError(err)
	}
	observability.SessionsIssued.WithLabelValues(reason).Inc()
	return session, nil
}
