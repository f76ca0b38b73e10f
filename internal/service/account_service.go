package service

import (
	"context"
	"errors"

	"murmur/internal/auth"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
	"murmur/internal/validation"
)

const (
	MsgPasswordMismatch = "Current password doesn't match"
	MsgSamePassword     = "New password cannot be the same as the old one"
	MsgSameEmail        = "New email cannot be the same as the old one"
	MsgEmailExists      = "Email already exists"
	MsgSameUserAt       = "New userat cannot be the same as the old one"
	MsgUserAtInUse      = "UserAt already in use"
)

// AccountService changes the credentials and profile of the signed-in user.
type AccountService struct {
	users    repository.UserRepository
	hasher   auth.PasswordHasher
	sessions SessionIssuer
	limits   Limits
}

type ProfileInput struct {
	Username string
	Bio      string
	Icon     string
}

func NewAccountService(users repository.UserRepository, hasher auth.PasswordHasher, sessions SessionIssuer, limits Limits) *AccountService {
	return &AccountService{users: users, hasher: hasher, sessions: sessions, limits: limits}
}

func (s *AccountService) ChangePassword(ctx context.Context, claim auth.Claim, current, next string) error {
	if err := validation.ValidatePassword(next); err != nil {
		return validationError(err)
	}
	if !s.users.HasCredentials(ctx, claim) {
		return models.NewUnauthorizedError(MsgUnauthorizedUser)
	}
	if !s.users.VerifyPassword(ctx, claim.Email, current) {
		return models.NewForbiddenError(MsgPasswordMismatch)
	}
	if current == next || s.users.VerifyPassword(ctx, claim.Email, next) {
		return models.NewConflictError(MsgSamePassword)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePassword(ctx, claim.ID, hash)
}

// ChangeEmail moves the account to a new email and returns a session carrying it.
func (s *AccountService) ChangeEmail(ctx context.Context, claim auth.Claim, email string) (auth.Session, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return auth.Session{}, validationError(err)
	}
	if !s.users.HasCredentials(ctx, claim) {
		return auth.Session{}, models.NewUnauthorizedError(MsgUnauthorizedUser)
	}
	if email == claim.Email {
		return auth.Session{}, models.NewConflictError(MsgSameEmail)
	}

	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return auth.Session{}, err
	}
	if taken {
		return auth.Session{}, models.NewConflictError(MsgEmailExists)
	}
	if err := s.users.UpdateEmail(ctx, claim.ID, email); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return auth.Session{}, models.NewConflictError(MsgEmailExists)
		}
		return auth.Session{}, err
	}

	claim.Email = email
	return s.reissue(claim, "email_change")
}

// ChangeUserAt moves the account to a new handle and returns a session carrying it.
func (s *AccountService) ChangeUserAt(ctx context.Context, claim auth.Claim, userAt string) (auth.Session, error) {
	userAt = validation.NormalizeUserAt(userAt)
	if err := validation.ValidateUserAt(userAt); err != nil {
		return auth.Session{}, validationError(err)
	}
	if userAt == claim.UserAt {
		return auth.Session{}, models.NewConflictError(MsgSameUserAt)
	}
	if !s.users.HasCredentials(ctx, claim) {
		return auth.Session{}, models.NewUnauthorizedError(MsgUnauthorizedUser)
	}

	taken, err := s.users.ExistsByUserAt(ctx, userAt)
	if err != nil {
		return auth.Session{}, err
	}
	if taken {
		return auth.Session{}, models.NewConflictError(MsgUserAtInUse)
	}
	if err := s.users.UpdateUserAt(ctx, claim.ID, userAt); err != nil {
		if errors.Is(err, repository.ErrUserAtTaken) {
			return auth.Session{}, models.NewConflictError(MsgUserAtInUse)
		}
		return auth.Session{}, err
	}

	claim.UserAt = userAt
	return s.reissue(claim, "user_at_change")
}

// UpdateProfile replaces the display name, bio and icon. An empty icon clears it.
func (s *AccountService) UpdateProfile(ctx context.Context, claim auth.Claim, in ProfileInput) error {
	if err := validation.ValidateBio(in.Bio, s.limits.BioMaxLen); err != nil {
		return validationError(err)
	}
	username := trim(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return validationError(err)
	}
	if !s.users.HasCredentials(ctx, claim) {
		return models.NewUnauthorizedError(MsgUnauthorizedUser)
	}

	icon, err := s.limits.normalizeImage(in.Icon, s.limits.IconMaxDim)
	if err != nil {
		return err
	}
	return s.users.UpdateProfile(ctx, claim.ID, username, in.Bio, icon)
}

func (s *AccountService) reissue(claim auth.Claim, reason string) (auth.Session, error) {
	session, err := s.sessions.Issue(claim)
	if err != nil {
		return auth.Session{}, models.NewInternalError(err)
	}
	observability.SessionsIssued.WithLabelValues(reason).Inc()
	return session, nil
}
