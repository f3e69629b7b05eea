package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/authhub/internal/domain/user"
)

// UserService updates and removes the caller's own record.
//
// Remove only enqueues: a login or update racing a pending deletion job still
// succeeds, and the job deletes the record afterwards.
type UserService struct {
	users    UserStore
	deletion DeletionQueue
	log      *slog.Logger
}

func NewUserService(users UserStore, deletion DeletionQueue, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, deletion: deletion, log: log}
}

func (s *UserService) Update(ctx context.Context, userID string, patch user.Patch) (user.User, error) {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("load user: %w", err)
	}

	if patch.Email != nil {
		email := user.NormalizeEmail(*patch.Email)
		patch.Email = &email

		if email != current.Email {
			other, err := s.users.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != current.ID:
				return user.User{}, ErrEmailConflict
			case err != nil && !errors.Is(err, user.ErrNotFound):
				return user.User{}, fmt.Errorf("lookup email: %w", err)
			}
		}
	}

	if !patch.Apply(&current) {
		return current, nil
	}

	updated, err := s.users.Update(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			return user.User{}, ErrEmailConflict
		case errors.Is(err, user.ErrNotFound):
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}

	return updated, nil
}

// Remove confirms the user exists and enqueues its deletion. A missing user is
// ErrUnauthorized rather than not-found so the delete path leaks nothing.
func (s *UserService) Remove(ctx context.Context, userID string) error {
	_, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.deletion.EnqueueUserDeletion(ctx, userID); err != nil {
		return fmt.Errorf("enqueue deletion: %w", err)
	}

	s.log.InfoContext(ctx, "user deletion enqueued", "user_id", userID)

	return nil
}
