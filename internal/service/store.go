package service

import (
	"context"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
)

// UserStore is the credential store. Create and Update must enforce email
// uniqueness themselves (user.ErrEmailTaken): the services only pre-check,
// and two concurrent requests can both pass the pre-check.
type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, id string, patch user.Patch) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

type TokenIssuer interface {
	IssuePair(userID, email string) (auth.TokenPair, error)
	Verify(token string) (*auth.Claims, error)
}

// DeletionQueue accepts account deletion work. Enqueue must not wait for the delete.
type DeletionQueue interface {
	EnqueueUserDeletion(ctx context.Context, userID string) error
}
