package core

import (
	"context"

	"github.com/pkg/errors"
)

var ErrIdentityExists = errors.New("an identity with this email already exists")

type (
	// IdentityUser is the account created on the identity provider.
	IdentityUser struct {
		ID                string
		Email             string
		TemporaryPassword string
	}

	// IdentityProvider creates the sign-in accounts of invited users.
	IdentityProvider interface {
		CreateUser(ctx context.Context, email string, attrs map[string]string) (IdentityUser, error)
		GetUserByEmail(ctx context.Context, email string) (IdentityUser, error)
	}
)
