package auth

import (
	"context"
)

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	// LoginWithGoogle signs in an existing account and links the google id on first use.
	LoginWithGoogle(ctx context.Context, email string, googleID string) (TokenResponse, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	GenerateSSEToken(ctx context.Context, userID string) (SSETokenResponse, error)
}
