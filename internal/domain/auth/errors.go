package auth

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrUserNotFound         = errors.New("user not found")
	ErrAccountNotRegistered = errors.New("no account is registered for this email")
	ErrPasswordNotSet       = errors.New("account signs in with Google, no password is set")

	ErrGoogleAccessDeniedByUser = errors.New("google access denied by user")
	ErrStateCookieEmpty         = errors.New("oauth state cookie is empty")
	ErrStateParamEmpty          = errors.New("oauth state parameter is empty")
	ErrStateMismatch            = errors.New("oauth state mismatch")
	ErrCodeValueEmpty           = errors.New("oauth code is empty")
)
