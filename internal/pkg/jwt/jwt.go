package jwt

import (
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const sseTokenLifetime = 5 * time.Minute

// Subject is what the access token says about its bearer.
type Subject struct {
	UserID string
	Email  string
	Name   string
	Role   user.Role
}

type Service interface {
	GenerateAccessToken(sub Subject) (token string, expiresAt int64, err error)
	GenerateSSEToken(sub Subject) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (Subject, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService parses the access lifetime eagerly so a bad config fails at startup.
func NewJWTService(secretKey string, accessTokenExpirationTime string) (*JWTService, error) {
	expDuration, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, err
	}
	return &JWTService{
		accessTokenExpirationTime: expDuration,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}, nil
}

func (j *JWTService) GenerateAccessToken(sub Subject) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpirationTime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": sub.UserID,
		"email":   sub.Email,
		"name":    sub.Name,
		"role":    string(sub.Role),
		"type":    "access",
		"exp":     expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(sub Subject) (token string, expiresIn int, err error) {
	expiresAt := j.now().Add(sseTokenLifetime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": sub.UserID,
		"role":    string(sub.Role),
		"type":    "sse",
		"exp":     expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(sseTokenLifetime.Seconds()), nil
}

// ValidateSSEToken verifies signature and expiry of an SSE token and returns its subject
func (j *JWTService) ValidateSSEToken(tokenString string) (Subject, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return Subject{}, err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return Subject{}, jwt.ErrInvalidJWT()
	}

	userIDVal, _ := token.Get("user_id")
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		return Subject{}, jwt.ErrInvalidJWT()
	}

	roleVal, _ := token.Get("role")
	role, _ := roleVal.(string)

	return Subject{UserID: userID, Role: user.Role(role)}, nil
}
