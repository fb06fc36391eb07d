package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type subjectKey struct{}

// AuthRequired accepts only access tokens and stores their subject on the request context.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			tokenType, ok := claims["type"].(string)
			if !ok || tokenType != "access" {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			userID, _ := claims["user_id"].(string)
			if userID == "" {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}
			email, _ := claims["email"].(string)
			name, _ := claims["name"].(string)
			role, _ := claims["role"].(string)

			sub := jwt.Subject{UserID: userID, Email: email, Name: name, Role: user.Role(role)}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		}
		return http.HandlerFunc(hfn)
	}
}

func WithSubject(ctx context.Context, sub jwt.Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the authenticated subject set by AuthRequired.
func SubjectFromContext(ctx context.Context) (jwt.Subject, bool) {
	sub, ok := ctx.Value(subjectKey{}).(jwt.Subject)
	return sub, ok
}
