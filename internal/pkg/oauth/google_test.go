package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestService(t *testing.T, verified bool) *GoogleServiceImpl {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if verified {
			_, _ = w.Write([]byte(`{"id":"g-1","email":"ana@example.com","name":"Ana","verified_email":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"g-1","email":"ana@example.com","verified_email":false}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := NewGoogleService(config.OAuth2GoogleConfig{ClientID: "cid", ClientSecret: "secret", RedirectURL: "http://localhost/cb"})
	svc.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	svc.userInfoURL = srv.URL + "/userinfo"
	return svc
}

func TestGoogleService_Identify(t *testing.T) {
	svc := newTestService(t, true)

	profile, err := svc.Identify(context.Background(), "code")

	require.NoError(t, err)
	assert.Equal(t, "g-1", profile.GoogleID)
	assert.Equal(t, "ana@example.com", profile.Email)
}

func TestGoogleService_IdentifyUnverified(t *testing.T) {
	svc := newTestService(t, false)

	_, err := svc.Identify(context.Background(), "code")

	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestGoogleService_StateAndRedirect(t *testing.T) {
	svc := newTestService(t, true)

	a, err := svc.State()
	require.NoError(t, err)
	b, err := svc.State()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	u, err := url.Parse(svc.RedirectURL(a))
	require.NoError(t, err)
	assert.Equal(t, a, u.Query().Get("state"))
	assert.Equal(t, "cid", u.Query().Get("client_id"))
}
