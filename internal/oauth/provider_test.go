package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "name": "Ada"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func base(srv *httptest.Server) *Base {
	return NewBase("fake", Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "https://app.test/cb",
		Endpoint: &oauth2.Endpoint{
			AuthURL:   srv.URL + "/authorize",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, oauth2.Endpoint{}, []string{"email"})
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	b := base(fakeServer(t))
	u, err := url.Parse(b.AuthCodeURL("st-123"))
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "st-123", q.Get("state"))
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "https://app.test/cb", q.Get("redirect_uri"))
	require.Equal(t, "email", q.Get("scope"))
}

func TestExchangeAndGetJSON(t *testing.T) {
	srv := fakeServer(t)
	b := base(srv)
	ctx := context.Background()

	_, err := b.Exchange(ctx, "bad-code")
	require.ErrorIs(t, err, ErrExchange)

	tok, err := b.Exchange(ctx, "good-code")
	require.NoError(t, err)
	require.Equal(t, "at-1", tok.AccessToken)

	var out struct {
		ID string `json:"id"`
	}
	raw, err := b.GetJSON(ctx, tok, srv.URL+"/me", &out)
	require.NoError(t, err)
	require.Equal(t, "42", out.ID)
	require.Equal(t, "Ada", raw["name"])

	_, err = b.GetJSON(ctx, &oauth2.Token{AccessToken: "wrong"}, srv.URL+"/me", nil)
	require.ErrorIs(t, err, ErrProfile)
}
