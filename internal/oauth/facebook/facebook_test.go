package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
)

func TestProfileNeverVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me", r.URL.Path)
		require.Equal(t, "id,name,email,picture", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"id":"fb-7","name":"Zuck","email":"z@example.com","picture":{"data":{"url":"https://p/z"}}}`))
	}))
	defer srv.Close()

	p := New(oauth.Config{APIBase: srv.URL})
	require.Equal(t, "facebook", p.Name())
	prof, err := p.Profile(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.NoError(t, err)
	require.Equal(t, "fb-7", prof.ExternalID)
	require.Equal(t, "z@example.com", prof.Email)
	require.False(t, prof.EmailVerified)
	require.Equal(t, "https://p/z", prof.AvatarURL)
}
