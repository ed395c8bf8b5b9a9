package schema

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
	"github.com/dropDatabas3/tenantauth/internal/store/adapters/memory"
)

type invalidations struct{ ids []string }

func (i *invalidations) Invalidate(id string) { i.ids = append(i.ids, id) }

func TestServiceGetDefaultsWhenMissing(t *testing.T) {
	svc := NewService(ServiceDeps{Repo: memory.New().Schemas()})
	s, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, IsMethodEnabled(s, repository.MethodEmailPassword))
	require.False(t, IsMethodEnabled(s, repository.MethodMagicLink))
	require.Equal(t, 6, s.AuthMethods.EmailPassword.PasswordPolicy.MinLength)
}

func TestServiceSaveRejectsCycleWithoutWriting(t *testing.T) {
	repo := memory.New().Schemas()
	inv := &invalidations{}
	svc := NewService(ServiceDeps{Repo: repo, Invalidator: inv})

	s := Default("t1")
	s.CustomFields = []repository.FieldDefinition{dependsOn("a", "b"), dependsOn("b", "a")}
	err := svc.Save(context.Background(), s)
	require.True(t, autherr.Is(err, autherr.SchemaCycleDetected))

	_, err = repo.Get(context.Background(), "t1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Empty(t, inv.ids)
}

func TestServiceSaveSealsSecretsAndInvalidates(t *testing.T) {
	box, err := secretbox.New(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)
	repo := memory.New().Schemas()
	inv := &invalidations{}
	svc := NewService(ServiceDeps{Repo: repo, Invalidator: inv, Box: box})

	s := Default("t1")
	s.AuthMethods.SocialGoogle = repository.SocialMethod{Enabled: true, ClientID: "cid", ClientSecret: "shh"}
	require.NoError(t, svc.Save(context.Background(), s))
	require.Equal(t, []string{"t1"}, inv.ids)

	stored, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, secretbox.IsSealed(stored.AuthMethods.SocialGoogle.ClientSecret))
	plain, err := box.Open(stored.AuthMethods.SocialGoogle.ClientSecret)
	require.NoError(t, err)
	require.Equal(t, "shh", plain)
}

func TestCheckPasswordStrengthUsesSchemaPolicy(t *testing.T) {
	p := Default("t1").AuthMethods.EmailPassword.PasswordPolicy
	require.Empty(t, CheckPasswordStrength("Abc1!x", p))
	require.Equal(t, []string{"min_length", "uppercase", "digit", "special"}, CheckPasswordStrength("abc", p))
}
