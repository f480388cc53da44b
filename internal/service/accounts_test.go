package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/commons/internal/auth"
	"github.com/campuslink/commons/pkg/config"
)

func TestAccountService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.accounts.Register(ctx, "Ada", "  Ada@Campus.edu ", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ada@campus.edu", res.User.Email)
	assert.True(t, res.User.NotificationSettings.Comments)

	tests := []struct {
		name     string
		user     string
		email    string
		password string
		expected Kind
	}{
		{"missing name", "", "x@campus.edu", "pw", KindValidation},
		{"missing password", "X", "x@campus.edu", "", KindValidation},
		{"invalid email", "X", "not-an-email", "pw", KindValidation},
		{"duplicate email", "Ada Again", "ADA@campus.edu", "pw", KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Register(ctx, tt.user, tt.email, tt.password)
			assert.Equal(t, tt.expected, KindOf(err))
		})
	}
}

func TestAccountService_DomainAllowList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issuer := auth.NewIssuer(auth.NewMemoryTokenStore(), time.Hour)
	accounts := NewAccountService(env.store, issuer, config.AuthConfig{
		BcryptCost:          4,
		AllowedEmailDomains: []string{"campus.edu"},
	})

	_, err := accounts.Register(ctx, "Eve", "eve@elsewhere.com", "pw")
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = accounts.Login(ctx, "eve@elsewhere.com", "pw")
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = accounts.Register(ctx, "Bob", "bob@campus.edu", "pw")
	assert.NoError(t, err)
}

func TestAccountService_LoginAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered, err := env.accounts.Register(ctx, "Ada", "ada@campus.edu", "secret")
	require.NoError(t, err)

	_, err = env.accounts.Login(ctx, "ada@campus.edu", "wrong")
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	_, err = env.accounts.Login(ctx, "nobody@campus.edu", "secret")
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	login, err := env.accounts.Login(ctx, "ADA@campus.edu", "secret")
	require.NoError(t, err)

	user, err := env.accounts.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)

	_, err = env.accounts.Authenticate(ctx, "bogus")
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	require.NoError(t, env.accounts.Logout(ctx, login.Token))
	_, err = env.accounts.Authenticate(ctx, login.Token)
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	t.Run("deleted account", func(t *testing.T) {
		require.NoError(t, env.users.DeleteAccount(ctx, ActorFromUser(user)))

		_, err := env.accounts.Authenticate(ctx, registered.Token)
		assert.Equal(t, KindUnauthenticated, KindOf(err))

		_, err = env.accounts.Login(ctx, "ada@campus.edu", "secret")
		assert.Equal(t, KindUnauthenticated, KindOf(err))
	})
}
