package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/logger"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.DefaultConfig(":memory:"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Migrate(context.Background())
	require.NoError(t, err)
	return db
}

func testService(t *testing.T) *Service {
	t.Helper()
	return NewService(testDB(t), "test-secret-test-secret-test-secret", time.Hour, logger.Discard())
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestIssueAndParseToken(t *testing.T) {
	svc := testService(t)
	u := &database.User{ID: 7, Email: "priest@example.org", Role: database.RoleAdmin}

	token, expires, err := svc.IssueToken(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, database.RoleAdmin, claims.Role)
	assert.Equal(t, "priest@example.org", claims.Subject)
}

func TestParseToken_Rejects(t *testing.T) {
	svc := testService(t)
	u := &database.User{ID: 1, Email: "a@example.org", Role: database.RoleUser}
	token, _, err := svc.IssueToken(u)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other key", func(t *testing.T) {
		other := NewService(nil, "another-secret-another-secret-xx", time.Hour, logger.Discard())
		_, err := other.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ParseToken(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestEphemeralSecret(t *testing.T) {
	a := NewService(nil, "", time.Hour, logger.Discard())
	b := NewService(nil, "", time.Hour, logger.Discard())

	token, _, err := a.IssueToken(&database.User{ID: 1, Email: "a@example.org"})
	require.NoError(t, err)

	_, err = a.ParseToken(token)
	require.NoError(t, err)
	_, err = b.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogin(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, NewUser{Email: " Editor@Example.org ", Name: "Editor", Password: "psalm-103", Role: database.RoleEditor})
	require.NoError(t, err)
	assert.Equal(t, "editor@example.org", created.Email)

	token, u, err := svc.Login(ctx, "EDITOR@example.org", "psalm-103")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	authed, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, database.RoleEditor, authed.Role)

	_, _, err = svc.Login(ctx, "editor@example.org", "psalm-104")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.org", "psalm-103")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, NewUser{Email: "gone@example.org", Password: "12345678"})
	require.NoError(t, err)
	token, _, err := svc.IssueToken(u)
	require.NoError(t, err)

	require.NoError(t, svc.db.DeleteUser(ctx, u.ID))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateUser_Validation(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewUser
		want error
	}{
		{"bad email", NewUser{Email: "not-an-email", Password: "12345678"}, ErrInvalidUser},
		{"bad role", NewUser{Email: "x@example.org", Password: "12345678", Role: "BISHOP"}, ErrInvalidUser},
		{"short password", NewUser{Email: "x@example.org", Password: "123"}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.CreateUser(ctx, NewUser{Email: "dup@example.org", Password: "12345678"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, NewUser{Email: "DUP@example.org", Password: "12345678"})
	assert.ErrorIs(t, err, database.ErrDuplicate)
}

func TestHasRole(t *testing.T) {
	editor := &database.User{Role: database.RoleEditor}

	assert.True(t, HasRole(editor, database.RoleAdmin, database.RoleEditor))
	assert.False(t, HasRole(editor, database.RoleAdmin))
	assert.False(t, HasRole(nil, database.RoleAdmin))
}
