package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	j := New("test-secret")

	tok, err := j.Sign("user-1", time.Minute)
	require.NoError(t, err)

	uid, err := j.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", uid)
}

func TestSignEmptyUID(t *testing.T) {
	j := New("test-secret")
	_, err := j.Sign("", time.Minute)
	require.Error(t, err)
}

func TestVerifyRejectsBadToken(t *testing.T) {
	j := New("test-secret")

	_, err := j.Verify("not-a-token")
	require.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := New("secret-a").Sign("user-1", time.Minute)
	require.NoError(t, err)

	_, err = New("secret-b").Verify(tok)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	j := New("test-secret")

	tok, err := j.Sign("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = j.Verify(tok)
	require.Error(t, err)
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, "anon", UserID(ctx))
	require.Equal(t, "user-7", UserID(WithUser(ctx, "user-7")))
}
