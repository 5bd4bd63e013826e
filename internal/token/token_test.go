package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	svc := New([]byte("test-jwt-secret"))

	signed, exp, err := svc.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(TTL), exp, 2*time.Second)

	id, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	svc := &Service{Secret: []byte("test-jwt-secret"), TTL: -time.Minute}

	signed, _, err := svc.Issue(7)
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_WrongKey(t *testing.T) {
	t.Parallel()

	signed, _, err := New([]byte("secret-a")).Issue(7)
	require.NoError(t, err)

	_, err = New([]byte("secret-b")).Validate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	t.Parallel()

	_, err := New([]byte("test-jwt-secret")).Validate("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCookieLifecycle(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(TTL)
	ck := CreateCookie("abc", exp)
	assert.Equal(t, CookieName, ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.False(t, ck.Secure)
	assert.Greater(t, ck.MaxAge, 0)

	del := DeleteCookie()
	assert.Equal(t, CookieName, del.Name)
	assert.Equal(t, -1, del.MaxAge)
}
