package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

type fakeIdentities struct {
	roles map[string]model.Role
	err   error
	calls int
}

func (f *fakeIdentities) LookupRole(_ context.Context, userID string) (model.Role, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	role, ok := f.roles[userID]
	if !ok {
		return "", ErrUnknownIdentity
	}
	return role, nil
}

func bearer(t *testing.T, userID string, role model.Role) *http.Request {
	t.Helper()
	tok, err := GenerateToken(userID, role, secret, "panelgate", time.Hour)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	return r
}

func errType(t *testing.T, err error) apperrors.ErrorType {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	return appErr.Type
}

func TestGenerateAndParse(t *testing.T) {
	tok, err := GenerateToken("user-1", model.RoleAdmin, secret, "panelgate", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret, "panelgate")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	_, err = ParseToken(tok, []byte("wrong-secret"), "panelgate")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(tok, secret, "someone-else")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not.a.jwt", secret, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = GenerateToken("", model.RoleMember, secret, "", time.Hour)
	assert.Error(t, err)
}

func TestParseExpired(t *testing.T) {
	tok, err := GenerateToken("u1", model.RoleMember, secret, "", -time.Second)
	require.NoError(t, err)
	_, err = ParseToken(tok, secret, "")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthenticateBearer(t *testing.T) {
	a := New(secret, "panelgate")
	actor, err := a.Authenticate(context.Background(), bearer(t, "user-1", model.RoleMember))
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: "user-1", Role: model.RoleMember}, actor)
}

func TestAuthenticateCookie(t *testing.T) {
	tok, err := GenerateToken("user-2", model.RoleAdmin, secret, "panelgate", time.Hour)
	require.NoError(t, err)

	a := New(secret, "panelgate", WithSessionCookie("sid"))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: tok})

	actor, err := a.Authenticate(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, actor.IsAdmin())
}

func TestAuthenticateFailures(t *testing.T) {
	a := New(secret, "panelgate")

	_, err := a.Authenticate(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, apperrors.ErrUnauthenticated, errType(t, err))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err = a.Authenticate(context.Background(), r)
	assert.Equal(t, apperrors.ErrUnauthenticated, errType(t, err))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	_, err = a.Authenticate(context.Background(), r)
	assert.Equal(t, apperrors.ErrUnauthenticated, errType(t, err))

	_, err = a.Authenticate(context.Background(), nil)
	assert.Equal(t, apperrors.ErrUnauthenticated, errType(t, err))
}

func TestAuthenticateRoleFromStore(t *testing.T) {
	ids := &fakeIdentities{roles: map[string]model.Role{"user-1": model.RoleMember}}
	a := New(secret, "panelgate", WithIdentityStore(ids))

	// a stale admin claim does not survive a demotion
	actor, err := a.Authenticate(context.Background(), bearer(t, "user-1", model.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, actor.Role)
	assert.Equal(t, 1, ids.calls)

	_, err = a.Authenticate(context.Background(), bearer(t, "ghost", model.RoleAdmin))
	assert.Equal(t, apperrors.ErrUnauthenticated, errType(t, err))

	ids.err = errors.New("connection refused")
	_, err = a.Authenticate(context.Background(), bearer(t, "user-1", model.RoleMember))
	assert.Equal(t, apperrors.ErrStorage, errType(t, err))
}

func TestAuthenticateMissingRoleDefaultsToMember(t *testing.T) {
	a := New(secret, "panelgate")
	actor, err := a.Authenticate(context.Background(), bearer(t, "user-3", ""))
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, actor.Role)
}
