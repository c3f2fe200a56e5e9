// Package auth turns request credentials into a model.Actor.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
)

var (
	ErrNoCredentials   = errors.New("no credentials supplied")
	ErrUnknownIdentity = errors.New("identity not found")
)

// IdentityStore resolves the current role of a user. The stored role wins
// over whatever the token claims.
type IdentityStore interface {
	LookupRole(ctx context.Context, userID string) (model.Role, error)
}

type Authenticator struct {
	secret     []byte
	issuer     string
	cookie     string
	identities IdentityStore
}

type Option func(*Authenticator)

func WithIdentityStore(store IdentityStore) Option {
	return func(a *Authenticator) { a.identities = store }
}

func WithSessionCookie(name string) Option {
	return func(a *Authenticator) { a.cookie = name }
}

func New(secret []byte, issuer string, opts ...Option) *Authenticator {
	a := &Authenticator{secret: secret, issuer: issuer, cookie: "panel_session"}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate resolves the caller. Every failure is an UNAUTHENTICATED
// AppError except identity store outages, which are storage errors.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (model.Actor, error) {
	raw := a.credential(r)
	if raw == "" {
		return model.Actor{}, apperrors.NewUnauthenticated(ErrNoCredentials)
	}
	claims, err := ParseToken(raw, a.secret, a.issuer)
	if err != nil {
		return model.Actor{}, apperrors.NewUnauthenticated(err).WithDetail("reason", reasonFor(err))
	}

	actor := model.Actor{ID: claims.UserID, Role: claims.Role}
	if a.identities != nil {
		role, err := a.identities.LookupRole(ctx, claims.UserID)
		switch {
		case errors.Is(err, ErrUnknownIdentity):
			return model.Actor{}, apperrors.NewUnauthenticated(err).WithDetail("reason", "unknown_identity")
		case err != nil:
			return model.Actor{}, apperrors.NewStorage(err).WithDetail("stage", "identity_lookup")
		}
		actor.Role = role
	}
	if !actor.Role.Valid() {
		// 角色缺失时按最低权限处理
		actor.Role = model.RoleMember
	}
	return actor, nil
}

func (a *Authenticator) credential(r *http.Request) string {
	if r == nil {
		return ""
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if a.cookie == "" {
		return ""
	}
	if c, err := r.Cookie(a.cookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	default:
		return "invalid_token"
	}
}
