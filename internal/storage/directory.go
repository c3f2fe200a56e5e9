package storage

import (
	"context"
	"errors"

	"github.com/GoPolymarket/panelgate/internal/auth"
	"github.com/GoPolymarket/panelgate/internal/model"
)

// ProfileDirectory answers role lookups from the profiles table of any Store.
type ProfileDirectory struct {
	store Store
	table string
}

func NewProfileDirectory(store Store, table string) *ProfileDirectory {
	if table == "" {
		table = "profiles"
	}
	return &ProfileDirectory{store: store, table: table}
}

func (d *ProfileDirectory) LookupRole(ctx context.Context, userID string) (model.Role, error) {
	rec, err := d.store.Get(ctx, d.table, userID)
	if errors.Is(err, ErrNotFound) {
		return "", auth.ErrUnknownIdentity
	}
	if err != nil {
		return "", err
	}
	role, _ := rec["role"].(string)
	if r := model.Role(role); r.Valid() {
		return r, nil
	}
	return model.RoleMember, nil
}
