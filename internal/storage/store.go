// Package storage is the record store behind the resource pipeline. It knows
// tables and ids; authorization happens before any mutation reaches it.
package storage

import (
	"context"
	"errors"

	"github.com/GoPolymarket/panelgate/internal/model"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnknownTable = errors.New("unknown table")
)

type Store interface {
	FetchOwnership(ctx context.Context, table, id string) (model.Ownership, error)
	Get(ctx context.Context, table, id string) (map[string]any, error)
	Update(ctx context.Context, table, id string, fields map[string]any) (map[string]any, error)
	Delete(ctx context.Context, table, id string) error
}

// OwnerColumns maps each resource table to the column holding its owner.
// Self-owned records (profiles) are owned by their own id.
func OwnerColumns(descs []model.Descriptor) map[string]string {
	cols := make(map[string]string, len(descs))
	for _, d := range descs {
		if d.Access == model.AccessSelfOrAdmin {
			cols[d.Table] = "id"
			continue
		}
		cols[d.Table] = "created_by"
	}
	return cols
}
