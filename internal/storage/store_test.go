package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoPolymarket/panelgate/internal/auth"
	"github.com/GoPolymarket/panelgate/internal/config"
	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	taskID    = "6f1c2b1e-8a44-4d6b-9a39-0d7c4b7d2f10"
	profileID = "1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"
)

func owners() map[string]string {
	return OwnerColumns(model.Resources())
}

func TestOwnerColumns(t *testing.T) {
	cols := owners()
	assert.Equal(t, "created_by", cols["tasks"])
	assert.Equal(t, "created_by", cols["financial_records"])
	assert.Equal(t, "id", cols["profiles"])
	assert.Len(t, cols, 6)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(owners())
	require.NoError(t, s.Seed("tasks", taskID, map[string]any{"title": "Draft", "created_by": "alice"}))
	require.NoError(t, s.Seed("profiles", profileID, map[string]any{"full_name": "Bob", "role": "admin"}))
	assert.ErrorIs(t, s.Seed("nope", taskID, nil), ErrUnknownTable)

	own, err := s.FetchOwnership(ctx, "tasks", taskID)
	require.NoError(t, err)
	assert.Equal(t, model.Ownership{ID: taskID, OwnerID: "alice"}, own)

	own, err = s.FetchOwnership(ctx, "profiles", profileID)
	require.NoError(t, err)
	assert.Equal(t, profileID, own.OwnerID)

	_, err = s.FetchOwnership(ctx, "tasks", profileID)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := s.Update(ctx, "tasks", taskID, map[string]any{"title": "Final", "id": "hijack"})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated["title"])
	assert.Equal(t, taskID, updated["id"])

	// copies only
	updated["title"] = "mutated"
	rec, err := s.Get(ctx, "tasks", taskID)
	require.NoError(t, err)
	assert.Equal(t, "Final", rec["title"])

	require.NoError(t, s.Delete(ctx, "tasks", taskID))
	assert.ErrorIs(t, s.Delete(ctx, "tasks", taskID), ErrNotFound)
	_, err = s.Update(ctx, "tasks", taskID, map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileDirectory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(owners())
	require.NoError(t, s.Seed("profiles", profileID, map[string]any{"role": "admin"}))
	require.NoError(t, s.Seed("profiles", taskID, map[string]any{"role": "superuser"}))

	d := NewProfileDirectory(s, "")
	role, err := d.LookupRole(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	role, err = d.LookupRole(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, role)

	_, err = d.LookupRole(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrUnknownIdentity)

	_, err = NewProfileDirectory(s, "ghosts").LookupRole(ctx, profileID)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db, owners()), mock
}

func TestGormFetchOwnership(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, "created_by" AS owner_id FROM "leads" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(taskID, "alice"))

	own, err := s.FetchOwnership(context.Background(), "leads", taskID)
	require.NoError(t, err)
	assert.Equal(t, model.Ownership{ID: taskID, OwnerID: "alice"}, own)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "leads" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}))
	_, err = s.FetchOwnership(context.Background(), "leads", taskID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUnknownTableNeverQueries(t *testing.T) {
	s, mock := newMockStore(t)
	_, err := s.FetchOwnership(context.Background(), "users; drop table x", taskID)
	assert.ErrorIs(t, err, ErrUnknownTable)
	_, err = s.Get(context.Background(), "secrets", taskID)
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.ErrorIs(t, s.Delete(context.Background(), "secrets", taskID), ErrUnknownTable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tasks" SET "title"=$1 WHERE id = $2`)).
		WithArgs("Renamed", taskID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tasks" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "created_by"}).AddRow(taskID, "Renamed", "alice"))
	mock.ExpectCommit()

	rec, err := s.Update(context.Background(), "tasks", taskID, map[string]any{"title": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec["title"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tasks" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), "tasks", taskID, map[string]any{"title": "Renamed"})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDelete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "clients" WHERE id = $1`)).
		WithArgs(taskID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), "clients", taskID))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "clients"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), "clients", taskID), ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "clients"`)).
		WillReturnError(errors.New("connection reset"))
	err := s.Delete(context.Background(), "clients", taskID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRedis(t *testing.T) {
	_, err := OpenRedis(context.Background(), config.RedisConfig{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb, err := OpenRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer rdb.Close()
	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())

	addr := mr.Addr()
	mr.Close()
	_, err = OpenRedis(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := OpenPool(context.Background(), config.DatabaseConfig{})
	assert.Error(t, err)
	_, err = OpenPostgres(config.DatabaseConfig{})
	assert.Error(t, err)
	_, err = OpenPool(context.Background(), config.DatabaseConfig{DSN: "::not a dsn::"})
	assert.Error(t, err)
}
