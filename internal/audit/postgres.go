package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxDB is satisfied by *pgxpool.Pool and by test fakes.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSink writes into audit_records (created by the migrations package).
type PostgresSink struct {
	db pgxDB
}

func NewPostgresSink(db pgxDB) *PostgresSink {
	return &PostgresSink{db: db}
}

const auditColumns = `id, actor_id, actor_role, action, resource_type, resource_id, outcome, status, message, details, request, created_at`

func (s *PostgresSink) Append(ctx context.Context, rec *model.AuditRecord) error {
	if rec == nil {
		return nil
	}
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	request, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("encode request meta: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO audit_records (`+auditColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.ActorID, string(rec.ActorRole), string(rec.Action), rec.ResourceType, rec.ResourceID,
		string(rec.Outcome), rec.Status, rec.Message, details, request, rec.CreatedAt)
	return err
}

func (s *PostgresSink) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditRecord, error) {
	limit := clampLimit(filter.Limit)

	query := `SELECT ` + auditColumns + ` FROM audit_records`
	clauses := []string{}
	args := []any{}
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", filter.ResourceType)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*model.AuditRecord, 0, limit)
	for rows.Next() {
		var (
			rec                   model.AuditRecord
			role, action, outcome string
			detailsJSON, reqJSON  []byte
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.ActorID,
			&role,
			&action,
			&rec.ResourceType,
			&rec.ResourceID,
			&outcome,
			&rec.Status,
			&rec.Message,
			&detailsJSON,
			&reqJSON,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.ActorRole = model.Role(role)
		rec.Action = model.Action(action)
		rec.Outcome = model.Outcome(outcome)
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &rec.Details)
		}
		if len(reqJSON) > 0 {
			_ = json.Unmarshal(reqJSON, &rec.Request)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Cleanup removes records older than the retention window.
func (s *PostgresSink) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
