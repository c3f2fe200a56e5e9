package audit

import (
	"context"
	"encoding/json"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisSink keeps a capped list of JSON records, newest at the head.
type RedisSink struct {
	client  redis.Cmdable
	listKey string
	listMax int
}

func NewRedisSink(client redis.Cmdable, listKey string, listMax int) *RedisSink {
	if listKey == "" {
		listKey = "audit_records"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisSink{client: client, listKey: listKey, listMax: listMax}
}

func (r *RedisSink) Append(ctx context.Context, rec *model.AuditRecord) error {
	if rec == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.listKey, payload)
		pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
		return nil
	})
	return err
}

func (r *RedisSink) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditRecord, error) {
	limit := clampLimit(filter.Limit)
	// 过滤在客户端做，多取一些
	fetch := limit * 5
	if fetch < 100 {
		fetch = 100
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}
	items, err := r.client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}
	results := make([]*model.AuditRecord, 0, limit)
	for _, raw := range items {
		var rec model.AuditRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if !filter.Match(&rec) {
			continue
		}
		results = append(results, &rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
