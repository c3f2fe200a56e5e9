package model

import (
	"time"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// RequestMeta 请求来源信息，只做记录不参与鉴权
type RequestMeta struct {
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Origin    string `json:"origin,omitempty"`
}

// AuditRecord 代表一次鉴权/变更结果的审计记录，写入后不可修改
type AuditRecord struct {
	ID           string  `json:"id"`
	ActorID      *string `json:"actor_id"` // 未认证时为 nil
	ActorRole    Role    `json:"actor_role,omitempty"`
	Action       Action  `json:"action"`
	ResourceType string  `json:"resource_type"`
	ResourceID   *string `json:"resource_id"` // 标识校验之前失败时为 nil
	Outcome      Outcome `json:"outcome"`
	Status       int     `json:"status"`
	Message      string  `json:"message"`

	// 业务上下文，例如 owner 不匹配、尝试修改的字段、存储层原始错误
	Details map[string]any `json:"details,omitempty"`

	Request   RequestMeta `json:"request"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuditFilter narrows audit listings. Zero values mean "any".
type AuditFilter struct {
	ActorID      string
	ResourceType string
	From         *time.Time
	To           *time.Time
	Limit        int
}

func (f AuditFilter) Match(rec *AuditRecord) bool {
	if rec == nil {
		return false
	}
	if f.ActorID != "" && (rec.ActorID == nil || *rec.ActorID != f.ActorID) {
		return false
	}
	if f.ResourceType != "" && rec.ResourceType != f.ResourceType {
		return false
	}
	if f.From != nil && rec.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
