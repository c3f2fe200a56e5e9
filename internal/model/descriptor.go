package model

import "strings"

// Access selects which ownership rule guards a resource.
type Access int

const (
	// AccessOwnerOrAdmin: the created_by user or an admin.
	AccessOwnerOrAdmin Access = iota
	// AccessSelfOrAdmin: the record is the user itself (profiles).
	AccessSelfOrAdmin
)

// Descriptor 描述一种资源在安全管线中的差异部分，其余流程所有资源共用
type Descriptor struct {
	Name             string     // URL 路径段，同时作为审计中的 resource_type
	Table            string     // 存储层表名
	Access           Access
	NewUpdate        func() any // 返回 PATCH 请求体对应的 schema 指针
	PrivilegedFields []string   // 仅 admin 可修改的字段
}

// Privileged returns the canonical privileged field matching key. The match
// is case-insensitive since JSON field binding is.
func (d Descriptor) Privileged(key string) (string, bool) {
	for _, f := range d.PrivilegedFields {
		if strings.EqualFold(key, f) {
			return f, true
		}
	}
	return "", false
}

// Resources returns the descriptors for every resource the panel exposes.
func Resources() []Descriptor {
	return []Descriptor{
		{Name: "clients", Table: "clients", Access: AccessOwnerOrAdmin, NewUpdate: func() any { return &ClientUpdate{} }},
		{Name: "leads", Table: "leads", Access: AccessOwnerOrAdmin, NewUpdate: func() any { return &LeadUpdate{} }},
		{Name: "projects", Table: "projects", Access: AccessOwnerOrAdmin, NewUpdate: func() any { return &ProjectUpdate{} }},
		{Name: "tasks", Table: "tasks", Access: AccessOwnerOrAdmin, NewUpdate: func() any { return &TaskUpdate{} }},
		{Name: "financial-records", Table: "financial_records", Access: AccessOwnerOrAdmin, NewUpdate: func() any { return &FinancialRecordUpdate{} }},
		{
			Name:             "profiles",
			Table:            "profiles",
			Access:           AccessSelfOrAdmin,
			NewUpdate:        func() any { return &ProfileUpdate{} },
			PrivilegedFields: []string{"role"},
		},
	}
}
