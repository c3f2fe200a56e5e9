package model

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Actor 代表当前请求的调用者 (UserContext)，每个请求只解析一次
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Ownership 是资源的最小投影，用于在更新/删除前做归属校验
type Ownership struct {
	ID      string `json:"id"`
	OwnerID string `json:"created_by"`
}
