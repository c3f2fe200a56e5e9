package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PATCH 请求体 schema。所有字段均为指针：nil 表示未提供，不会写入存储。
// resource_id 是自定义校验 tag，要求规范 UUID 格式。

type ClientUpdate struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Status  *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive archived"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type LeadUpdate struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email          *string          `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone          *string          `json:"phone,omitempty" validate:"omitempty,max=40"`
	Source         *string          `json:"source,omitempty" validate:"omitempty,max=100"`
	Status         *string          `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified lost converted"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"`
	Notes          *string          `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

func (u *LeadUpdate) Validate() error {
	if u.EstimatedValue != nil && u.EstimatedValue.IsNegative() {
		return errors.New("estimated_value must not be negative")
	}
	return nil
}

type ProjectUpdate struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=10000"`
	Status      *string          `json:"status,omitempty" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	ClientID    *string          `json:"client_id,omitempty" validate:"omitempty,resource_id"`
	StartDate   *string          `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate     *string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Budget      *decimal.Decimal `json:"budget,omitempty"`
}

func (u *ProjectUpdate) Validate() error {
	if u.Budget != nil && u.Budget.IsNegative() {
		return errors.New("budget must not be negative")
	}
	if u.StartDate != nil && u.DueDate != nil && *u.DueDate < *u.StartDate {
		return errors.New("due_date must not be before start_date")
	}
	return nil
}

type TaskUpdate struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done blocked"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ProjectID   *string `json:"project_id,omitempty" validate:"omitempty,resource_id"`
	AssigneeID  *string `json:"assignee_id,omitempty" validate:"omitempty,resource_id"`
}

type FinancialRecordUpdate struct {
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Kind        *string          `json:"kind,omitempty" validate:"omitempty,oneof=income expense"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    *string          `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	OccurredOn  *string          `json:"occurred_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ClientID    *string          `json:"client_id,omitempty" validate:"omitempty,resource_id"`
}

func (u *FinancialRecordUpdate) Validate() error {
	if u.Amount != nil && !u.Amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	if u.Amount != nil && u.Amount.Exponent() < -2 {
		return errors.New("amount supports at most two decimal places")
	}
	return nil
}

type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url,max=2048"`
	Role      *Role   `json:"role,omitempty" validate:"omitempty,oneof=member admin"`
}
