package account

import (
	"flowform/authority"

	"github.com/fundwit/go-commons/types"
)

type User struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name     string `json:"name" gorm:"unique_index:uni_user_name" binding:"required"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Secret   string `json:"-"`

	Role       authority.Role `json:"role"`
	IsArchived bool           `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *User) TableName() string {
	return "users"
}

type UserInfo struct {
	ID       types.ID       `json:"id"`
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Nickname string         `json:"nickname"`
	Role     authority.Role `json:"role"`

	IsArchived bool `json:"isArchived"`
}

func (u *UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

type UserCreation struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Nickname string `json:"nickname"`
	Secret   string `json:"secret" binding:"required,gte=6"`
	Role     string `json:"role" binding:"required,oneof=Administrator TaskExecutor StandardUser"`
}

type UserUpdation struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role" binding:"omitempty,oneof=Administrator TaskExecutor StandardUser"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret" binding:"required"`
	NewSecret      string `json:"newSecret" binding:"required,gte=6"`
}

type ArchiveUpdating struct {
	Archived bool `json:"archived"`
}
