package model

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ロールは1つのフィールドに正規化する（customer / admin）
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var ErrInvalidRole = errors.New("invalid role")

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// ParseRole は外部入力（JWT claim、管理画面）からRoleを作る。
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// 連絡設定
type CommunicationPreferences struct {
	Newsletter   bool `gorm:"not null;default:false" json:"newsletter"`
	OrderUpdates bool `gorm:"not null" json:"order_updates"`
}

// 顧客アカウント。削除はせず、IsActive=falseで停止する。
type Customer struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string `gorm:"type:varchar(100)" json:"first_name"`
	LastName     string `gorm:"type:varchar(100)" json:"last_name"`
	Phone        string `gorm:"type:varchar(30)" json:"phone"`

	Address Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`

	Role         Role `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`
	TokenVersion int  `gorm:"not null;default:0" json:"token_version"`
	IsActive     bool `gorm:"not null" json:"is_active"`

	Preferences CommunicationPreferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`

	DisabledAt  *time.Time `json:"disabled_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

// 作成時はロール必須
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if !c.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// 更新時は値が入っている場合だけ検証（列単位の更新ではRoleは空）
func (c *Customer) BeforeUpdate(tx *gorm.DB) error {
	if c.Role != "" && !c.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
