// internal/model/user.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role はユーザーの役割を表します
type Role string

const (
	RoleNone       Role = ""           // 匿名（未ログイン）
	RoleStudent    Role = "student"    // 受講者
	RoleInstructor Role = "instructor" // 講師
	RoleAdmin      Role = "admin"      // 管理者
)

// User はアカウントの基本情報
type User struct {
	UserID    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Role      Role           `gorm:"not null;default:'student'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Identity はリクエストスコープの認証済みユーザー情報です。
// グローバル変数ではなく、この値を各サービス呼び出しに明示的に渡します。
// ゼロ値 (UserID=uuid.Nil, Role=RoleNone) は匿名ユーザーを表します。
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// IsAnonymous は匿名ユーザーかどうかを返します
func (i Identity) IsAnonymous() bool {
	return i.UserID == uuid.Nil
}

type ContextKey string

const (
	IdentityKey ContextKey = "identity"
)
