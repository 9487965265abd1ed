package model

import (
	"golang.org/x/crypto/bcrypt"
)

// User 用户模型
type User struct {
	BaseModel
	Username     string  `gorm:"type:varchar(100);uniqueIndex" json:"username"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	PasswordHash string  `gorm:"type:varchar(255)" json:"-"`
	DisplayName  string  `gorm:"type:varchar(100)" json:"display_name"`
	AvatarURL    string  `gorm:"type:varchar(500)" json:"avatar_url,omitempty"`
	DepartmentID *string `gorm:"type:char(36);index" json:"department_id,omitempty"` // 所属部门，供部门级权限解析
	SystemRole   string  `gorm:"type:varchar(100)" json:"system_role,omitempty"`     // 系统级角色名，空表示无系统角色
	Status       string  `gorm:"type:varchar(20);default:active" json:"status"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// SetPassword 设置密码（哈希存储）
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword 验证密码
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsActive 检查用户是否启用
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
