package model

import "time"

// 通知类型
const (
	NotifyTaskAssigned  = "task_assigned"  // 任务被指派
	NotifyTaskCommented = "task_commented" // 任务被评论
	NotifyMention       = "mention"        // 被 @ 提及
	NotifySprintStarted = "sprint_started" // 迭代开始
	NotifySystem        = "system"         // 系统通知
)

// Notification 站内通知
// 仅存储与查询，不负责任何推送渠道
type Notification struct {
	BaseModel
	UserID    string     `gorm:"type:char(36);index;not null" json:"user_id"` // 接收人
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`       // 通知类型
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`     // 标题
	Content   string     `gorm:"type:varchar(1000)" json:"content"`           // 内容
	SourceID  string     `gorm:"type:char(36)" json:"source_id,omitempty"`    // 来源对象 ID（任务、迭代等）
	ReadAt    *time.Time `json:"read_at,omitempty"`                           // 已读时间，空表示未读
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// IsRead 检查通知是否已读
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
