package model

// AiSetting AI 辅助功能配置项
// 简单键值配置，由管理端维护
type AiSetting struct {
	BaseModel
	Key         string `gorm:"column:setting_key;type:varchar(100);uniqueIndex;not null" json:"key"`
	Value       string `gorm:"type:text" json:"value"`
	Description string `gorm:"type:varchar(500)" json:"description"`
}

// TableName 指定表名
func (AiSetting) TableName() string {
	return "ai_settings"
}

// AiUsageLog AI 调用用量记录
// 只追加的计量数据，不参与权限解析
type AiUsageLog struct {
	BaseModel
	UserID       string `gorm:"type:char(36);index;not null" json:"user_id"`
	Feature      string `gorm:"type:varchar(50);not null" json:"feature"` // 功能点，如 task_summary, sprint_report
	PromptTokens int64  `gorm:"default:0" json:"prompt_tokens"`
	OutputTokens int64  `gorm:"default:0" json:"output_tokens"`
	Succeeded    bool   `gorm:"default:true" json:"succeeded"`
}

// TableName 指定表名
func (AiUsageLog) TableName() string {
	return "ai_usage_logs"
}

// TotalTokens 本次调用消耗的总 token 数
func (l *AiUsageLog) TotalTokens() int64 {
	return l.PromptTokens + l.OutputTokens
}
