package model

// Department 部门模型
// 通过 parent_id 自引用构成树形结构，parent_id 为空表示根部门
// 层级必须无环，写入时与遍历时都会校验
type Department struct {
	BaseModel
	Code        string  `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // 部门编码
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`            // 部门名称
	Description string  `gorm:"type:varchar(500)" json:"description"`              // 部门描述
	ParentID    *string `gorm:"type:char(36);index" json:"parent_id,omitempty"`    // 上级部门 ID，空表示根部门
	ManagerID   string  `gorm:"type:char(36);index" json:"manager_id,omitempty"`   // 部门负责人
	Status      string  `gorm:"type:varchar(20);default:active" json:"status"`     // 状态
}

// TableName 指定表名
func (Department) TableName() string {
	return "departments"
}

// IsActive 检查部门是否启用
func (d *Department) IsActive() bool {
	return d.Status == StatusActive
}

// IsRoot 检查是否为根部门
func (d *Department) IsRoot() bool {
	return d.ParentID == nil || *d.ParentID == ""
}

// Team 团队模型
// 团队隶属于一个部门，department_id 为空表示未归属团队
type Team struct {
	BaseModel
	Name         string  `gorm:"type:varchar(100);not null" json:"name"`              // 团队名称
	Description  string  `gorm:"type:varchar(500)" json:"description"`                // 团队描述
	DepartmentID *string `gorm:"type:char(36);index" json:"department_id,omitempty"`  // 所属部门 ID，可为空
	LeadID       string  `gorm:"type:char(36);index" json:"lead_id,omitempty"`        // 团队负责人
	Status       string  `gorm:"type:varchar(20);default:active" json:"status"`       // 状态

	// 关联
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TableName 指定表名
func (Team) TableName() string {
	return "teams"
}

// TeamMember 团队成员
// role_name 为该成员在团队作用域内的角色名，供权限解析使用
type TeamMember struct {
	BaseModel
	TeamID   string `gorm:"type:char(36);not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID   string `gorm:"type:char(36);not null;uniqueIndex:idx_team_user;index" json:"user_id"`
	RoleName string `gorm:"type:varchar(100);not null;default:member" json:"role_name"` // 团队内角色，如 developer, qa

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (TeamMember) TableName() string {
	return "team_members"
}
