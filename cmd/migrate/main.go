// Package main 数据库迁移工具
package main

import (
	"flag"
	"log"

	"github.com/kaiwu-tech/pm-backend/internal/config"
	"github.com/kaiwu-tech/pm-backend/internal/database"
	"github.com/kaiwu-tech/pm-backend/internal/model"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 加载配置
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()
	log.Println("数据库连接成功")

	// 执行迁移
	log.Println("开始执行数据库迁移...")

	// 迁移所有模型
	models := []any{
		&model.User{},
		&model.Department{},
		&model.Team{},
		&model.TeamMember{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Sprint{},
		&model.Task{},
		&model.Permission{},
		&model.RoleAssignment{},
		&model.PermissionAuditLog{},
		&model.Notification{},
		&model.AiSetting{},
		&model.AiUsageLog{},
	}

	for _, m := range models {
		if err := database.AutoMigrate(m); err != nil {
			log.Fatalf("迁移失败: %v", err)
		}
	}

	log.Println("数据库迁移完成！")

	// 打印创建的表
	log.Println("已创建/更新的表:")
	log.Println("  - users (用户表)")
	log.Println("  - departments (部门表)")
	log.Println("  - teams (团队表)")
	log.Println("  - team_members (团队成员表)")
	log.Println("  - projects (项目表)")
	log.Println("  - project_members (项目成员表)")
	log.Println("  - sprints (迭代表)")
	log.Println("  - tasks (任务表)")
	log.Println("  - permissions (权限目录表)")
	log.Println("  - role_assignments (角色权限分配表)")
	log.Println("  - permission_audit_logs (权限审计日志表)")
	log.Println("  - notifications (通知表)")
	log.Println("  - ai_settings (AI 配置表)")
	log.Println("  - ai_usage_logs (AI 用量表)")
}
