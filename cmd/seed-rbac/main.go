// 初始化默认权限目录与基础角色分配的工具
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/kaiwu-tech/pm-backend/internal/config"
	"github.com/kaiwu-tech/pm-backend/internal/database"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/kaiwu-tech/pm-backend/internal/service"
)

// 系统管理员角色的基础分配，全部为无条件授予
var adminGrants = []string{
	"rbac.manage",
	"user.manage",
	"dept.manage",
	"team.manage",
	"project.view",
	"project.manage",
	"sprint.manage",
	"task.view",
	"task.create",
	"task.edit",
	"task.delete",
	"notification.view",
	"ai.use",
}

// 项目成员角色的基础分配
var memberGrants = []struct {
	code            string
	conditionType   string
	conditionConfig model.ConditionConfig
}{
	{code: "project.view"},
	{code: "task.view"},
	{code: "task.create"},
	{code: "task.edit", conditionType: model.ConditionOwnOnly},
	{code: "notification.view"},
}

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()

	ctx := context.Background()

	// 初始化 Repository 与 Service
	permRepo := repository.NewPermissionRepository(database.GetDB())
	assignRepo := repository.NewRoleAssignmentRepository(database.GetDB())
	catalogService := service.NewPermissionCatalogService(permRepo)
	assignmentService := service.NewRoleAssignmentService(permRepo, assignRepo, nil, nil)

	// 初始化默认权限目录
	if err := catalogService.InitDefaultCatalog(ctx); err != nil {
		log.Fatalf("初始化权限目录失败: %v", err)
	}
	log.Println("权限目录初始化完成")

	actor := service.AuditActor{UserID: "system", IPAddress: "127.0.0.1", UserAgent: "seed-rbac"}

	// 系统管理员：system/admin
	for _, code := range adminGrants {
		_, err := assignmentService.Assign(ctx, actor, service.AssignmentInput{
			RoleType:       model.RoleTypeSystem,
			RoleName:       "admin",
			PermissionCode: code,
			Reason:         "初始化系统管理员权限",
		})
		if err != nil && !errors.Is(err, service.ErrAssignmentExists) {
			log.Fatalf("授予 system/admin %s 失败: %v", code, err)
		}
	}
	log.Println("system/admin 权限分配完成")

	// 项目成员：project/member
	for _, g := range memberGrants {
		_, err := assignmentService.Assign(ctx, actor, service.AssignmentInput{
			RoleType:        model.RoleTypeProject,
			RoleName:        "member",
			PermissionCode:  g.code,
			ConditionType:   g.conditionType,
			ConditionConfig: g.conditionConfig,
			Reason:          "初始化项目成员权限",
		})
		if err != nil && !errors.Is(err, service.ErrAssignmentExists) {
			log.Fatalf("授予 project/member %s 失败: %v", g.code, err)
		}
	}
	log.Println("project/member 权限分配完成")

	// 可选：为指定用户设置系统管理员角色
	if len(os.Args) > 1 {
		username := os.Args[1]
		userRepo := repository.NewUserRepository(database.GetDB())
		user, err := userRepo.GetByUsername(ctx, username)
		if err != nil {
			log.Fatalf("用户不存在: %s", username)
		}
		user.SystemRole = "admin"
		if err := userRepo.Update(ctx, user); err != nil {
			log.Fatalf("设置系统角色失败: %v", err)
		}
		fmt.Printf("成功为用户 %s 设置系统管理员角色\n", user.Username)
	}
}
