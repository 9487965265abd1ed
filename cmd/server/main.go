package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaiwu-tech/pm-backend/internal/config"
	"github.com/kaiwu-tech/pm-backend/internal/database"
	"github.com/kaiwu-tech/pm-backend/internal/handler"
	"github.com/kaiwu-tech/pm-backend/internal/middleware"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/redis"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/kaiwu-tech/pm-backend/internal/service"
	"github.com/kaiwu-tech/pm-backend/pkg/response"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()
	log.Println("数据库连接成功")

	// 初始化 Redis 连接
	if err := redis.Init(&cfg.Redis); err != nil {
		log.Fatalf("初始化 Redis 失败: %v", err)
	}
	defer redis.Close()
	log.Println("Redis 连接成功")

	// 自动迁移数据库表
	if err := database.AutoMigrate(
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
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库迁移完成")

	appLogger := middleware.GetLogger()

	// 初始化 Repository
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	sprintRepo := repository.NewSprintRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	assignRepo := repository.NewRoleAssignmentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	aiRepo := repository.NewAiRepository(db)

	// 初始化 Service
	permCache := service.NewEffectivePermissionCache(redis.GetClient(), cfg.RBAC.CacheTTL)
	catalogService := service.NewPermissionCatalogService(permRepo)
	resolver := service.NewPermissionResolver(permRepo, assignRepo, permCache, appLogger)
	assignmentService := service.NewRoleAssignmentService(permRepo, assignRepo, permCache, appLogger)
	membershipService := service.NewMembershipService(userRepo, deptRepo, teamRepo, projectRepo)
	deptService := service.NewDepartmentService(deptRepo, appLogger)
	teamService := service.NewTeamService(teamRepo, deptRepo)
	userService := service.NewUserService(userRepo, appLogger)
	projectService := service.NewProjectService(projectRepo, appLogger)
	sprintService := service.NewSprintService(sprintRepo)
	taskService := service.NewTaskService(taskRepo, notifRepo, appLogger)
	notifService := service.NewNotificationService(notifRepo)
	aiService := service.NewAiService(aiRepo, cfg.AI, appLogger)

	// 初始化默认权限目录
	if err := catalogService.InitDefaultCatalog(context.Background()); err != nil {
		log.Fatalf("初始化权限目录失败: %v", err)
	}

	// 初始化 Handler
	rbacHandler := handler.NewRBACHandler(catalogService, assignmentService, resolver, membershipService, auditRepo)
	userHandler := handler.NewUserHandler(userService)
	deptHandler := handler.NewDepartmentHandler(deptService, teamService)
	projectHandler := handler.NewProjectHandler(projectService, sprintService, taskService)
	taskHandler := handler.NewTaskHandler(taskService)
	notifHandler := handler.NewNotificationHandler(notifService)
	aiHandler := handler.NewAiHandler(aiService)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()

	// 全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		if err := database.Ping(); err != nil {
			dbStatus = "error"
		}

		redisStatus := "ok"
		redisClient := redis.GetClient()
		if redisClient == nil {
			redisStatus = "error"
		} else if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error"
		}

		response.Success(c, gin.H{
			"status":   "ok",
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"redis":    redisStatus,
		})
	})

	// API 路由组
	api := router.Group("/api/v1")
	{
		api.GET("/ping", func(c *gin.Context) {
			response.Success(c, "pong")
		})

		// 用户注册（公开）
		api.POST("/users", userHandler.Register)

		// 以下路由需要网关透传的身份头
		authed := api.Group("")
		authed.Use(middleware.Identity())
		{
			authed.GET("/users/me", userHandler.GetCurrentUser)
			authed.GET("/users/:id", userHandler.GetUser)
			authed.GET("/users", userHandler.ListUsers)

			// 权限管理
			rbac := authed.Group("/rbac")
			{
				manage := middleware.RequirePermission(resolver, membershipService, "rbac.manage")

				rbac.GET("/permissions/me", rbacHandler.MyPermissions)
				rbac.POST("/check", rbacHandler.CheckPermission)
				rbac.GET("/permissions", rbacHandler.ListPermissions)
				rbac.GET("/permissions/:code", rbacHandler.GetPermission)
				rbac.POST("/permissions", manage, rbacHandler.CreatePermission)
				rbac.PUT("/permissions/:code/status", manage, rbacHandler.UpdatePermissionStatus)
				rbac.POST("/assignments", manage, rbacHandler.GrantPermission)
				rbac.PUT("/assignments", manage, rbacHandler.ModifyAssignment)
				rbac.DELETE("/assignments", manage, rbacHandler.RevokePermission)
				rbac.GET("/roles/:type/:name/assignments", manage, rbacHandler.ListRoleAssignments)
				rbac.GET("/audit-logs", manage, rbacHandler.ListAuditLogs)
			}

			// 部门与团队
			authed.POST("/departments", middleware.RequirePermission(resolver, membershipService, "dept.manage"), deptHandler.CreateDepartment)
			authed.GET("/departments", deptHandler.ListDepartments)
			authed.GET("/departments/:id", deptHandler.GetDepartment)
			authed.GET("/departments/:id/path", deptHandler.GetHierarchyPath)
			authed.PUT("/departments/:id", middleware.RequirePermission(resolver, membershipService, "dept.manage"), deptHandler.UpdateDepartment)
			authed.DELETE("/departments/:id", middleware.RequirePermission(resolver, membershipService, "dept.manage"), deptHandler.DeleteDepartment)

			authed.POST("/teams", middleware.RequirePermission(resolver, membershipService, "team.manage"), deptHandler.CreateTeam)
			authed.GET("/teams/:id", deptHandler.GetTeam)
			authed.GET("/teams/:id/members", deptHandler.ListTeamMembers)
			authed.POST("/teams/:id/members", middleware.RequirePermission(resolver, membershipService, "team.manage"), deptHandler.AddTeamMember)
			authed.DELETE("/teams/:id/members/:user_id", middleware.RequirePermission(resolver, membershipService, "team.manage"), deptHandler.RemoveTeamMember)

			// 项目与任务
			authed.POST("/projects", middleware.RequirePermission(resolver, membershipService, "project.manage"), projectHandler.CreateProject)
			authed.GET("/projects", projectHandler.ListProjects)
			authed.GET("/projects/:id", middleware.RequirePermission(resolver, membershipService, "project.view"), projectHandler.GetProject)
			authed.POST("/projects/:id/members", middleware.RequirePermission(resolver, membershipService, "project.manage"), projectHandler.AddProjectMember)
			authed.DELETE("/projects/:id/members/:user_id", middleware.RequirePermission(resolver, membershipService, "project.manage"), projectHandler.RemoveProjectMember)
			authed.POST("/projects/:id/sprints", middleware.RequirePermission(resolver, membershipService, "sprint.manage"), projectHandler.CreateSprint)
			authed.GET("/projects/:id/sprints", projectHandler.ListSprints)
			authed.GET("/projects/:id/tasks", taskHandler.ListTasks)

			authed.POST("/tasks", middleware.RequirePermission(resolver, membershipService, "task.create"), taskHandler.CreateTask)
			authed.GET("/tasks/:id", taskHandler.GetTask)
			authed.PUT("/tasks/:id", middleware.RequirePermissionFor(resolver, membershipService, "task.edit", taskHandler.TaskAccessRequest), taskHandler.UpdateTask)
			authed.DELETE("/tasks/:id", middleware.RequirePermissionFor(resolver, membershipService, "task.delete", taskHandler.TaskAccessRequest), taskHandler.DeleteTask)

			// 通知
			authed.GET("/notifications", notifHandler.ListNotifications)
			authed.GET("/notifications/unread-count", notifHandler.CountUnread)
			authed.PUT("/notifications/:id/read", notifHandler.MarkRead)
			authed.PUT("/notifications/read-all", notifHandler.MarkAllRead)

			// AI 辅助
			authed.GET("/ai/settings", aiHandler.ListSettings)
			authed.PUT("/ai/settings", middleware.RequirePermission(resolver, membershipService, "rbac.manage"), aiHandler.UpsertSetting)
			authed.POST("/ai/usage", middleware.RequirePermission(resolver, membershipService, "ai.use"), aiHandler.RecordUsage)
			authed.GET("/ai/usage/me", aiHandler.MyUsage)
		}
	}

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		log.Printf("服务启动，监听地址: %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，等待 5 秒
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务关闭失败: %v", err)
	}

	// 关闭数据库和 Redis 连接
	database.Close()
	redis.Close()

	log.Println("服务已关闭")
}
