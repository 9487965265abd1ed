// Package middleware 中间件
package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/kaiwu-tech/pm-backend/internal/service"
	"github.com/kaiwu-tech/pm-backend/pkg/response"
	"go.uber.org/zap"
)

// AccessRequestBuilder 按路由构造访问请求
// 需要资源所有权或字段信息的路由（如任务编辑）用它加载资源并填充请求
type AccessRequestBuilder func(c *gin.Context, userID string) (*service.AccessRequest, error)

// RequirePermission 权限检查中间件
// 检查当前用户是否拥有指定的权限，命中的解析结果写入上下文供处理器使用
func RequirePermission(resolver service.PermissionResolver, membership service.MembershipService, permissionCode string) gin.HandlerFunc {
	return requirePermission(resolver, membership, permissionCode, nil)
}

// RequirePermissionFor 带访问请求构造的权限检查中间件
// 用于条件分配依赖资源信息的路由
func RequirePermissionFor(resolver service.PermissionResolver, membership service.MembershipService, permissionCode string, build AccessRequestBuilder) gin.HandlerFunc {
	return requirePermission(resolver, membership, permissionCode, build)
}

func requirePermission(resolver service.PermissionResolver, membership service.MembershipService, permissionCode string, build AccessRequestBuilder) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			response.Error(c, response.CodeUnauthenticated)
			c.Abort()
			return
		}

		roles, err := membership.RolesForUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				response.Error(c, response.CodeUserNotFound)
			} else {
				response.Error(c, response.CodeServerError)
			}
			c.Abort()
			return
		}

		req := &service.AccessRequest{UserID: userID}
		if build != nil {
			req, err = build(c, userID)
			if err != nil {
				response.Error(c, response.CodeServerError)
				c.Abort()
				return
			}
			if req == nil {
				req = &service.AccessRequest{UserID: userID}
			}
		}

		decision, err := resolver.Resolve(c.Request.Context(), roles, permissionCode, req)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUnknownCondition):
				response.Error(c, response.CodeUnknownCond)
			case errors.Is(err, service.ErrPermissionNotFound), errors.Is(err, service.ErrPermissionInactive):
				response.Error(c, response.CodeForbidden)
			default:
				logger.Error("权限解析失败",
					zap.String("user_id", userID),
					zap.String("permission_code", permissionCode),
					zap.Error(err),
				)
				response.Error(c, response.CodeServerError)
			}
			c.Abort()
			return
		}

		if !decision.Allowed {
			response.ErrorWithMsg(c, response.CodeForbidden, "没有权限执行此操作")
			c.Abort()
			return
		}

		// partial 条件的字段限制透传给处理器
		c.Set("access_decision", decision)
		c.Next()
	}
}

// DecisionFrom 从上下文取权限解析结果
func DecisionFrom(c *gin.Context) (*service.Decision, bool) {
	v, exists := c.Get("access_decision")
	if !exists {
		return nil, false
	}
	decision, ok := v.(*service.Decision)
	return decision, ok
}
