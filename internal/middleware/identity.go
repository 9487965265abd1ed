package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/kaiwu-tech/pm-backend/pkg/response"
)

// 网关透传的身份头
const (
	HeaderUserID = "X-User-ID"
)

// Identity 身份中间件
// 认证由上游网关完成，本服务只信任网关透传的用户标识头
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			response.Error(c, response.CodeUnauthenticated)
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// CurrentUserID 从上下文取当前用户 ID
func CurrentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}
