package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 标准响应结构
// 字段顺序：code -> msg -> data
type Response struct {
	Code int         `json:"code"` // 业务状态码，0 表示成功
	Msg  string      `json:"msg"`  // 响应消息（中文）
	Data interface{} `json:"data"` // 响应数据
}

// 业务错误码
const (
	CodeSuccess = 0 // 操作成功

	// 参数错误 10xxx
	CodeInvalidRequest = 10001 // 请求参数无效
	CodeInvalidFormat  = 10002 // 参数格式错误
	CodeMissingParam   = 10003 // 必填参数缺失

	// 认证/授权错误 20xxx
	CodeUnauthenticated = 20001 // 未携带有效身份信息
	CodeForbidden       = 20002 // 无权访问该资源
	CodeUnknownCond     = 20003 // 权限条件无法识别，已拒绝访问

	// 资源不存在 40xxx
	CodeUserNotFound         = 40001 // 用户不存在
	CodeDeptNotFound         = 40002 // 部门不存在
	CodeTeamNotFound         = 40003 // 团队不存在
	CodeProjectNotFound      = 40004 // 项目不存在
	CodeTaskNotFound         = 40005 // 任务不存在
	CodePermissionNotFound   = 40006 // 权限不存在
	CodeAssignmentNotFound   = 40007 // 角色权限分配不存在
	CodeNotificationNotFound = 40008 // 通知不存在

	// 冲突错误 50xxx
	CodePermissionExists = 50001 // 权限代码已存在
	CodeAssignmentExists = 50002 // 该角色已拥有此权限
	CodeDeptCodeExists   = 50003 // 部门编码已存在
	CodeDeptCycle        = 50004 // 部门层级存在循环引用
	CodeUserExists       = 50005 // 该用户名已被注册

	// 服务器错误 90xxx
	CodeServerError = 90001 // 服务器内部错误
	CodeUnavailable = 90002 // 服务暂时不可用
)

// 错误码对应的消息
var codeMessages = map[int]string{
	CodeSuccess:              "操作成功",
	CodeInvalidRequest:       "请求参数无效",
	CodeInvalidFormat:        "参数格式错误",
	CodeMissingParam:         "必填参数缺失",
	CodeUnauthenticated:      "未携带有效身份信息",
	CodeForbidden:            "无权访问该资源",
	CodeUnknownCond:          "权限条件无法识别，已拒绝访问",
	CodeUserNotFound:         "用户不存在",
	CodeDeptNotFound:         "部门不存在",
	CodeTeamNotFound:         "团队不存在",
	CodeProjectNotFound:      "项目不存在",
	CodeTaskNotFound:         "任务不存在",
	CodePermissionNotFound:   "权限不存在",
	CodeAssignmentNotFound:   "角色权限分配不存在",
	CodeNotificationNotFound: "通知不存在",
	CodePermissionExists:     "权限代码已存在",
	CodeAssignmentExists:     "该角色已拥有此权限",
	CodeDeptCodeExists:       "部门编码已存在",
	CodeDeptCycle:            "部门层级存在循环引用",
	CodeUserExists:           "该用户名已被注册",
	CodeServerError:          "服务器内部错误，请稍后重试",
	CodeUnavailable:          "服务暂时不可用",
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  codeMessages[CodeSuccess],
		Data: data,
	})
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int) {
	msg, ok := codeMessages[code]
	if !ok {
		msg = "未知错误"
	}
	c.JSON(codeToHTTPStatus(code), Response{
		Code: code,
		Msg:  msg,
		Data: nil,
	})
}

// ErrorWithMsg 错误响应（自定义消息）
func ErrorWithMsg(c *gin.Context, code int, msg string) {
	c.JSON(codeToHTTPStatus(code), Response{
		Code: code,
		Msg:  msg,
		Data: nil,
	})
}

// codeToHTTPStatus 业务错误码转 HTTP 状态码
func codeToHTTPStatus(code int) int {
	switch {
	case code == CodeSuccess:
		return http.StatusOK
	case code >= 10000 && code < 20000:
		return http.StatusBadRequest
	case code == CodeUnauthenticated:
		return http.StatusUnauthorized
	case code >= 20000 && code < 30000:
		return http.StatusForbidden
	case code >= 40000 && code < 50000:
		return http.StatusNotFound
	case code >= 50000 && code < 60000:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
