package service

import (
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
)

// ErrUnknownCondition 未知的条件类型
// 评估器对无法识别的条件一律拒绝（fail-closed），不会静默放行
var ErrUnknownCondition = errors.New("未知的条件类型")

// AccessRequest 一次访问请求的上下文
type AccessRequest struct {
	UserID          string   `json:"user_id"`                    // 请求用户 ID
	ResourceType    string   `json:"resource_type,omitempty"`    // 资源类型，如 task
	ResourceID      string   `json:"resource_id,omitempty"`      // 资源 ID
	ResourceOwnerID string   `json:"resource_owner_id,omitempty"` // 资源归属者 ID，own_only 条件使用
	Fields          []string `json:"fields,omitempty"`           // 本次请求触碰的字段，qa_fields_only 条件使用
}

// Condition 一条已解析的分配条件
// 按 condition_type 封装各自的强类型配置，统一对访问请求求值
type Condition interface {
	Type() string
	Evaluate(req *AccessRequest) bool
}

// ownOnlyCondition 仅限本人资源
type ownOnlyCondition struct{}

func (ownOnlyCondition) Type() string {
	return model.ConditionOwnOnly
}

func (ownOnlyCondition) Evaluate(req *AccessRequest) bool {
	if req == nil || req.ResourceOwnerID == "" {
		return false
	}
	return req.ResourceOwnerID == req.UserID
}

// partialCondition 放行但要求调用方按配置做字段级限制
// 评估本身返回允许，限制配置通过解析结果透传给调用方
type partialCondition struct {
	fields []string
}

func (partialCondition) Type() string {
	return model.ConditionPartial
}

func (partialCondition) Evaluate(req *AccessRequest) bool {
	return true
}

// qaFieldsOnlyCondition 仅允许触碰配置列出的 QA 字段
type qaFieldsOnlyCondition struct {
	allowed map[string]bool
}

func (qaFieldsOnlyCondition) Type() string {
	return model.ConditionQAFieldsOnly
}

func (c qaFieldsOnlyCondition) Evaluate(req *AccessRequest) bool {
	if req == nil {
		return false
	}
	// 触碰字段必须是配置字段的子集
	for _, field := range req.Fields {
		if !c.allowed[field] {
			return false
		}
	}
	return true
}

// ParseCondition 按条件类型解析条件配置
// 未识别的类型返回 ErrUnknownCondition，由调用方按拒绝处理
func ParseCondition(conditionType string, config model.ConditionConfig) (Condition, error) {
	switch conditionType {
	case model.ConditionOwnOnly:
		return ownOnlyCondition{}, nil
	case model.ConditionPartial:
		return partialCondition{fields: config.Fields()}, nil
	case model.ConditionQAFieldsOnly:
		allowed := make(map[string]bool)
		for _, field := range config.Fields() {
			allowed[field] = true
		}
		return qaFieldsOnlyCondition{allowed: allowed}, nil
	default:
		return nil, ErrUnknownCondition
	}
}
