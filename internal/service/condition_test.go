package service

import (
	"testing"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestParseCondition_OwnOnly(t *testing.T) {
	cond, err := ParseCondition(model.ConditionOwnOnly, nil)
	assert.NoError(t, err)
	assert.Equal(t, model.ConditionOwnOnly, cond.Type())

	// 本人资源放行
	assert.True(t, cond.Evaluate(&AccessRequest{
		UserID:          "user-1",
		ResourceOwnerID: "user-1",
	}))

	// 他人资源拒绝
	assert.False(t, cond.Evaluate(&AccessRequest{
		UserID:          "user-1",
		ResourceOwnerID: "user-2",
	}))
}

func TestParseCondition_OwnOnly_MissingOwner(t *testing.T) {
	cond, err := ParseCondition(model.ConditionOwnOnly, nil)
	assert.NoError(t, err)

	// 缺少归属信息时拒绝，不默认放行
	assert.False(t, cond.Evaluate(&AccessRequest{UserID: "user-1"}))
	assert.False(t, cond.Evaluate(nil))
}

func TestParseCondition_Partial(t *testing.T) {
	cond, err := ParseCondition(model.ConditionPartial, model.ConditionConfig{
		"fields": []interface{}{"title", "description"},
	})
	assert.NoError(t, err)
	assert.Equal(t, model.ConditionPartial, cond.Type())

	// partial 条件本身放行，字段限制由调用方应用
	assert.True(t, cond.Evaluate(&AccessRequest{UserID: "user-1"}))
}

func TestParseCondition_QAFieldsOnly(t *testing.T) {
	cond, err := ParseCondition(model.ConditionQAFieldsOnly, model.ConditionConfig{
		"fields": []interface{}{"status", "test_notes"},
	})
	assert.NoError(t, err)

	// 触碰字段为配置子集时放行
	assert.True(t, cond.Evaluate(&AccessRequest{
		UserID: "user-1",
		Fields: []string{"status"},
	}))
	assert.True(t, cond.Evaluate(&AccessRequest{
		UserID: "user-1",
		Fields: []string{"status", "test_notes"},
	}))

	// 触碰配置之外的字段拒绝
	assert.False(t, cond.Evaluate(&AccessRequest{
		UserID: "user-1",
		Fields: []string{"status", "title"},
	}))

	assert.False(t, cond.Evaluate(nil))
}

func TestParseCondition_QAFieldsOnly_EmptyFields(t *testing.T) {
	cond, err := ParseCondition(model.ConditionQAFieldsOnly, model.ConditionConfig{
		"fields": []interface{}{"status"},
	})
	assert.NoError(t, err)

	// 未触碰任何字段（如只读请求）放行
	assert.True(t, cond.Evaluate(&AccessRequest{UserID: "user-1"}))
}

func TestParseCondition_Unknown(t *testing.T) {
	cond, err := ParseCondition("time_window", model.ConditionConfig{"start": "09:00"})
	assert.ErrorIs(t, err, ErrUnknownCondition)
	assert.Nil(t, cond)

	cond, err = ParseCondition("", nil)
	assert.ErrorIs(t, err, ErrUnknownCondition)
	assert.Nil(t, cond)
}
