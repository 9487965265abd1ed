package service

import (
	"context"
	"errors"
	"sort"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"go.uber.org/zap"
)

// Decision 权限解析结果
type Decision struct {
	Allowed      bool                  `json:"allowed"`                 // 是否放行
	ScopeMatched string                `json:"scope_matched,omitempty"` // 命中的作用域（role_type）
	Conditional  bool                  `json:"conditional"`             // 命中的分配是否带条件
	Restriction  model.ConditionConfig `json:"restriction,omitempty"`   // partial 条件的字段级限制配置，由调用方应用
}

// 拒绝结果，解析失败时统一返回
func denied() *Decision {
	return &Decision{Allowed: false}
}

// PermissionResolver 权限解析器
// 给定用户在各作用域持有的角色与请求的权限代码，决定放行或拒绝
// 纯读操作，不持有任何锁，可与分配变更并发执行
type PermissionResolver interface {
	Resolve(ctx context.Context, roles []repository.RoleRef, permissionCode string, req *AccessRequest) (*Decision, error)
	EffectivePermissions(ctx context.Context, roles []repository.RoleRef) ([]string, error)
}

type permissionResolver struct {
	permRepo   repository.PermissionRepository
	assignRepo repository.RoleAssignmentRepository
	cache      *EffectivePermissionCache // 可为 nil，此时直接查库
	logger     *zap.Logger
}

// NewPermissionResolver 创建权限解析器
func NewPermissionResolver(
	permRepo repository.PermissionRepository,
	assignRepo repository.RoleAssignmentRepository,
	cache *EffectivePermissionCache,
	logger *zap.Logger,
) PermissionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &permissionResolver{
		permRepo:   permRepo,
		assignRepo: assignRepo,
		cache:      cache,
		logger:     logger,
	}
}

// Resolve 解析一次权限请求
//
// 流程：目录校验 -> 收集用户所有角色对该权限的分配 -> 无分配默认拒绝 ->
// 作用域分层取优（project > team > division > system，同层无条件分配优先）->
// 有条件分配交给条件评估器，未知条件类型一律拒绝并返回 ErrUnknownCondition
func (r *permissionResolver) Resolve(ctx context.Context, roles []repository.RoleRef, permissionCode string, req *AccessRequest) (*Decision, error) {
	// 1. 目录校验：不存在或已停用的权限直接拒绝
	perm, err := r.permRepo.GetByCode(ctx, permissionCode)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return denied(), ErrPermissionNotFound
		}
		return denied(), err
	}
	if !perm.IsActive() {
		return denied(), ErrPermissionInactive
	}

	// 2. 收集该权限在用户持有角色上的全部分配
	assignments, err := r.assignRepo.ListByPermission(ctx, perm.ID)
	if err != nil {
		return denied(), err
	}

	held := make(map[repository.RoleRef]bool, len(roles))
	for _, ref := range roles {
		held[ref] = true
	}

	var candidates []*model.RoleAssignment
	for _, a := range assignments {
		if held[repository.RoleRef{RoleType: a.RoleType, RoleName: a.RoleName}] {
			candidates = append(candidates, a)
		}
	}

	// 3. 无分配即拒绝：只有允许清单，没有拒绝清单
	if len(candidates) == 0 {
		return denied(), nil
	}

	// 4. 分层取优
	winner := pickWinner(candidates)

	// 5. 无条件分配直接放行
	if !winner.IsConditional {
		return &Decision{
			Allowed:      true,
			ScopeMatched: winner.RoleType,
			Conditional:  false,
		}, nil
	}

	// 6. 有条件分配交给条件评估器
	cond, err := ParseCondition(winner.ConditionType, winner.ConditionConfig)
	if err != nil {
		// 未知条件类型：拒绝并向调用方透出错误，便于排查
		r.logger.Warn("权限条件无法识别，已拒绝访问",
			zap.String("permission_code", permissionCode),
			zap.String("role_type", winner.RoleType),
			zap.String("role_name", winner.RoleName),
			zap.String("condition_type", winner.ConditionType),
		)
		return &Decision{
			Allowed:      false,
			ScopeMatched: winner.RoleType,
			Conditional:  true,
		}, ErrUnknownCondition
	}

	decision := &Decision{
		Allowed:      cond.Evaluate(req),
		ScopeMatched: winner.RoleType,
		Conditional:  true,
	}
	// partial 条件放行后，字段级限制配置透传给调用方
	if decision.Allowed && winner.ConditionType == model.ConditionPartial {
		decision.Restriction = winner.ConditionConfig
	}
	return decision, nil
}

// pickWinner 在候选分配中取优
// 作用域越具体越优先；同一层级内无条件分配优先于有条件分配；
// 其余并列按角色名排序取第一个，保证相同输入得到相同结果
func pickWinner(candidates []*model.RoleAssignment) *model.RoleAssignment {
	sorted := make([]*model.RoleAssignment, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := model.ScopeRank(sorted[i].RoleType), model.ScopeRank(sorted[j].RoleType)
		if ri != rj {
			return ri > rj
		}
		if sorted[i].IsConditional != sorted[j].IsConditional {
			return !sorted[i].IsConditional
		}
		return sorted[i].RoleName < sorted[j].RoleName
	})
	return sorted[0]
}

// EffectivePermissions 列出用户经作用域合并后的全部有效权限代码
// 以角色为粒度走缓存，未命中回源数据库并回填
func (r *permissionResolver) EffectivePermissions(ctx context.Context, roles []repository.RoleRef) ([]string, error) {
	codeSet := make(map[string]bool)

	for _, ref := range roles {
		if r.cache != nil {
			if codes, ok := r.cache.Get(ctx, ref); ok {
				for _, code := range codes {
					codeSet[code] = true
				}
				continue
			}
		}

		assignments, err := r.assignRepo.ListForRole(ctx, ref.RoleType, ref.RoleName)
		if err != nil {
			return nil, err
		}

		var codes []string
		for _, a := range assignments {
			// 停用的权限不参与解析
			if a.Permission == nil || !a.Permission.IsActive() {
				continue
			}
			codes = append(codes, a.Permission.Code)
		}

		if r.cache != nil {
			// 回填失败不影响本次结果
			_ = r.cache.Set(ctx, ref, codes)
		}
		for _, code := range codes {
			codeSet[code] = true
		}
	}

	result := make([]string, 0, len(codeSet))
	for code := range codeSet {
		result = append(result, code)
	}
	sort.Strings(result)
	return result, nil
}
