package service

import (
	"context"
	"sort"
	"time"

	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

// 空权限集占位成员，用于区分"缓存未命中"与"角色无任何权限"
const emptySetMarker = "-"

// 缓存 key 前缀
const rolePermsKeyPrefix = "rbac:role_perms:"

// EffectivePermissionCache 角色有效权限缓存
// 以角色为粒度缓存其已分配且启用的权限代码集合，分配变更时失效
type EffectivePermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEffectivePermissionCache 创建有效权限缓存
func NewEffectivePermissionCache(client *redis.Client, ttl time.Duration) *EffectivePermissionCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EffectivePermissionCache{client: client, ttl: ttl}
}

func roleKey(ref repository.RoleRef) string {
	return rolePermsKeyPrefix + ref.RoleType + ":" + ref.RoleName
}

// Get 读取角色的权限代码集合，未命中返回 false
func (c *EffectivePermissionCache) Get(ctx context.Context, ref repository.RoleRef) ([]string, bool) {
	members, err := c.client.SMembers(ctx, roleKey(ref)).Result()
	if err != nil || len(members) == 0 {
		return nil, false
	}

	codes := make([]string, 0, len(members))
	for _, m := range members {
		if m == emptySetMarker {
			continue
		}
		codes = append(codes, m)
	}
	sort.Strings(codes)
	return codes, true
}

// Set 写入角色的权限代码集合
func (c *EffectivePermissionCache) Set(ctx context.Context, ref repository.RoleRef, codes []string) error {
	key := roleKey(ref)

	members := make([]interface{}, 0, len(codes)+1)
	// 空集合也写入占位成员，避免无权限角色反复穿透缓存
	members = append(members, emptySetMarker)
	for _, code := range codes {
		members = append(members, code)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate 使角色的缓存失效，分配变更后调用
func (c *EffectivePermissionCache) Invalidate(ctx context.Context, ref repository.RoleRef) error {
	return c.client.Del(ctx, roleKey(ref)).Err()
}
