package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lecube/cube-api/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PermissionCache caches per-role permission key sets in Redis so that hot
// permission checks do not hit the database on every request. Entries are
// invalidated whenever a role is edited.
type PermissionCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var permissionCacheInstance *PermissionCache

// InitPermissionCache wires the Redis-backed permission cache. A nil client
// disables caching; every check then resolves against the database.
func InitPermissionCache(client *redis.Client, ttl time.Duration) {
	if client == nil {
		permissionCacheInstance = nil
		return
	}
	permissionCacheInstance = &PermissionCache{Client: client, TTL: ttl}
}

// GetPermissionCache returns the permission cache instance (nil when disabled)
func GetPermissionCache() *PermissionCache {
	return permissionCacheInstance
}

func rolePermissionsKey(roleID uint) string {
	return fmt.Sprintf("role:permissions:%d", roleID)
}

// HasPermission resolves the user's role and grants access iff the role's
// permission set contains the given key. Absence of a role, of the key, or of
// the user itself denies access. Pure check, no side effects on the domain.
func HasPermission(ctx context.Context, db *gorm.DB, userID uint, key string) (bool, error) {
	ctx, cancel := boundedContext(ctx)
	defer cancel()

	var user models.User
	if err := db.WithContext(ctx).Select("id", "role_id").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if user.RoleID == nil {
		return false, nil
	}

	keys, err := rolePermissionKeys(ctx, db, *user.RoleID)
	if err != nil {
		return false, err
	}

	for _, k := range keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

// rolePermissionKeys returns the permission keys of a role, served from the
// cache when possible. Cache failures fall back to the database.
func rolePermissionKeys(ctx context.Context, db *gorm.DB, roleID uint) ([]string, error) {
	cache := GetPermissionCache()

	if cache != nil {
		raw, err := cache.Client.Get(ctx, rolePermissionsKey(roleID)).Result()
		if err == nil {
			var keys []string
			if jsonErr := json.Unmarshal([]byte(raw), &keys); jsonErr == nil {
				return keys, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("warning: permission cache read failed: %v", err)
		}
	}

	var role models.Role
	if err := db.WithContext(ctx).Preload("Permissions").First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Dangling role reference denies everything
			return []string{}, nil
		}
		return nil, err
	}

	keys := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		keys = append(keys, p.Key)
	}

	if cache != nil {
		data, _ := json.Marshal(keys)
		if err := cache.Client.Set(ctx, rolePermissionsKey(roleID), data, cache.TTL).Err(); err != nil {
			log.Printf("warning: permission cache write failed: %v", err)
		}
	}

	return keys, nil
}

// InvalidateRolePermissions drops a role's cached permission set. Called after
// every role edit so stale grants never outlive the change.
func InvalidateRolePermissions(ctx context.Context, roleID uint) {
	cache := GetPermissionCache()
	if cache == nil {
		return
	}
	if err := cache.Client.Del(ctx, rolePermissionsKey(roleID)).Err(); err != nil {
		log.Printf("warning: permission cache invalidation failed: %v", err)
	}
}
