package rolecache

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/JonasWehrle/StagePass/internal/pkg/cache"
)

// DefaultTTL bounds how stale a cached role set may get even if an
// invalidation is lost.
const DefaultTTL = 5 * time.Minute

// Cache is the Redis-backed role cache handed to the entitlement resolver.
// Reads are best-effort: a cache failure degrades to a DB lookup, never to
// a wrong answer.
type Cache struct {
	ttl time.Duration
}

// New creates a role cache with the default TTL.
func New() *Cache {
	return &Cache{ttl: DefaultTTL}
}

// NewWithTTL creates a role cache with a custom TTL.
func NewWithTTL(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl}
}

func key(teamID, userID uint) string {
	return fmt.Sprintf("role_cache:%d:%d", teamID, userID)
}

// Get returns the cached role set for a (team, user) pair.
func (c *Cache) Get(teamID, userID uint) (string, bool) {
	val, err := cache.Get(key(teamID, userID))
	if err != nil {
		if !cache.IsMiss(err) {
			log.Warnf("[RoleCache] Get failed for team %d user %d: %v", teamID, userID, err)
		}
		return "", false
	}
	return val, true
}

// Set stores the role set for a (team, user) pair.
func (c *Cache) Set(teamID, userID uint, roles string) {
	if err := cache.Set(key(teamID, userID), roles, c.ttl); err != nil {
		log.Warnf("[RoleCache] Set failed for team %d user %d: %v", teamID, userID, err)
	}
}

// Invalidate drops the cached role set. Called by the grant ledger and
// membership mutations; the next read reloads from the DB.
func (c *Cache) Invalidate(teamID, userID uint) {
	if err := cache.Delete(key(teamID, userID)); err != nil {
		log.Warnf("[RoleCache] Invalidate failed for team %d user %d: %v", teamID, userID, err)
	}
}
