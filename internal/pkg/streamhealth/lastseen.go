package streamhealth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/JonasWehrle/StagePass/internal/pkg/cache"
)

// LastSeenStore tracks when a broadcaster was last observed in a room. The
// timestamp is refreshed on every non-empty participant observation and
// initialized on the first empty one, so the absence grace period starts
// counting from the first miss.
type LastSeenStore interface {
	Get(streamUUID string) (time.Time, bool)
	Set(streamUUID string, t time.Time)
	Clear(streamUUID string)
}

// lastSeenTTL keeps stale entries from outliving a stream that ended
// outside the monitor's view.
const lastSeenTTL = 12 * time.Hour

// redisLastSeenStore keeps last-seen timestamps in the shared cache so that
// multiple app instances observe the same grace window.
type redisLastSeenStore struct{}

// NewLastSeenStore returns the Redis-backed store.
func NewLastSeenStore() LastSeenStore {
	return redisLastSeenStore{}
}

func lastSeenKey(streamUUID string) string {
	return fmt.Sprintf("stream_health:last_seen:%s", streamUUID)
}

func (redisLastSeenStore) Get(streamUUID string) (time.Time, bool) {
	val, err := cache.Get(lastSeenKey(streamUUID))
	if err != nil {
		if !cache.IsMiss(err) {
			log.Warnf("[StreamHealth] Last-seen read failed for %s: %v", streamUUID, err)
		}
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}

func (redisLastSeenStore) Set(streamUUID string, t time.Time) {
	if err := cache.Set(lastSeenKey(streamUUID), strconv.FormatInt(t.Unix(), 10), lastSeenTTL); err != nil {
		log.Warnf("[StreamHealth] Last-seen write failed for %s: %v", streamUUID, err)
	}
}

func (redisLastSeenStore) Clear(streamUUID string) {
	if err := cache.Delete(lastSeenKey(streamUUID)); err != nil {
		log.Warnf("[StreamHealth] Last-seen clear failed for %s: %v", streamUUID, err)
	}
}
