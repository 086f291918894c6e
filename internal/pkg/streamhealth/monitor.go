package streamhealth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/internal/pkg/streams"
)

const (
	// MaxStreamDuration is the hard ceiling for a single broadcast.
	MaxStreamDuration = 8 * time.Hour

	// AbsenceGrace is how long an empty room may stay live before the
	// stream is considered abandoned by its broadcaster.
	AbsenceGrace = 5 * time.Minute

	// ViewerlessAfter is how long a stream must have been live before the
	// zero-viewer rule applies.
	ViewerlessAfter = time.Hour
)

// Monitor inspects live streams and forces overdue ones through the ended
// transition. It holds no cadence of its own; the sweeper manager calls
// RunSweepOnce on a fixed interval.
type Monitor struct {
	lifecycle *streams.Service
	seen      LastSeenStore
}

// NewMonitor creates a health monitor over the given lifecycle service.
func NewMonitor(lifecycle *streams.Service, seen LastSeenStore) *Monitor {
	return &Monitor{lifecycle: lifecycle, seen: seen}
}

// RunSweepOnce checks every live stream. Failures are logged per stream and
// never abort the batch; each forced termination goes through the regular
// ended transition so room cleanup and timestamps behave identically to a
// manual stop.
func (m *Monitor) RunSweepOnce(ctx context.Context) error {
	live, err := m.lifecycle.LiveStreams()
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range live {
		st := &live[i]
		if err := m.checkStream(ctx, st, now); err != nil {
			log.Errorf("[StreamHealth] Check failed for stream %s: %v", st.UUID, err)
		}
	}
	return nil
}

func (m *Monitor) checkStream(ctx context.Context, st *models.Stream, now time.Time) error {
	if st.LiveDuration(now) > MaxStreamDuration {
		return m.forceEnd(ctx, st, streams.ReasonMaxDuration)
	}

	participants, err := m.lifecycle.Participants(ctx, st)
	if err != nil {
		// Fail open: a provider hiccup must not terminate a healthy
		// broadcast, so the broadcaster counts as present.
		log.Warnf("[StreamHealth] Participant query failed for stream %s: %v", st.UUID, err)
		m.seen.Set(st.UUID, now)
		return nil
	}

	if len(participants) > 0 {
		m.seen.Set(st.UUID, now)
		return nil
	}

	firstEmpty, ok := m.seen.Get(st.UUID)
	if !ok {
		m.seen.Set(st.UUID, now)
	} else if now.Sub(firstEmpty) > AbsenceGrace {
		return m.forceEnd(ctx, st, streams.ReasonBroadcasterAbsent)
	}

	if st.LiveDuration(now) > ViewerlessAfter {
		return m.forceEnd(ctx, st, streams.ReasonNoViewers)
	}
	return nil
}

func (m *Monitor) forceEnd(ctx context.Context, st *models.Stream, reason string) error {
	log.Infof("[StreamHealth] Ending stream %s: %s", st.UUID, reason)
	if err := m.lifecycle.Transition(ctx, st, models.StreamStatusEnded, reason); err != nil {
		return err
	}
	m.seen.Clear(st.UUID)
	return nil
}
