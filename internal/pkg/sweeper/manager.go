package sweeper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/JonasWehrle/StagePass/internal/pkg/env"
	"github.com/JonasWehrle/StagePass/internal/pkg/grants"
	"github.com/JonasWehrle/StagePass/internal/pkg/streamhealth"
)

// Manager runs the periodic background sweeps: grant expiry and stream
// health. Each sweep is idempotent, so overlapping or repeated runs after a
// restart are harmless.
type Manager struct {
	grants       *grants.Service
	health       *streamhealth.Monitor
	expiryTicker *time.Ticker
	healthTicker *time.Ticker
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once

	setupGrants *grants.Service
	setupHealth *streamhealth.Monitor
)

// Setup stores the services the global manager will sweep. Must be called
// before GetManager.
func Setup(g *grants.Service, h *streamhealth.Monitor) {
	setupGrants = g
	setupHealth = h
}

// GetManager returns the global sweep manager (singleton).
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(setupGrants, setupHealth)
	})
	return globalManager
}

// NewManager creates an unstarted manager over the given services.
func NewManager(g *grants.Service, h *streamhealth.Monitor) *Manager {
	return &Manager{
		grants: g,
		health: h,
		stopCh: make(chan struct{}),
	}
}

// Start launches the sweep workers. Safe to call more than once.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Sweeper] Starting background sweeps")

	// Workers get the channel and ticker for this cycle handed to them so a
	// later restart never swaps state out from under a draining goroutine.
	m.expiryTicker = time.NewTicker(envDuration("GRANT_EXPIRY_SWEEP_SECONDS", 300))
	m.wg.Add(1)
	go m.expiryWorker(m.stopCh, m.expiryTicker)

	m.healthTicker = time.NewTicker(envDuration("STREAM_HEALTH_SWEEP_SECONDS", 60))
	m.wg.Add(1)
	go m.healthWorker(m.stopCh, m.healthTicker)

	log.Info("[Sweeper] Started successfully")
}

// Stop stops the sweep workers and waits for them to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Sweeper] Stopping background sweeps...")

	if m.expiryTicker != nil {
		m.expiryTicker.Stop()
	}
	if m.healthTicker != nil {
		m.healthTicker.Stop()
	}

	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	log.Info("[Sweeper] Stopped successfully")
}

// IsRunning reports whether the workers are active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) expiryWorker(stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[Sweeper] Grant expiry worker stopping")
			return
		case <-ticker.C:
			n, err := m.grants.ExpireSweep(context.Background(), time.Now())
			if err != nil {
				log.Errorf("[Sweeper] Grant expiry sweep error: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("[Sweeper] Expired %d access grants", n)
			}
		}
	}
}

func (m *Manager) healthWorker(stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[Sweeper] Stream health worker stopping")
			return
		case <-ticker.C:
			if err := m.health.RunSweepOnce(context.Background()); err != nil {
				log.Errorf("[Sweeper] Stream health sweep error: %v", err)
			}
		}
	}
}

func envDuration(key string, defSeconds int) time.Duration {
	raw := env.GetEnv(key, strconv.Itoa(defSeconds))
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		secs = defSeconds
	}
	return time.Duration(secs) * time.Second
}
