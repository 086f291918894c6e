package sweeper

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetManagerSingleton(t *testing.T) {
	globalManager = nil
	managerOnce = sync.Once{}

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")
	assert.NotNil(t, manager1.stopCh)
	assert.False(t, manager1.running)
}

func TestManagerIsRunning(t *testing.T) {
	manager := NewManager(nil, nil)

	assert.False(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = true
	manager.mu.Unlock()

	assert.True(t, manager.IsRunning())
}

func TestManagerStopWithoutStart(t *testing.T) {
	manager := NewManager(nil, nil)

	// Stop without starting should be safe
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

// stopWithin fails the test when Stop does not return in time, instead of
// letting a stuck worker hang the whole run.
func stopWithin(t *testing.T, manager *Manager, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		manager.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("Stop did not return; a sweep worker is stuck")
	}
}

func TestManagerStartStop(t *testing.T) {
	manager := NewManager(nil, nil)

	manager.Start()
	assert.True(t, manager.IsRunning())

	// Stop before any ticker fires so the nil services are never touched.
	// Both workers must drain; Stop blocking here means a worker missed the
	// close signal.
	stopWithin(t, manager, 5*time.Second)
	assert.False(t, manager.IsRunning())
}

func TestManagerRestart(t *testing.T) {
	manager := NewManager(nil, nil)

	manager.Start()
	stopWithin(t, manager, 5*time.Second)

	// A second cycle gets a fresh stop channel; the drained workers from the
	// first cycle must not interfere with it.
	manager.Start()
	assert.True(t, manager.IsRunning())
	stopWithin(t, manager, 5*time.Second)
	assert.False(t, manager.IsRunning())
}

func TestManagerDoubleStart(t *testing.T) {
	manager := NewManager(nil, nil)

	manager.Start()
	first := manager.expiryTicker
	manager.Start()
	assert.Same(t, first, manager.expiryTicker, "second Start must be a no-op")

	manager.Stop()
}

func TestEnvDurationFallback(t *testing.T) {
	assert.Equal(t, 300*time.Second, envDuration("SWEEPER_TEST_UNSET_KEY", 300))

	t.Setenv("SWEEPER_TEST_BAD_KEY", "not-a-number")
	assert.Equal(t, 60*time.Second, envDuration("SWEEPER_TEST_BAD_KEY", 60))

	t.Setenv("SWEEPER_TEST_GOOD_KEY", "15")
	assert.Equal(t, 15*time.Second, envDuration("SWEEPER_TEST_GOOD_KEY", 300))
}
