package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Tests drive runDue directly so they never wait on the 100ms ticker.

func newStoppedManager() *Manager {
	m := NewManager()
	m.Stop()
	return m
}

func waitForCount(t *testing.T, counter *int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(counter) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected count %d, got %d", want, atomic.LoadInt32(counter))
}

func TestManager_OneShotFiresOnce(t *testing.T) {
	m := newStoppedManager()
	var count int32
	m.Schedule(50*time.Millisecond, 0, func() {
		atomic.AddInt32(&count, 1)
	})

	base := time.Now()

	// Not due yet.
	m.runDue(base)
	if atomic.LoadInt32(&count) != 0 {
		t.Fatal("Task fired before its delay")
	}

	m.runDue(base.Add(100 * time.Millisecond))
	waitForCount(t, &count, 1)

	// A fired one-shot never runs again.
	m.runDue(base.Add(time.Hour))
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("One-shot fired %d times", atomic.LoadInt32(&count))
	}
}

func TestManager_RecurringReArms(t *testing.T) {
	m := newStoppedManager()
	var count int32
	id := m.Schedule(0, time.Second, func() {
		atomic.AddInt32(&count, 1)
	})

	base := time.Now().Add(time.Millisecond)
	m.runDue(base)
	waitForCount(t, &count, 1)

	m.runDue(base.Add(time.Second))
	waitForCount(t, &count, 2)

	m.Cancel(id)
	m.runDue(base.Add(time.Hour))
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&count) != 2 {
		t.Errorf("Cancelled recurring task still fired, count %d", atomic.LoadInt32(&count))
	}
}

func TestManager_CancelBeforeFire(t *testing.T) {
	m := newStoppedManager()
	var count int32
	id := m.Schedule(10*time.Millisecond, 0, func() {
		atomic.AddInt32(&count, 1)
	})

	m.Cancel(id)
	m.runDue(time.Now().Add(time.Hour))
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&count) != 0 {
		t.Error("Cancelled task must not fire")
	}

	// Cancelling unknown handles is a no-op.
	m.Cancel(id)
	m.Cancel(9999)
}

func TestManager_DueOrderAndIndependence(t *testing.T) {
	m := newStoppedManager()
	var mu sync.Mutex
	var fired []string
	done := make(chan struct{}, 2)

	m.Schedule(20*time.Millisecond, 0, func() {
		mu.Lock()
		fired = append(fired, "late")
		mu.Unlock()
		done <- struct{}{}
	})
	m.Schedule(10*time.Millisecond, 0, func() {
		mu.Lock()
		fired = append(fired, "early")
		mu.Unlock()
		done <- struct{}{}
	})

	base := time.Now()

	// Only the earlier task is due.
	m.runDue(base.Add(15 * time.Millisecond))
	<-done
	mu.Lock()
	if len(fired) != 1 || fired[0] != "early" {
		t.Fatalf("Expected only the early task, got %v", fired)
	}
	mu.Unlock()

	m.runDue(base.Add(time.Second))
	<-done
	mu.Lock()
	if len(fired) != 2 {
		t.Errorf("Expected both tasks fired, got %v", fired)
	}
	mu.Unlock()
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Stop()
	m.Stop()
}
