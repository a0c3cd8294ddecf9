// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task is a scheduled callback. Interval > 0 means the task re-arms itself
// after every execution until it is cancelled.
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager runs scheduled tasks off a single min-heap. Resolution is 100ms,
// which is well under the once-per-second the round tick requires.
type Manager struct {
	queue    taskQueue
	mutex    sync.Mutex
	nextID   int64
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewManager() *Manager {
	m := &Manager{
		queue:    make(taskQueue, 0),
		nextID:   1,
		stopChan: make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.process()
	return m
}

// Schedule registers callback to run after delay. A positive interval makes
// the task recurring. Returns a handle usable with Cancel.
func (m *Manager) Schedule(delay time.Duration, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		ID:       m.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, task)
	return task.ID
}

// Cancel removes a task by handle. Cancelling an unknown or already-fired
// one-shot handle is a no-op. Recurring tasks re-arm under the same lock
// that pops them, so a handle is always either in the heap or retired.
func (m *Manager) Cancel(taskID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.ID == taskID {
			heap.Remove(&m.queue, i)
			return
		}
	}
}

// Stop shuts down the processing loop. Pending tasks never fire.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

func (m *Manager) process() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runDue(time.Now())
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) runDue(now time.Time) {
	m.mutex.Lock()
	var due []*Task
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}
		heap.Pop(&m.queue)
		due = append(due, task)
		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		}
	}
	m.mutex.Unlock()

	for _, task := range due {
		go task.Callback()
	}
}
