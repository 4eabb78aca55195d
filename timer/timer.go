// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Scheduler runs callbacks after a delay. The returned cancel func stops the
// callback and reports whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func() bool)
}

type TimerTask struct {
	Id       int64
	Execute  time.Time
	Callback func()
	index    int
}

type TimerQueue []*TimerTask

func (q TimerQueue) Len() int { return len(q) }

func (q TimerQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q TimerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *TimerQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*TimerTask)
	task.index = n
	*q = append(*q, task)
}

func (q *TimerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager keeps every pending timer of the process in one heap served by a
// single goroutine.
type Manager struct {
	queue   TimerQueue
	tasks   map[int64]*TimerTask
	mutex   sync.Mutex
	nextId  int64
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
}

func NewManager() *Manager {
	manager := &Manager{
		queue:  make(TimerQueue, 0),
		tasks:  make(map[int64]*TimerTask),
		nextId: 1,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	heap.Init(&manager.queue)
	go manager.process()
	return manager
}

// AddTimer schedules callback after delay and returns the timer id.
func (m *Manager) AddTimer(delay time.Duration, callback func()) int64 {
	m.mutex.Lock()
	task := &TimerTask{
		Id:       m.nextId,
		Execute:  time.Now().Add(delay),
		Callback: callback,
	}
	m.nextId++
	heap.Push(&m.queue, task)
	m.tasks[task.Id] = task
	m.mutex.Unlock()

	m.poke()
	return task.Id
}

// RemoveTimer cancels a pending timer. It reports false if the timer already
// fired or never existed.
func (m *Manager) RemoveTimer(timerId int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task, exists := m.tasks[timerId]
	if !exists {
		return false
	}
	heap.Remove(&m.queue, task.index)
	delete(m.tasks, timerId)
	return true
}

func (m *Manager) AfterFunc(d time.Duration, f func()) func() bool {
	id := m.AddTimer(d, f)
	return func() bool { return m.RemoveTimer(id) }
}

// Pending returns the number of timers that have not fired yet.
func (m *Manager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.tasks)
}

// Stop ends the manager. Pending timers never fire.
func (m *Manager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
}

func (m *Manager) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) process() {
	t := time.NewTimer(time.Hour)
	defer t.Stop()

	for {
		m.mutex.Lock()
		now := time.Now()
		var due []*TimerTask
		for m.queue.Len() > 0 && !m.queue[0].Execute.After(now) {
			task := heap.Pop(&m.queue).(*TimerTask)
			delete(m.tasks, task.Id)
			due = append(due, task)
		}
		wait := time.Hour
		if m.queue.Len() > 0 {
			wait = m.queue[0].Execute.Sub(now)
		}
		m.mutex.Unlock()

		for _, task := range due {
			go task.Callback()
		}

		t.Reset(wait)
		select {
		case <-t.C:
		case <-m.wake:
		case <-m.stop:
			return
		}
	}
}
