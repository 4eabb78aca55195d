package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/models"
)

const recordTimeout = 5 * time.Second

// AsyncRecorder queues events and writes them from one goroutine, so a slow
// database never holds up a room. Events that do not fit in the queue are
// dropped.
type AsyncRecorder struct {
	next  Recorder
	queue chan models.RoomEvent
	done  chan struct{}

	mutex  sync.RWMutex
	closed bool
}

func NewAsyncRecorder(next Recorder, size int) *AsyncRecorder {
	r := &AsyncRecorder{
		next:  next,
		queue: make(chan models.RoomEvent, size),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncRecorder) Record(_ context.Context, event models.RoomEvent) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed {
		return ErrRecorderClosed
	}
	select {
	case r.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.next.Record(ctx, event); err != nil {
			logger.Log.Warnf("recorder: %s for room %s not written: %v", event.Kind, event.Code, err)
		}
		cancel()
	}
}

// Close writes out what is queued and closes the underlying recorder.
func (r *AsyncRecorder) Close() error {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mutex.Unlock()

	<-r.done
	return r.next.Close()
}
