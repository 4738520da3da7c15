package gateway

import (
	"sync"

	"go.uber.org/zap"

	"github.com/stellarlinkco/greetbot/internal/bus"
)

// lanes runs inbound messages one at a time per user and concurrently
// across users. A lane's goroutine exits once its queue is empty.
type lanes struct {
	mu     sync.Mutex
	queues map[string]chan bus.InboundMessage
	size   int
	handle func(bus.InboundMessage)
	log    *zap.Logger
	wg     sync.WaitGroup
}

func newLanes(size int, handle func(bus.InboundMessage), log *zap.Logger) *lanes {
	if size <= 0 {
		size = 1
	}
	return &lanes{
		queues: make(map[string]chan bus.InboundMessage),
		size:   size,
		handle: handle,
		log:    log,
	}
}

// dispatch queues msg on its user's lane. It reports false when the lane
// is full and msg was dropped.
func (l *lanes) dispatch(msg bus.InboundMessage) bool {
	key := msg.UserKey()

	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.queues[key]
	if !ok {
		q = make(chan bus.InboundMessage, l.size)
		l.queues[key] = q
		l.wg.Add(1)
		go l.run(key, q)
	}

	select {
	case q <- msg:
		return true
	default:
		l.log.Warn("user queue full, dropping event", zap.String("user", key), zap.Int("queue", l.size))
		return false
	}
}

func (l *lanes) run(key string, q chan bus.InboundMessage) {
	defer l.wg.Done()
	for {
		select {
		case msg := <-q:
			l.handle(msg)
		default:
			// dispatch enqueues under mu, so an empty queue seen here stays empty.
			l.mu.Lock()
			if len(q) == 0 {
				delete(l.queues, key)
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
		}
	}
}

// active returns the number of users with queued or running events.
func (l *lanes) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queues)
}

// wait blocks until every lane has drained.
func (l *lanes) wait() {
	l.wg.Wait()
}
