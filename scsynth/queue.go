package scsynth

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chabad360/go-scsynth/internal/telemetry"
)

// defaultQueueDepth bounds how many unclaimed replies a queue holds before
// the oldest is dropped.
const defaultQueueDepth = 64

// Preprocessor transforms the raw argument list of an inbound reply before it
// is enqueued, e.g. unwrapping a single value or decoding a trailing blob.
type Preprocessor func(args []interface{}) interface{}

// MessageQueue is a FIFO of decoded replies for exactly one reply address.
//
// The queue tracks how many pending replies belong to fire-and-forget
// requests: Skip is called when a request is sent without awaiting its reply,
// and the next Get discards that many deliveries before returning one. This
// keeps the queue aligned with the number of outstanding requests even when
// synchronous and asynchronous sends are interleaved.
type MessageQueue struct {
	addr       string
	preprocess Preprocessor
	log        *zap.Logger

	items chan interface{}

	mu    sync.Mutex
	skips int
}

// NewMessageQueue returns a queue bound to the given reply address.
// preprocess may be nil.
func NewMessageQueue(addr string, preprocess Preprocessor, log *zap.Logger) *MessageQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageQueue{
		addr:       addr,
		preprocess: preprocess,
		log:        log,
		items:      make(chan interface{}, defaultQueueDepth),
	}
}

// Addr returns the reply address this queue is bound to.
func (q *MessageQueue) Addr() string { return q.addr }

// Put preprocesses and enqueues one inbound reply. If the queue is full the
// oldest entry is dropped.
func (q *MessageQueue) Put(args []interface{}) {
	var v interface{}
	if q.preprocess != nil {
		v = q.preprocess(args)
	} else {
		v = args
	}

	for {
		select {
		case q.items <- v:
			return
		default:
		}
		select {
		case old := <-q.items:
			q.log.Warn("reply queue full, dropping oldest",
				zap.String("address", q.addr), zap.Any("dropped", old))
		default:
		}
	}
}

// Skip records that one pending request on this address will never be
// awaited, so its reply must not be handed to a later synchronous caller.
func (q *MessageQueue) Skip() {
	q.mu.Lock()
	q.skips++
	q.mu.Unlock()
	telemetry.SkippedReplies.Inc()
}

// Skips returns the current skip count.
func (q *MessageQueue) Skips() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.skips
}

// Get blocks up to timeout for the next reply, first discarding as many
// deliveries as Skip has recorded. Each discard is logged: it means a
// fire-and-forget request's reply arrived and was never claimed.
func (q *MessageQueue) Get(timeout time.Duration) (interface{}, error) {
	q.mu.Lock()
	pending := q.skips
	q.skips = 0
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case v := <-q.items:
			if pending > 0 {
				pending--
				q.log.Warn("discarding unclaimed reply",
					zap.String("address", q.addr), zap.Any("value", v))
				continue
			}
			return v, nil

		case <-timer.C:
			// Hand unconsumed skips back so the accounting survives
			// the timeout.
			if pending > 0 {
				q.mu.Lock()
				q.skips += pending
				q.mu.Unlock()
			}
			telemetry.ReplyTimeouts.Inc()
			return nil, ErrTimeout
		}
	}
}

// GetRaw is Get without skip accounting. It hands out the next queued reply
// no matter whom it was meant for.
func (q *MessageQueue) GetRaw(timeout time.Duration) (interface{}, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-q.items:
		return v, nil
	case <-timer.C:
		telemetry.ReplyTimeouts.Inc()
		return nil, ErrTimeout
	}
}

// TryGet returns the next queued reply without blocking, or false.
func (q *MessageQueue) TryGet() (interface{}, bool) {
	select {
	case v := <-q.items:
		return v, true
	default:
		return nil, false
	}
}

// MessageQueueCollection fans a single first-level reply address (the /done
// and /fail namespaces) out into per-command sub-queues, created lazily the
// first time a sub-address is seen.
type MessageQueueCollection struct {
	addr string
	log  *zap.Logger

	mu     sync.Mutex
	queues map[string]*MessageQueue
}

// NewMessageQueueCollection returns a collection for the given first-level
// address.
func NewMessageQueueCollection(addr string, log *zap.Logger) *MessageQueueCollection {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageQueueCollection{
		addr:   addr,
		log:    log,
		queues: make(map[string]*MessageQueue),
	}
}

// Addr returns the first-level address this collection fans out.
func (c *MessageQueueCollection) Addr() string { return c.addr }

// Queue returns the sub-queue for the given secondary address, creating it if
// needed.
func (c *MessageQueueCollection) Queue(sub string) *MessageQueue {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[sub]
	if !ok {
		q = NewMessageQueue(c.addr+" "+sub, nil, c.log)
		c.queues[sub] = q
	}
	return q
}

// Put routes one inbound reply to the sub-queue named by its secondary
// address.
func (c *MessageQueueCollection) Put(sub string, args []interface{}) {
	c.Queue(sub).Put(args)
}
