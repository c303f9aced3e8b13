package scsynth

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chabad360/go-scsynth/internal/telemetry"
)

const (
	// defaultQuantum bounds how long the worker sleeps between looks at the
	// queue head even when nothing is due.
	defaultQuantum = 5 * time.Millisecond
	// defaultDropAfter is how far past due an action may run before it is
	// dropped instead.
	defaultDropAfter = time.Second
)

// SchedulerOptions configures a TimedQueue.
type SchedulerOptions struct {
	// Quantum is the worker's idle wake interval. Defaults to 5ms.
	Quantum time.Duration
	// DropAfter drops actions that come due later than this past their
	// scheduled time. Zero means the default of 1s; negative disables
	// dropping entirely.
	DropAfter time.Duration
	// Spawn runs every action in its own goroutine instead of inline on the
	// worker. Individual actions can opt in with AddSpawned instead.
	Spawn bool
	// Logger receives structured logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

type timedEntry struct {
	at    time.Time
	fn    func()
	spawn bool
}

// TimedQueue executes functions at scheduled wall-clock times, in time order.
// Actions run on a single worker goroutine unless spawned, so an inline
// action that blocks delays those behind it.
type TimedQueue struct {
	opts SchedulerOptions
	log  *zap.Logger

	mu      sync.Mutex
	entries []timedEntry
	idle    *sync.Cond
	running bool
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewTimedQueue starts a timed queue and its worker.
func NewTimedQueue(opts SchedulerOptions) *TimedQueue {
	if opts.Quantum <= 0 {
		opts.Quantum = defaultQuantum
	}
	if opts.DropAfter == 0 {
		opts.DropAfter = defaultDropAfter
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	q := &TimedQueue{
		opts: opts,
		log:  opts.Logger,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)

	q.wg.Add(1)
	go q.run()
	return q
}

// Add schedules fn to run at the given time. Times in the past run on the
// worker's next pass, subject to the drop threshold.
func (q *TimedQueue) Add(at time.Time, fn func()) {
	q.add(at, fn, false)
}

// AddSpawned schedules fn like Add, but runs it in its own goroutine so it
// may block without stalling the actions behind it.
func (q *TimedQueue) AddSpawned(at time.Time, fn func()) {
	q.add(at, fn, true)
}

// AddAfter schedules fn to run dt from now.
func (q *TimedQueue) AddAfter(dt time.Duration, fn func()) {
	q.Add(time.Now().Add(dt), fn)
}

func (q *TimedQueue) add(at time.Time, fn func(), spawn bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Warn("dropping action scheduled after close")
		return
	}

	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].at.After(at)
	})
	q.entries = append(q.entries, timedEntry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = timedEntry{at: at, fn: fn, spawn: spawn}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of pending actions.
func (q *TimedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Join blocks until the queue drains, then stops the worker. Inline actions
// have fully returned by then; spawned ones may still be in flight.
func (q *TimedQueue) Join() {
	q.mu.Lock()
	for (len(q.entries) > 0 || q.running) && !q.closed {
		q.idle.Wait()
	}
	q.mu.Unlock()
	q.Close()
}

// Close stops the worker. Pending actions are discarded.
func (q *TimedQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := len(q.entries)
	q.entries = nil
	q.idle.Broadcast()
	q.mu.Unlock()

	if dropped > 0 {
		q.log.Debug("discarding pending actions on close", zap.Int("count", dropped))
	}
	close(q.done)
	q.wg.Wait()
}

func (q *TimedQueue) run() {
	defer q.wg.Done()

	timer := time.NewTimer(q.opts.Quantum)
	defer timer.Stop()

	for {
		wait := q.dispatchDue()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-q.done:
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// dispatchDue runs every due action and returns how long to sleep until the
// next one, capped at the quantum.
func (q *TimedQueue) dispatchDue() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.entries) == 0 {
			q.idle.Broadcast()
			return q.opts.Quantum
		}

		now := time.Now()
		e := q.entries[0]
		if d := e.at.Sub(now); d > 0 {
			if d < q.opts.Quantum {
				return d
			}
			return q.opts.Quantum
		}

		q.entries = q.entries[1:]

		if late := now.Sub(e.at); q.opts.DropAfter > 0 && late > q.opts.DropAfter {
			telemetry.ScheduleDrops.Inc()
			q.log.Warn("dropping late action", zap.Duration("late", late))
			continue
		}

		if q.opts.Spawn || e.spawn {
			go e.fn()
			continue
		}

		// Run inline without holding the lock so actions may Add. Join
		// watches the running flag so it cannot observe an empty queue
		// while the last action is still executing.
		q.running = true
		q.mu.Unlock()
		e.fn()
		q.mu.Lock()
		q.running = false
	}
}
