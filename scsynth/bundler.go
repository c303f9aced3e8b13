package scsynth

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/go-scsynth/osc"
)

// RelativeTimeThreshold separates relative from absolute bundle timestamps:
// a timestamp at or below it is an offset in seconds added to "now" at build
// time, anything above it is taken verbatim as epoch seconds.
const RelativeTimeThreshold = 1e6

// Bundler composes messages and sub-bundlers into a nested OSC bundle with
// relative or absolute execution times. Relative timestamps are resolved
// against a single wall-clock reading taken once at build time, no matter how
// long the Bundler sat unbuilt or how deeply it is nested, so the relative
// order of its contents is always preserved.
type Bundler struct {
	client    *Client
	timestamp float64
	offset    float64
	entries   []bundlerEntry
}

type bundlerEntry struct {
	at  float64
	msg *osc.Message
	sub *Bundler
}

// NewBundler returns a free-standing Bundler with the given timestamp. Use
// Client.NewBundler when the bundle should be sendable.
func NewBundler(timestamp float64) *Bundler {
	return &Bundler{timestamp: timestamp}
}

// NewBundler returns a Bundler bound to this client.
func (c *Client) NewBundler(timestamp float64) *Bundler {
	return &Bundler{client: c, timestamp: timestamp}
}

// Add appends a message at the current accumulated wait offset.
func (b *Bundler) Add(msg *osc.Message) *Bundler {
	b.entries = append(b.entries, bundlerEntry{at: b.offset, msg: msg})
	return b
}

// AddAt appends a message at the given time: an offset relative to this
// bundler if at or below the threshold, absolute epoch seconds otherwise.
// Relative times are shifted by the accumulated wait offset.
func (b *Bundler) AddAt(t float64, msg *osc.Message) *Bundler {
	if t <= RelativeTimeThreshold {
		t += b.offset
	}
	b.entries = append(b.entries, bundlerEntry{at: t, msg: msg})
	return b
}

// AddMessage builds a message from the address and arguments and appends it
// at the given time, like AddAt.
func (b *Bundler) AddMessage(t float64, addr string, args ...interface{}) *Bundler {
	return b.AddAt(t, osc.NewMessage(addr, args...))
}

// AddBundler deep-copies the given bundler and appends it. A relative
// timestamp on the copy is shifted by the accumulated wait offset.
func (b *Bundler) AddBundler(sub *Bundler) *Bundler {
	cp := sub.copy()
	if cp.timestamp <= RelativeTimeThreshold {
		cp.timestamp += b.offset
	}
	b.entries = append(b.entries, bundlerEntry{at: cp.timestamp, sub: cp})
	return b
}

// Wait increases the offset applied to subsequently added relative entries:
// "these messages happen now, those happen dt later" without computing
// absolute times by hand.
func (b *Bundler) Wait(dt float64) *Bundler {
	b.offset += dt
	return b
}

// copy returns a deep copy, detached from any client scope state.
func (b *Bundler) copy() *Bundler {
	cp := &Bundler{
		client:    b.client,
		timestamp: b.timestamp,
		offset:    b.offset,
		entries:   make([]bundlerEntry, len(b.entries)),
	}
	for i, e := range b.entries {
		cp.entries[i] = e
		if e.sub != nil {
			cp.entries[i].sub = e.sub.copy()
		}
	}
	return cp
}

// Build resolves every relative timestamp against the current wall clock,
// read exactly once, and returns the wire bundle.
func (b *Bundler) Build() (*osc.Bundle, error) {
	return b.BuildAt(epochNow())
}

// BuildAt is Build with an explicit "now", in epoch seconds.
func (b *Bundler) BuildAt(now float64) (*osc.Bundle, error) {
	return b.build(now)
}

func (b *Bundler) build(parent float64) (*osc.Bundle, error) {
	abs := resolveTime(b.timestamp, parent)
	bundle := &osc.Bundle{Timetag: osc.NewTimetagFromEpoch(abs)}

	for _, e := range b.entries {
		switch {
		case e.sub != nil:
			sub, err := e.sub.build(abs)
			if err != nil {
				return nil, err
			}
			if err := bundle.Append(sub); err != nil {
				return nil, err
			}

		case e.msg != nil:
			at := resolveTime(e.at, abs)
			if at == abs {
				if err := bundle.Append(e.msg); err != nil {
					return nil, err
				}
				continue
			}
			sub := &osc.Bundle{Timetag: osc.NewTimetagFromEpoch(at)}
			if err := sub.Append(e.msg); err != nil {
				return nil, err
			}
			if err := bundle.Append(sub); err != nil {
				return nil, err
			}

		default:
			return nil, errors.New("scsynth: empty bundler entry")
		}
	}

	return bundle, nil
}

// Send builds the bundle and transmits it through the bound client.
func (b *Bundler) Send() error {
	if b.client == nil {
		return errors.New("scsynth: bundler is not bound to a client")
	}
	bundle, err := b.Build()
	if err != nil {
		return err
	}
	return b.client.SendBundle(bundle)
}

// Nest runs fn against a child bundler offset dt from this one. While fn
// runs inside an active bundling scope, sends through the client are
// redirected into the child.
func (b *Bundler) Nest(dt float64, fn func(*Bundler) error) error {
	child := &Bundler{client: b.client, timestamp: dt}

	var bc *bundleContext
	if b.client != nil {
		bc = b.client.bundling
		if bc.current() == b {
			bc.push(child)
			defer bc.pop(child)
		} else {
			bc = nil
		}
	}

	if err := fn(child); err != nil {
		return err
	}
	b.AddBundler(child)
	return nil
}

// resolveTime turns a possibly-relative timestamp into absolute epoch
// seconds.
func resolveTime(ts, parent float64) float64 {
	if ts <= RelativeTimeThreshold {
		return parent + ts
	}
	return ts
}

// epochNow returns the wall clock as epoch seconds.
func epochNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// bundleContext is the per-client bundling state: a semaphore held by the
// root scope so only one caller composes at a time, and the shared stack
// that Client.Send consults for redirection.
type bundleContext struct {
	sem chan struct{}

	mu    sync.Mutex
	stack []*Bundler
}

func newBundleContext() *bundleContext {
	return &bundleContext{sem: make(chan struct{}, 1)}
}

func (bc *bundleContext) current() *Bundler {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if len(bc.stack) == 0 {
		return nil
	}
	return bc.stack[len(bc.stack)-1]
}

func (bc *bundleContext) push(b *Bundler) {
	bc.mu.Lock()
	bc.stack = append(bc.stack, b)
	bc.mu.Unlock()
}

// pop removes the top of the stack, verifying it is the bundler the caller
// is exiting. A mismatch means the composition state is corrupted and there
// is nothing sensible to repair.
func (bc *bundleContext) pop(b *Bundler) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if len(bc.stack) == 0 || bc.stack[len(bc.stack)-1] != b {
		panic("scsynth: bundling scope exited out of order")
	}
	bc.stack = bc.stack[:len(bc.stack)-1]
}

// BundleScope composes and sends one bundle: it acquires the client's
// composition semaphore, redirects every Client.Send inside fn into the
// bundler, and transmits the built bundle when fn returns nil. An error from
// fn aborts the send.
func (c *Client) BundleScope(timestamp float64, fn func(*Bundler) error) error {
	b := c.NewBundler(timestamp)

	c.bundling.sem <- struct{}{}
	c.bundling.push(b)

	err := func() error {
		defer func() {
			c.bundling.pop(b)
			<-c.bundling.sem
		}()
		return fn(b)
	}()
	if err != nil {
		return err
	}

	return b.Send()
}
