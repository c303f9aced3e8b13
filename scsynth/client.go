package scsynth

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chabad360/go-scsynth/internal/telemetry"
	"github.com/chabad360/go-scsynth/osc"
)

// Default resource pool sizes, matching a stock scsynth configuration.
const (
	defaultMaxClients    = 8
	defaultReplyTimeout  = 5 * time.Second
	numBuffers           = 1024
	numControlBuses      = 16384
	numAudioBuses        = 1024
	firstPrivateAudioBus = 16 // buses 0..15 map to hardware channels
	defaultGroupID       = 1
)

// Options configures a Client.
type Options struct {
	// Addr is the scsynth UDP address, host:port.
	Addr string
	// ClientID is this client's index in the server's client table. It
	// determines the node id and bus/buffer partitions, so no two
	// concurrent clients may share one.
	ClientID int32
	// MaxClients is the number of concurrent clients the resource pools
	// are divided across. Defaults to 8.
	MaxClients int32
	// ReplyTimeout bounds synchronous waits for replies. Defaults to 5s.
	ReplyTimeout time.Duration
	// Logger receives structured logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// HandlerFunc handles one inbound message on the receive goroutine. It must
// not block.
type HandlerFunc func(addr string, args []interface{})

type patternHandler struct {
	pattern string
	re      *regexp.Regexp
	fn      HandlerFunc
}

// Client is the communication endpoint for one scsynth server: it owns the
// UDP socket, the background receive loop, the reply queues, the bundling
// context, the id allocators, the node registry and the scheduler.
type Client struct {
	opts Options
	log  *zap.Logger
	conn *net.UDPConn

	mu       sync.RWMutex
	queues   map[string]*MessageQueue
	fanouts  map[string]*MessageQueueCollection
	handlers map[string][]HandlerFunc
	patterns []patternHandler

	bundling *bundleContext
	sched    *TimedQueue
	nodes    *NodeRegistry

	// Allocators are not thread-safe on their own; allocMu serializes
	// every access made through the client.
	allocMu      sync.Mutex
	nodeIDs      *NodeIDAllocator
	buffers      *BlockAllocator[int32]
	controlBuses *BlockAllocator[int32]
	audioBuses   *BlockAllocator[int32]

	syncID int32

	cancel    context.CancelFunc
	g         *errgroup.Group
	closeOnce sync.Once
	closed    chan struct{}
}

// Connect dials the server and starts the receive loop. The returned client
// must be closed when done.
func Connect(opts Options) (*Client, error) {
	if opts.MaxClients <= 0 {
		opts.MaxClients = defaultMaxClients
	}
	if opts.ClientID < 0 || opts.ClientID >= opts.MaxClients {
		return nil, errors.Errorf("scsynth: client id %d outside [0, %d)", opts.ClientID, opts.MaxClients)
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = defaultReplyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	raddr, err := net.ResolveUDPAddr("udp", opts.Addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolving server address")
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrap(err, "dialing server")
	}

	audioPer := (numAudioBuses - firstPrivateAudioBus) / opts.MaxClients

	c := &Client{
		opts:     opts,
		log:      opts.Logger,
		conn:     conn,
		queues:   make(map[string]*MessageQueue),
		fanouts:  make(map[string]*MessageQueueCollection),
		handlers: make(map[string][]HandlerFunc),
		bundling: newBundleContext(),
		closed:   make(chan struct{}),

		nodeIDs:      NewNodeIDAllocator(opts.ClientID),
		buffers:      NewPartitionedAllocator(opts.ClientID, opts.MaxClients, int32(numBuffers)),
		controlBuses: NewPartitionedAllocator(opts.ClientID, opts.MaxClients, int32(numControlBuses)),
		audioBuses:   NewBlockAllocator(firstPrivateAudioBus+opts.ClientID*audioPer, audioPer),
	}

	c.sched = NewTimedQueue(SchedulerOptions{Logger: c.log})
	c.registerReplyQueues()
	c.nodes = newNodeRegistry(c, defaultGroupID)

	c.Handle(replyLate, func(addr string, args []interface{}) {
		c.log.Warn("server reported late bundle", zap.Any("args", args))
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	c.g = g

	recv := make(chan osc.Packet, 128)
	g.Go(func() error { return c.read(gctx, recv) })
	g.Go(func() error { return c.dispatchLoop(gctx, recv) })

	return c, nil
}

// registerReplyQueues creates one queue per reply address in the pairing
// table and the fan-out collections for the shared /done and /fail
// namespaces.
func (c *Client) registerReplyQueues() {
	for _, spec := range replyAddresses {
		if spec.keyed {
			if _, ok := c.fanouts[spec.addr]; !ok {
				c.fanouts[spec.addr] = NewMessageQueueCollection(spec.addr, c.log)
			}
			continue
		}
		if _, ok := c.queues[spec.addr]; !ok {
			var pre Preprocessor
			if spec.addr == replyStatus {
				// /status.reply leads with a constant 1.
				pre = func(args []interface{}) interface{} {
					if len(args) > 0 {
						if v, ok := args[0].(int32); ok && v == 1 {
							return args[1:]
						}
					}
					return args
				}
			}
			c.queues[spec.addr] = NewMessageQueue(spec.addr, pre, c.log)
		}
	}
	c.fanouts[replyFail] = NewMessageQueueCollection(replyFail, c.log)
}

// Close tears down the socket, the receive loop and the scheduler. Pending
// waiters time out on their own.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
		err = c.conn.Close()
		if gerr := c.g.Wait(); gerr != nil && err == nil {
			err = gerr
		}
		c.sched.Close()
	})
	return err
}

// Addr returns the remote server address.
func (c *Client) Addr() net.Addr { return c.conn.RemoteAddr() }

// ClientID returns this client's index in the server's client table.
func (c *Client) ClientID() int32 { return c.opts.ClientID }

// Nodes returns the registry of live node handles.
func (c *Client) Nodes() *NodeRegistry { return c.nodes }

// Scheduler returns the client's timed queue.
func (c *Client) Scheduler() *TimedQueue { return c.sched }

// Handle registers an exact-address handler, called on the receive goroutine.
func (c *Client) Handle(addr string, fn HandlerFunc) {
	c.mu.Lock()
	c.handlers[addr] = append(c.handlers[addr], fn)
	c.mu.Unlock()
}

// HandlePattern registers a handler for an OSC address pattern, consulted
// after exact matches.
func (c *Client) HandlePattern(pattern string, fn HandlerFunc) error {
	re, err := osc.CompilePattern(pattern)
	if err != nil {
		return errors.Wrapf(err, "compiling pattern %q", pattern)
	}
	c.mu.Lock()
	c.patterns = append(c.patterns, patternHandler{pattern: pattern, re: re, fn: fn})
	c.mu.Unlock()
	return nil
}

// Fails returns the queue of /fail notifications for the given command, so a
// caller can inspect the most recent failure reason. Failures are logged but
// never converted to errors automatically.
func (c *Client) Fails(cmd string) *MessageQueue {
	return c.fanouts[replyFail].Queue(cmd)
}

// replyQueueFor resolves the queue a command's reply arrives on.
func (c *Client) replyQueueFor(cmd string, spec replySpec) *MessageQueue {
	if spec.keyed {
		return c.fanouts[spec.addr].Queue(cmd)
	}
	return c.queues[spec.addr]
}

// Send transmits a message without waiting for a reply. Inside a bundling
// scope the message is redirected into the active bundler instead. If the
// command is known to produce a reply, the reply queue is marked skipped so a
// later synchronous call does not consume the stale value.
func (c *Client) Send(msg *osc.Message) error {
	if b := c.bundling.current(); b != nil {
		b.Add(msg)
		return nil
	}
	if spec, ok := replyAddresses[msg.Address]; ok {
		c.replyQueueFor(msg.Address, spec).Skip()
	}
	return c.write(msg)
}

// SendAwait transmits a message and blocks for its reply, bounded by timeout
// (or the client default when zero). A missing reply surfaces as a
// CommunicationError carrying the outgoing message.
func (c *Client) SendAwait(msg *osc.Message, timeout time.Duration) (interface{}, error) {
	spec, ok := replyAddresses[msg.Address]
	if !ok {
		return nil, errors.Errorf("scsynth: no reply defined for %s", msg.Address)
	}
	if c.bundling.current() != nil {
		return nil, errors.Errorf("scsynth: cannot await %s inside a bundling scope", msg.Address)
	}
	if timeout <= 0 {
		timeout = c.opts.ReplyTimeout
	}

	q := c.replyQueueFor(msg.Address, spec)
	if err := c.write(msg); err != nil {
		return nil, err
	}

	v, err := q.Get(timeout)
	if err != nil {
		return nil, &CommunicationError{Msg: msg, Err: err}
	}
	return v, nil
}

// awaitMatching sends msg and drains cmd's reply queue until match accepts a
// delivery, skipping replies meant for other requesters on the same shared
// address. match returns the decoded value, whether the delivery was its, and
// a decode error that aborts the wait.
func (c *Client) awaitMatching(cmd string, msg *osc.Message, timeout time.Duration,
	match func(args []interface{}) (interface{}, bool, error)) (interface{}, error) {

	spec, ok := replyAddresses[cmd]
	if !ok {
		return nil, errors.Errorf("scsynth: no reply defined for %s", cmd)
	}
	if c.bundling.current() != nil {
		return nil, errors.Errorf("scsynth: cannot await %s inside a bundling scope", cmd)
	}
	if timeout <= 0 {
		timeout = c.opts.ReplyTimeout
	}

	q := c.replyQueueFor(cmd, spec)
	if err := c.write(msg); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, &CommunicationError{Msg: msg, Err: ErrTimeout}
		}
		v, err := q.Get(remain)
		if err != nil {
			return nil, &CommunicationError{Msg: msg, Err: err}
		}
		args, _ := v.([]interface{})
		out, mine, err := match(args)
		if err != nil {
			return nil, err
		}
		if mine {
			return out, nil
		}
	}
}

// SendBundle transmits a wire bundle, bypassing any bundling scope.
func (c *Client) SendBundle(b *osc.Bundle) error {
	return c.write(b)
}

// SendAt schedules a message send at the given time via the client's timed
// queue.
func (c *Client) SendAt(at time.Time, msg *osc.Message) {
	c.sched.Add(at, func() {
		if err := c.write(msg); err != nil {
			c.log.Warn("scheduled send failed",
				zap.String("address", msg.Address), zap.Error(err))
		}
	})
}

// SendBundleAt schedules a bundle send at the given time.
func (c *Client) SendBundleAt(at time.Time, b *osc.Bundle) {
	c.sched.Add(at, func() {
		if err := c.write(b); err != nil {
			c.log.Warn("scheduled send failed", zap.Error(err))
		}
	})
}

func (c *Client) write(p osc.Packet) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return errors.Wrap(err, "writing datagram")
	}
	telemetry.PacketsSent.Inc()
	return nil
}

// read is the socket half of the receive loop: decode each datagram
// leniently and hand it to the dispatcher.
func (c *Client) read(ctx context.Context, recv chan<- osc.Packet) error {
	buf := make([]byte, osc.MaxPacketSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			telemetry.PacketsReceived.Inc()
			data := make([]byte, n)
			copy(data, buf[:n])

			p, perr := osc.ParseReply(data)
			if perr != nil {
				telemetry.DecodeErrors.Inc()
				c.log.Warn("dropping undecodable datagram",
					zap.Int("bytes", n), zap.Error(perr))
			} else {
				select {
				case recv <- p:
				case <-ctx.Done():
					return nil
				}
			}
		}
		if err != nil {
			select {
			case <-c.closed:
				return nil
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "reading datagram")
		}
	}
}

// dispatchLoop is the routing half of the receive loop. Queue deliveries and
// handlers run on this goroutine, in arrival order.
func (c *Client) dispatchLoop(ctx context.Context, recv <-chan osc.Packet) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-recv:
			c.dispatch(p)
		}
	}
}

// dispatch routes one decoded packet. Bundles stamped in the future are
// deferred through the timed queue; everything else is handled inline on the
// receive goroutine.
func (c *Client) dispatch(p osc.Packet) {
	switch t := p.(type) {
	case *osc.Message:
		c.route(t.Address, t.Arguments)

	case *osc.Bundle:
		if delay := t.Timetag.ExpiresIn(); delay > 0 {
			elems := t.Elements
			c.sched.Add(time.Now().Add(delay), func() {
				for _, e := range elems {
					c.dispatch(e)
				}
			})
			return
		}
		for _, e := range t.Elements {
			c.dispatch(e)
		}

	case *osc.List:
		c.log.Debug("dropping top-level list element", zap.Int("len", len(t.Elements)))

	case osc.Blob:
		c.log.Debug("dropping top-level blob element", zap.Int("bytes", len(t)))
	}
}

// route delivers one message by address: reply queue and fan-out first, then
// exact handlers, then pattern handlers.
func (c *Client) route(addr string, args []interface{}) {
	c.mu.RLock()
	q := c.queues[addr]
	col := c.fanouts[addr]
	handlers := c.handlers[addr]
	patterns := c.patterns
	c.mu.RUnlock()

	handled := false

	if q != nil {
		q.Put(args)
		handled = true
	}

	if col != nil {
		sub, _ := firstString(args)
		if sub == "" {
			c.log.Warn("notification without command tag", zap.String("address", addr))
		} else {
			if addr == replyFail {
				telemetry.ServerFailures.Inc()
				c.log.Warn("server failure",
					zap.String("command", sub), zap.Any("args", args[1:]))
			}
			col.Put(sub, args[1:])
			handled = true
		}
	}

	for _, h := range handlers {
		h(addr, args)
		handled = true
	}
	for _, ph := range patterns {
		if ph.re.MatchString(addr) {
			ph.fn(addr, args)
			handled = true
		}
	}

	if !handled {
		c.log.Debug("unhandled message", zap.String("address", addr), zap.Any("args", args))
	}
}

func firstString(args []interface{}) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(string)
	return s, ok
}

////
// Allocator access
////

// NextNodeID returns a fresh node id from this client's partition.
func (c *Client) NextNodeID() int32 {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	return c.nodeIDs.Allocate()
}

// AllocBuffers reserves n contiguous buffer numbers.
func (c *Client) AllocBuffers(n int) ([]int32, error) {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	return c.buffers.Allocate(n)
}

// FreeBuffers releases buffer numbers back to the pool.
func (c *Client) FreeBuffers(ids []int32) {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	c.buffers.Free(ids)
}

// AllocControlBuses reserves n contiguous control bus indices.
func (c *Client) AllocControlBuses(n int) ([]int32, error) {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	return c.controlBuses.Allocate(n)
}

// FreeControlBuses releases control bus indices back to the pool.
func (c *Client) FreeControlBuses(ids []int32) {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	c.controlBuses.Free(ids)
}

// AllocAudioBuses reserves n contiguous private audio bus indices.
func (c *Client) AllocAudioBuses(n int) ([]int32, error) {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	return c.audioBuses.Allocate(n)
}

// FreeAudioBuses releases audio bus indices back to the pool.
func (c *Client) FreeAudioBuses(ids []int32) {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	c.audioBuses.Free(ids)
}

////
// Server-level commands
////

// ServerStatus is the decoded /status.reply.
type ServerStatus struct {
	NumUgens     int32
	NumSynths    int32
	NumGroups    int32
	NumSynthdefs int32
	AvgCPU       float32
	PeakCPU      float32
	NominalSR    float64
	ActualSR     float64
}

// Status queries the server's load and object counts.
func (c *Client) Status(timeout time.Duration) (*ServerStatus, error) {
	v, err := c.SendAwait(osc.NewMessage(cmdStatus), timeout)
	if err != nil {
		return nil, err
	}
	args, ok := v.([]interface{})
	if !ok || len(args) < 8 {
		return nil, errors.Errorf("scsynth: malformed status reply: %v", v)
	}

	s := &ServerStatus{}
	s.NumUgens, _ = args[0].(int32)
	s.NumSynths, _ = args[1].(int32)
	s.NumGroups, _ = args[2].(int32)
	s.NumSynthdefs, _ = args[3].(int32)
	s.AvgCPU, _ = args[4].(float32)
	s.PeakCPU, _ = args[5].(float32)
	s.NominalSR, _ = args[6].(float64)
	s.ActualSR, _ = args[7].(float64)
	return s, nil
}

// Version returns the server's reported version line.
func (c *Client) Version(timeout time.Duration) (string, error) {
	v, err := c.SendAwait(osc.NewMessage(cmdVersion), timeout)
	if err != nil {
		return "", err
	}
	args, ok := v.([]interface{})
	if !ok || len(args) < 3 {
		return "", errors.Errorf("scsynth: malformed version reply: %v", v)
	}

	program, _ := args[0].(string)
	major, _ := args[1].(int32)
	minor, _ := args[2].(int32)
	patch := ""
	if len(args) > 3 {
		patch, _ = args[3].(string)
	}
	return fmt.Sprintf("%s %d.%d%s", program, major, minor, patch), nil
}

// Sync flushes the server's command queue: it returns once every
// asynchronous command issued before it has completed.
func (c *Client) Sync(timeout time.Duration) error {
	id := atomic.AddInt32(&c.syncID, 1)
	_, err := c.awaitMatching(cmdSync, osc.NewMessage(cmdSync, id), timeout,
		func(args []interface{}) (interface{}, bool, error) {
			// A /synced for an older sync keeps the drain going.
			if len(args) > 0 {
				if got, ok := args[0].(int32); ok && got == id {
					return nil, true, nil
				}
			}
			return nil, false, nil
		})
	return err
}

// NotifyEnable turns server notifications for this client on or off. Node
// state tracking depends on them.
func (c *Client) NotifyEnable(enable bool, timeout time.Duration) error {
	flag := int32(0)
	if enable {
		flag = 1
	}
	_, err := c.SendAwait(osc.NewMessage(cmdNotify, flag, c.opts.ClientID), timeout)
	return err
}

// DumpOSC sets the server's incoming-OSC dump mode.
func (c *Client) DumpOSC(mode int32) error {
	return c.Send(osc.NewMessage(cmdDumpOSC, mode))
}

// Quit asks the server to exit and closes the client.
func (c *Client) Quit(timeout time.Duration) error {
	if _, err := c.SendAwait(osc.NewMessage(cmdQuit), timeout); err != nil {
		return err
	}
	return c.Close()
}
