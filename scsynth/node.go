package scsynth

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chabad360/go-scsynth/osc"
)

// NodeState is the lifecycle state of a server node as observed through
// notifications.
type NodeState int32

const (
	// StatePending means the creation command was sent but /n_go has not
	// arrived yet.
	StatePending NodeState = iota
	// StateLive means the node exists and is running on the server.
	StateLive
	// StatePaused means the node exists but execution is suspended.
	StatePaused
	// StateFreed is terminal: the server reported the node gone.
	StateFreed
)

func (s NodeState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLive:
		return "live"
	case StatePaused:
		return "paused"
	case StateFreed:
		return "freed"
	default:
		return "state(invalid)"
	}
}

// Node is the client-side handle for one server node, synth or group. Its
// state mirrors the server's notifications; commands only record intent.
type Node struct {
	client  *Client
	id      int32
	isGroup bool

	mu    sync.Mutex
	state NodeState
	group int32
	// freeIntent records that we asked for the node's death. The node is
	// only Freed once the server confirms with /n_end.
	freeIntent bool

	started chan struct{}
	ended   chan struct{}
	onFree  func()
}

func newNode(c *Client, id int32, isGroup bool, group int32) *Node {
	return &Node{
		client:  c,
		id:      id,
		isGroup: isGroup,
		group:   group,
		started: make(chan struct{}),
		ended:   make(chan struct{}),
	}
}

// ID returns the server node id.
func (n *Node) ID() int32 { return n.id }

// IsGroup reports whether this node is a group.
func (n *Node) IsGroup() bool { return n.isGroup }

// State returns the last state reported by the server.
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Group returns the id of the group the server last reported as this node's
// parent.
func (n *Node) Group() int32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.group
}

// FreeRequested reports whether Free has been called, regardless of whether
// the server has confirmed.
func (n *Node) FreeRequested() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.freeIntent
}

// OnFree registers a callback invoked once when the server confirms the
// node's death. It runs on the receive goroutine and must not block.
func (n *Node) OnFree(fn func()) {
	n.mu.Lock()
	n.onFree = fn
	n.mu.Unlock()
}

// WaitStart blocks until the server confirms the node's creation with /n_go.
func (n *Node) WaitStart(timeout time.Duration) error {
	select {
	case <-n.started:
		return nil
	case <-n.ended:
		return &NotReadyError{ID: n.id, Reason: "ended before starting"}
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// WaitEnd blocks until the server confirms the node's death with /n_end.
func (n *Node) WaitEnd(timeout time.Duration) error {
	select {
	case <-n.ended:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// checkAlive fails for nodes the server already reported gone.
func (n *Node) checkAlive() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateFreed {
		return &NotReadyError{ID: n.id, Reason: "is freed"}
	}
	return nil
}

// Free asks the server to remove the node. The handle stays usable for
// waiting until /n_end confirms.
func (n *Node) Free() error {
	if err := n.checkAlive(); err != nil {
		return err
	}
	n.mu.Lock()
	n.freeIntent = true
	n.mu.Unlock()
	return n.client.Send(osc.NewMessage(cmdNodeFree, n.id))
}

// Run resumes (true) or pauses (false) the node.
func (n *Node) Run(running bool) error {
	if err := n.checkAlive(); err != nil {
		return err
	}
	flag := int32(0)
	if running {
		flag = 1
	}
	return n.client.Send(osc.NewMessage(cmdNodeRun, n.id, flag))
}

// Set assigns control values on the node. Controls may be named by string or
// by int32 index.
func (n *Node) Set(controls map[string]float32) error {
	if err := n.checkAlive(); err != nil {
		return err
	}
	msg := osc.NewMessage(cmdNodeSet, n.id)
	for name, value := range controls {
		msg.Append(name, value)
	}
	return n.client.Send(msg)
}

// Move reorders the node relative to target. AddReplace is not a valid move
// action.
func (n *Node) Move(action AddAction, target int32) error {
	if action == AddReplace {
		return &NotReadyError{ID: n.id, Reason: "cannot be moved with the replace action"}
	}
	if err := n.checkAlive(); err != nil {
		return err
	}
	return n.client.Send(osc.NewMessage(cmdNodeOrder, int32(action), target, n.id))
}

// Query asks the server for the node's current placement and returns the raw
// /n_info arguments.
func (n *Node) Query(timeout time.Duration) ([]interface{}, error) {
	v, err := n.client.SendAwait(osc.NewMessage(cmdNodeQuery, n.id), timeout)
	if err != nil {
		return nil, err
	}
	args, _ := v.([]interface{})
	return args, nil
}

// NodeRegistry tracks every node handle created through one client and keeps
// their states aligned with the server's notification stream. Handles are
// held explicitly until Release is called or the server reuses a terminal id.
type NodeRegistry struct {
	client       *Client
	defaultGroup int32

	mu    sync.Mutex
	nodes map[int32]*Node
}

func newNodeRegistry(c *Client, defaultGroup int32) *NodeRegistry {
	r := &NodeRegistry{
		client:       c,
		defaultGroup: defaultGroup,
		nodes:        make(map[int32]*Node),
	}

	c.Handle(notifyNodeGo, r.onGo)
	c.Handle(notifyNodeEnd, r.onEnd)
	c.Handle(notifyNodeOn, func(_ string, args []interface{}) { r.onRun(args, StateLive) })
	c.Handle(notifyNodeOff, func(_ string, args []interface{}) { r.onRun(args, StatePaused) })
	c.Handle(notifyNodeMove, r.onMove)

	return r
}

// DefaultGroup returns the group new nodes target when none is given.
func (r *NodeRegistry) DefaultGroup() int32 { return r.defaultGroup }

// Lookup returns the handle registered for the given id.
func (r *NodeRegistry) Lookup(id int32) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	return n, ok
}

// LookupKind returns the handle for id, failing with a KindMismatchError
// when the tracked node's kind differs from the requested one.
func (r *NodeRegistry) LookupKind(id int32, wantGroup bool) (*Node, error) {
	n, ok := r.Lookup(id)
	if !ok {
		return nil, &NotReadyError{ID: id, Reason: "is not tracked"}
	}
	if n.isGroup != wantGroup {
		return nil, &KindMismatchError{ID: id, WantGroup: wantGroup}
	}
	return n, nil
}

// Release drops the handle for the given id. The server-side node is
// untouched.
func (r *NodeRegistry) Release(id int32) {
	r.mu.Lock()
	delete(r.nodes, id)
	r.mu.Unlock()
}

// Len returns the number of tracked handles.
func (r *NodeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// register installs a fresh Pending handle. A leftover handle in a terminal
// state is replaced; a live one is a caller error and is replaced with a
// warning, since the server is the authority on id liveness.
func (r *NodeRegistry) register(n *Node) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.nodes[n.id]; ok {
		old.mu.Lock()
		terminal := old.state == StateFreed
		old.mu.Unlock()
		if !terminal {
			r.client.log.Warn("replacing non-terminal node handle",
				zap.Int32("id", n.id), zap.String("state", old.State().String()))
		}
	}
	r.nodes[n.id] = n
}

// inferGroup derives the parent group a new node will land in from its add
// action and target, so the handle has a sensible cached group before the
// server confirms.
func (r *NodeRegistry) inferGroup(action AddAction, target int32) int32 {
	switch action {
	case AddToHead, AddToTail:
		return target
	case AddBefore, AddAfter, AddReplace:
		if sibling, ok := r.Lookup(target); ok {
			return sibling.Group()
		}
		r.client.log.Warn("untracked sibling target, assuming default group",
			zap.Int32("target", target), zap.String("action", action.String()))
		return r.defaultGroup
	default:
		return r.defaultGroup
	}
}

// nodeArgs decodes the common notification prefix: node id, parent group,
// previous and next sibling, group flag.
func nodeArgs(args []interface{}) (id, parent int32, isGroup bool, ok bool) {
	if len(args) < 5 {
		return 0, 0, false, false
	}
	id, iok := args[0].(int32)
	parent, pok := args[1].(int32)
	flag, fok := args[4].(int32)
	return id, parent, flag == 1, iok && pok && fok
}

func (r *NodeRegistry) onGo(_ string, args []interface{}) {
	id, parent, isGroup, ok := nodeArgs(args)
	if !ok {
		r.client.log.Warn("malformed /n_go", zap.Any("args", args))
		return
	}

	r.mu.Lock()
	n, tracked := r.nodes[id]
	if tracked {
		n.mu.Lock()
		if n.state == StateFreed {
			// The server reused a terminal id. The old handle is dead
			// weight; track the reincarnation with a fresh one.
			n.mu.Unlock()
			n = newNode(r.client, id, isGroup, parent)
			r.nodes[id] = n
			n.mu.Lock()
		}
		if n.isGroup != isGroup {
			r.client.log.Error("node kind mismatch",
				zap.Int32("id", id),
				zap.Bool("expected_group", n.isGroup),
				zap.Bool("server_group", isGroup))
		}
		n.state = StateLive
		n.group = parent
		select {
		case <-n.started:
		default:
			close(n.started)
		}
		n.mu.Unlock()
	}
	r.mu.Unlock()

	if !tracked {
		r.client.log.Debug("untracked node started", zap.Int32("id", id))
	}
}

func (r *NodeRegistry) onEnd(_ string, args []interface{}) {
	id, _, _, ok := nodeArgs(args)
	if !ok {
		r.client.log.Warn("malformed /n_end", zap.Any("args", args))
		return
	}

	n, tracked := r.Lookup(id)
	if !tracked {
		r.client.log.Debug("untracked node ended", zap.Int32("id", id))
		return
	}

	n.mu.Lock()
	wasIntended := n.freeIntent
	alreadyEnded := n.state == StateFreed
	n.state = StateFreed
	n.group = 0
	fn := n.onFree
	select {
	case <-n.ended:
	default:
		close(n.ended)
	}
	n.mu.Unlock()

	if !wasIntended {
		r.client.log.Info("node ended on its own", zap.Int32("id", id))
	}
	if fn != nil && !alreadyEnded {
		fn()
	}
}

func (r *NodeRegistry) onRun(args []interface{}, state NodeState) {
	id, parent, _, ok := nodeArgs(args)
	if !ok {
		r.client.log.Warn("malformed run notification", zap.Any("args", args))
		return
	}

	if n, tracked := r.Lookup(id); tracked {
		n.mu.Lock()
		if n.state != StateFreed {
			n.state = state
			n.group = parent
		}
		n.mu.Unlock()
	}
}

// onMove only refreshes the cached parent group; run state is untouched.
func (r *NodeRegistry) onMove(_ string, args []interface{}) {
	id, parent, _, ok := nodeArgs(args)
	if !ok {
		r.client.log.Warn("malformed /n_move", zap.Any("args", args))
		return
	}

	if n, tracked := r.Lookup(id); tracked {
		n.mu.Lock()
		if n.state != StateFreed {
			n.group = parent
		}
		n.mu.Unlock()
	}
}
