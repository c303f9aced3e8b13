package scsynth

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/go-scsynth/osc"
)

// Group is the handle for a group node. Its child list is a cache, refreshed
// only by QueryTree.
type Group struct {
	*Node

	childMu  sync.Mutex
	children []int32
}

// Children returns the direct child ids cached by the last QueryTree.
func (g *Group) Children() []int32 {
	g.childMu.Lock()
	defer g.childMu.Unlock()
	out := make([]int32, len(g.children))
	copy(out, g.children)
	return out
}

// NewGroup creates a group on the server and returns its Pending handle.
func (c *Client) NewGroup(action AddAction, target int32) (*Group, error) {
	id := c.NextNodeID()
	n := newNode(c, id, true, c.nodes.inferGroup(action, target))
	c.nodes.register(n)

	if err := c.Send(osc.NewMessage(cmdGroupNew, id, int32(action), target)); err != nil {
		c.nodes.Release(id)
		return nil, err
	}
	return &Group{Node: n}, nil
}

// GroupByID returns an untracked handle for a group that already exists on
// the server, assumed live. Notifications for it are not followed.
func (c *Client) GroupByID(id int32) *Group {
	n := newNode(c, id, true, 0)
	n.state = StateLive
	close(n.started)
	return &Group{Node: n}
}

// DefaultGroup returns an untracked handle for the server's default group.
func (c *Client) DefaultGroup() *Group {
	return c.GroupByID(c.nodes.DefaultGroup())
}

// FreeAll frees every node inside the group. The group itself survives.
func (g *Group) FreeAll() error {
	if err := g.checkAlive(); err != nil {
		return err
	}
	return g.client.Send(osc.NewMessage(cmdGroupFreeAll, g.id))
}

// DeepFree frees every synth in the group's subtree, leaving the nested
// group structure intact.
func (g *Group) DeepFree() error {
	if err := g.checkAlive(); err != nil {
		return err
	}
	return g.client.Send(osc.NewMessage(cmdGroupDeepFree, g.id))
}

// TreeNode is one node in a decoded /g_queryTree.reply.
type TreeNode struct {
	ID       int32
	IsGroup  bool
	DefName  string
	Controls map[string]interface{}
	Children []*TreeNode
}

// QueryTree fetches the group's subtree from the server. With
// includeControls set, each synth carries its current control values, keyed
// by name or stringified index.
func (g *Group) QueryTree(includeControls bool, timeout time.Duration) (*TreeNode, error) {
	flag := int32(0)
	if includeControls {
		flag = 1
	}
	v, err := g.client.SendAwait(osc.NewMessage(cmdGroupQueryTree, g.id, flag), timeout)
	if err != nil {
		return nil, err
	}
	args, _ := v.([]interface{})
	tree, err := parseTree(args)
	if err != nil {
		return nil, err
	}

	g.client.nodes.tagFromTree(g.Group(), tree)

	if tree.ID == g.id {
		ids := make([]int32, 0, len(tree.Children))
		for _, child := range tree.Children {
			ids = append(ids, child.ID)
		}
		g.childMu.Lock()
		g.children = ids
		g.childMu.Unlock()
	}
	return tree, nil
}

// tagFromTree refreshes the cached parent group of every tracked node that
// appears in a queried subtree.
func (r *NodeRegistry) tagFromTree(parent int32, tn *TreeNode) {
	if n, ok := r.Lookup(tn.ID); ok {
		n.mu.Lock()
		if n.state != StateFreed {
			n.group = parent
		}
		n.mu.Unlock()
	}
	for _, child := range tn.Children {
		r.tagFromTree(tn.ID, child)
	}
}

// parseTree decodes the /g_queryTree.reply argument list: a controls flag,
// then a preorder walk where each group states its child count and each
// synth states -1 followed by its synthdef name.
func parseTree(args []interface{}) (*TreeNode, error) {
	c := &treeCursor{args: args}

	withControls, err := c.int32()
	if err != nil {
		return nil, errors.Wrap(err, "reading controls flag")
	}

	root, err := c.node(withControls == 1)
	if err != nil {
		return nil, err
	}
	if c.pos != len(c.args) {
		return nil, errors.Errorf("scsynth: %d trailing tree arguments", len(c.args)-c.pos)
	}
	return root, nil
}

type treeCursor struct {
	args []interface{}
	pos  int
}

func (c *treeCursor) next() (interface{}, error) {
	if c.pos >= len(c.args) {
		return nil, errors.New("scsynth: truncated tree reply")
	}
	v := c.args[c.pos]
	c.pos++
	return v, nil
}

func (c *treeCursor) int32() (int32, error) {
	v, err := c.next()
	if err != nil {
		return 0, err
	}
	i, ok := v.(int32)
	if !ok {
		return 0, errors.Errorf("scsynth: tree reply: want int32, got %T", v)
	}
	return i, nil
}

func (c *treeCursor) string() (string, error) {
	v, err := c.next()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("scsynth: tree reply: want string, got %T", v)
	}
	return s, nil
}

func (c *treeCursor) node(withControls bool) (*TreeNode, error) {
	id, err := c.int32()
	if err != nil {
		return nil, err
	}
	count, err := c.int32()
	if err != nil {
		return nil, err
	}

	n := &TreeNode{ID: id}

	if count >= 0 {
		n.IsGroup = true
		n.Children = make([]*TreeNode, 0, count)
		for i := int32(0); i < count; i++ {
			child, err := c.node(withControls)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	}

	// A synth: -1 child count, then the synthdef name.
	if n.DefName, err = c.string(); err != nil {
		return nil, err
	}
	if !withControls {
		return n, nil
	}

	numControls, err := c.int32()
	if err != nil {
		return nil, err
	}
	n.Controls = make(map[string]interface{}, numControls)
	for i := int32(0); i < numControls; i++ {
		key, err := c.next()
		if err != nil {
			return nil, err
		}
		value, err := c.next()
		if err != nil {
			return nil, err
		}
		n.Controls[controlKey(key)] = value
	}
	return n, nil
}

// controlKey normalizes a control's name-or-index to a map key.
func controlKey(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int32:
		return strconv.Itoa(int(t))
	default:
		return "?"
	}
}
