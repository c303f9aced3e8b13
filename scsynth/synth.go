package scsynth

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/go-scsynth/osc"
)

// Synth is the handle for a synth node.
type Synth struct {
	*Node
	defName  string
	controls map[string]ControlPort
}

// DefName returns the synthdef this synth was created from.
func (s *Synth) DefName() string { return s.defName }

// ControlPort is one named control of a synth, bound at construction. It
// reads through the server and writes through /n_set.
type ControlPort struct {
	synth *Synth
	name  string
}

// Name returns the control's name.
func (p ControlPort) Name() string { return p.name }

// Get reads the control's current value from the server.
func (p ControlPort) Get(timeout time.Duration) (float32, error) {
	return p.synth.Get(p.name, timeout)
}

// Set assigns the control.
func (p ControlPort) Set(value float32) error {
	return p.synth.Set(map[string]float32{p.name: value})
}

// Control looks the named control up in the capability table built at
// construction.
func (s *Synth) Control(name string) (ControlPort, bool) {
	p, ok := s.controls[name]
	return p, ok
}

// Controls returns the names in the capability table, sorted.
func (s *Synth) Controls() []string {
	names := make([]string, 0, len(s.controls))
	for name := range s.controls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSynth creates a synth on the server and returns its Pending handle. The
// creation message participates in an active bundling scope like any other
// send; WaitStart blocks until the server confirms.
func (c *Client) NewSynth(defName string, controls map[string]float32, action AddAction, target int32) (*Synth, error) {
	if defName == "" {
		return nil, errors.New("scsynth: empty synthdef name")
	}

	id := c.NextNodeID()
	n := newNode(c, id, false, c.nodes.inferGroup(action, target))
	c.nodes.register(n)

	msg := osc.NewMessage(cmdSynthNew, defName, id, int32(action), target)
	for name, value := range controls {
		msg.Append(name, value)
	}
	if err := c.Send(msg); err != nil {
		c.nodes.Release(id)
		return nil, err
	}

	s := &Synth{Node: n, defName: defName, controls: make(map[string]ControlPort, len(controls))}
	for name := range controls {
		s.controls[name] = ControlPort{synth: s, name: name}
	}
	return s, nil
}

// Get reads one control value back from the server. Replies for other nodes
// on the shared /n_set address are passed over.
func (s *Synth) Get(control string, timeout time.Duration) (float32, error) {
	if err := s.checkAlive(); err != nil {
		return 0, err
	}

	msg := osc.NewMessage(cmdSynthGet, s.id, control)
	v, err := s.client.awaitMatching(cmdSynthGet, msg, timeout,
		func(args []interface{}) (interface{}, bool, error) {
			if len(args) < 3 {
				return nil, false, nil
			}
			if id, ok := args[0].(int32); !ok || id != s.id {
				return nil, false, nil
			}
			value, ok := args[2].(float32)
			if !ok {
				return nil, false, errors.Errorf("scsynth: malformed control reply: %v", args)
			}
			return value, true, nil
		})
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

// GetN reads count consecutive control values starting at the named control.
func (s *Synth) GetN(control string, count int32, timeout time.Duration) ([]float32, error) {
	if err := s.checkAlive(); err != nil {
		return nil, err
	}

	msg := osc.NewMessage(cmdSynthGetn, s.id, control, count)
	v, err := s.client.awaitMatching(cmdSynthGetn, msg, timeout,
		func(args []interface{}) (interface{}, bool, error) {
			if len(args) < 3 {
				return nil, false, nil
			}
			if id, ok := args[0].(int32); !ok || id != s.id {
				return nil, false, nil
			}
			values, err := float32Slice(args, 3)
			if err != nil {
				return nil, false, err
			}
			return values, true, nil
		})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// float32Slice decodes args[from-1] as a count followed by that many float32
// values, the shape shared by the *_setn replies.
func float32Slice(args []interface{}, from int) ([]float32, error) {
	n, _ := args[from-1].(int32)
	if len(args) < from+int(n) {
		return nil, errors.Errorf("scsynth: short reply: %v", args)
	}
	values := make([]float32, 0, n)
	for _, raw := range args[from : from+int(n)] {
		value, ok := raw.(float32)
		if !ok {
			return nil, errors.Errorf("scsynth: malformed reply: %v", args)
		}
		values = append(values, value)
	}
	return values, nil
}

////
// Synthdef management
////

// SendSynthdef transmits a compiled synthdef and waits for the server to
// install it.
func (c *Client) SendSynthdef(data []byte, timeout time.Duration) error {
	blob := osc.Blob(data)
	if !blob.IsSynthdef() {
		return errors.New("scsynth: data is not a compiled synthdef")
	}
	_, err := c.SendAwait(osc.NewMessage(cmdDefRecv, blob), timeout)
	return err
}

// LoadSynthdef asks the server to load a synthdef file from its own
// filesystem.
func (c *Client) LoadSynthdef(path string, timeout time.Duration) error {
	_, err := c.SendAwait(osc.NewMessage(cmdDefLoad, path), timeout)
	return err
}

// LoadSynthdefDir asks the server to load every synthdef file under a
// directory on its own filesystem.
func (c *Client) LoadSynthdefDir(dir string, timeout time.Duration) error {
	_, err := c.SendAwait(osc.NewMessage(cmdDefLoadDir, dir), timeout)
	return err
}

// FreeSynthdef removes a synthdef from the server.
func (c *Client) FreeSynthdef(name string) error {
	return c.Send(osc.NewMessage(cmdDefFree, name))
}
