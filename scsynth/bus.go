package scsynth

import (
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/go-scsynth/osc"
)

// SetControlBus assigns one control bus value.
func (c *Client) SetControlBus(index int32, value float32) error {
	return c.Send(osc.NewMessage(cmdControlSet, index, value))
}

// SetControlBusN assigns consecutive control bus values starting at index.
func (c *Client) SetControlBusN(index int32, values []float32) error {
	msg := osc.NewMessage(cmdControlSetn, index, int32(len(values)))
	for _, v := range values {
		msg.Append(v)
	}
	return c.Send(msg)
}

// GetControlBus reads one control bus value. Replies for other bus indices on
// the shared /c_set address are passed over.
func (c *Client) GetControlBus(index int32, timeout time.Duration) (float32, error) {
	msg := osc.NewMessage(cmdControlGet, index)
	v, err := c.awaitMatching(cmdControlGet, msg, timeout,
		func(args []interface{}) (interface{}, bool, error) {
			if len(args) < 2 {
				return nil, false, nil
			}
			if got, ok := args[0].(int32); !ok || got != index {
				return nil, false, nil
			}
			value, ok := args[1].(float32)
			if !ok {
				return nil, false, errors.Errorf("scsynth: malformed bus reply: %v", args)
			}
			return value, true, nil
		})
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

// GetControlBusN reads count consecutive control bus values starting at
// index.
func (c *Client) GetControlBusN(index, count int32, timeout time.Duration) ([]float32, error) {
	msg := osc.NewMessage(cmdControlGetn, index, count)
	v, err := c.awaitMatching(cmdControlGetn, msg, timeout,
		func(args []interface{}) (interface{}, bool, error) {
			if len(args) < 2 {
				return nil, false, nil
			}
			if got, ok := args[0].(int32); !ok || got != index {
				return nil, false, nil
			}
			values, err := float32Slice(args, 2)
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
