package scsynth

import (
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/go-scsynth/osc"
)

// Buffer is the handle for one server buffer, numbered from this client's
// partition. Sample data never crosses the wire through this package; the
// server reads and writes sound files on its own filesystem.
type Buffer struct {
	client *Client
	num    int32
}

// Num returns the server buffer number.
func (b *Buffer) Num() int32 { return b.num }

// AllocBuffer allocates an empty server buffer and waits for completion.
func (c *Client) AllocBuffer(frames, channels int32, timeout time.Duration) (*Buffer, error) {
	ids, err := c.AllocBuffers(1)
	if err != nil {
		return nil, err
	}
	num := ids[0]

	if _, err := c.SendAwait(osc.NewMessage(cmdBufAlloc, num, frames, channels), timeout); err != nil {
		c.FreeBuffers(ids)
		return nil, err
	}
	return &Buffer{client: c, num: num}, nil
}

// AllocBufferRead allocates a buffer and fills it from a sound file on the
// server's filesystem. frames <= 0 reads the whole file.
func (c *Client) AllocBufferRead(path string, start, frames int32, timeout time.Duration) (*Buffer, error) {
	ids, err := c.AllocBuffers(1)
	if err != nil {
		return nil, err
	}
	num := ids[0]

	if _, err := c.SendAwait(osc.NewMessage(cmdBufAllocRead, num, path, start, frames), timeout); err != nil {
		c.FreeBuffers(ids)
		return nil, err
	}
	return &Buffer{client: c, num: num}, nil
}

// Read fills part of the buffer from a sound file on the server's
// filesystem.
func (b *Buffer) Read(path string, fileStart, frames, bufStart int32, leaveOpen bool, timeout time.Duration) error {
	open := int32(0)
	if leaveOpen {
		open = 1
	}
	_, err := b.client.SendAwait(
		osc.NewMessage(cmdBufRead, b.num, path, fileStart, frames, bufStart, open), timeout)
	return err
}

// Write writes part of the buffer to a sound file on the server's
// filesystem. headerFormat and sampleFormat follow the server command
// reference ("wav", "int16", ...).
func (b *Buffer) Write(path, headerFormat, sampleFormat string, frames, start int32, leaveOpen bool, timeout time.Duration) error {
	open := int32(0)
	if leaveOpen {
		open = 1
	}
	_, err := b.client.SendAwait(
		osc.NewMessage(cmdBufWrite, b.num, path, headerFormat, sampleFormat, frames, start, open), timeout)
	return err
}

// Zero clears the buffer's samples.
func (b *Buffer) Zero(timeout time.Duration) error {
	_, err := b.client.SendAwait(osc.NewMessage(cmdBufZero, b.num), timeout)
	return err
}

// CloseFile closes the sound file a streaming buffer left open.
func (b *Buffer) CloseFile(timeout time.Duration) error {
	_, err := b.client.SendAwait(osc.NewMessage(cmdBufClose, b.num), timeout)
	return err
}

// Free releases the buffer on the server and returns its number to the
// client's pool.
func (b *Buffer) Free(timeout time.Duration) error {
	if _, err := b.client.SendAwait(osc.NewMessage(cmdBufFree, b.num), timeout); err != nil {
		return err
	}
	b.client.FreeBuffers([]int32{b.num})
	return nil
}

// BufferInfo is the decoded /b_info reply.
type BufferInfo struct {
	Frames     int32
	Channels   int32
	SampleRate float32
}

// Query fetches the buffer's shape from the server.
func (b *Buffer) Query(timeout time.Duration) (*BufferInfo, error) {
	msg := osc.NewMessage(cmdBufQuery, b.num)
	v, err := b.client.awaitMatching(cmdBufQuery, msg, timeout,
		func(args []interface{}) (interface{}, bool, error) {
			if len(args) < 4 {
				return nil, false, nil
			}
			if num, ok := args[0].(int32); !ok || num != b.num {
				return nil, false, nil
			}
			info := &BufferInfo{}
			var fok, cok, sok bool
			info.Frames, fok = args[1].(int32)
			info.Channels, cok = args[2].(int32)
			info.SampleRate, sok = args[3].(float32)
			if !fok || !cok || !sok {
				return nil, false, errors.Errorf("scsynth: malformed buffer info: %v", args)
			}
			return info, true, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(*BufferInfo), nil
}

// Get reads one sample value.
func (b *Buffer) Get(index int32, timeout time.Duration) (float32, error) {
	msg := osc.NewMessage(cmdBufGet, b.num, index)
	v, err := b.client.awaitMatching(cmdBufGet, msg, timeout,
		func(args []interface{}) (interface{}, bool, error) {
			if len(args) < 3 {
				return nil, false, nil
			}
			if num, ok := args[0].(int32); !ok || num != b.num {
				return nil, false, nil
			}
			value, ok := args[2].(float32)
			if !ok {
				return nil, false, errors.Errorf("scsynth: malformed sample reply: %v", args)
			}
			return value, true, nil
		})
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

// GetN reads count consecutive sample values starting at index.
func (b *Buffer) GetN(index, count int32, timeout time.Duration) ([]float32, error) {
	msg := osc.NewMessage(cmdBufGetn, b.num, index, count)
	v, err := b.client.awaitMatching(cmdBufGetn, msg, timeout,
		func(args []interface{}) (interface{}, bool, error) {
			if len(args) < 3 {
				return nil, false, nil
			}
			if num, ok := args[0].(int32); !ok || num != b.num {
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
