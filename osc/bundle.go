package osc

import (
	"encoding/binary"
	"fmt"
	"time"
)

const bundleTagString = "#bundle"

// Bundle represents an OSC bundle. It consists of the OSC-string "#bundle"
// followed by an OSC Time Tag, followed by zero or more bundle elements.
// Elements of decoded server bundles may additionally be typed Lists and
// opaque Blobs, see the package documentation.
type Bundle struct {
	Timetag  Timetag
	Elements []Packet
}

// Verify that Bundle implements the Packet interface.
var _ Packet = (*Bundle)(nil)

// NewBundle returns an OSC Bundle stamped "immediately".
func NewBundle() *Bundle {
	return &Bundle{Timetag: NewImmediateTimetag()}
}

// NewBundleWithTime returns an OSC Bundle executing at the given time.
func NewBundleWithTime(t time.Time) *Bundle {
	return &Bundle{Timetag: NewTimetagFromTime(t)}
}

// NewBundleFromData returns a new OSC bundle created from the parsed data.
func NewBundleFromData(data []byte) (b *Bundle, err error) {
	b = &Bundle{}
	if err = b.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return b, nil
}

// newBundleFromData assumes that the bytes have already been copied.
func newBundleFromData(data []byte) (b *Bundle, err error) {
	b = &Bundle{}
	if err = b.unmarshalBinary(data); err != nil {
		return nil, err
	}
	return b, nil
}

// Append appends a bundle element.
func (b *Bundle) Append(pck Packet) error {
	switch t := pck.(type) {
	default:
		return fmt.Errorf("unsupported OSC packet type: only Bundle, Message, List and Blob are supported")

	case *Bundle, *Message, *List, Blob:
		b.Elements = append(b.Elements, t)
	}

	return nil
}

// MarshalBinary serializes the OSC bundle: the '#bundle' string, the time
// tag, then every element prefixed with its own int32 length.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	data := getBuf()
	defer putBuf(data)

	writePaddedString(bundleTagString, data)

	tt, err := b.Timetag.MarshalBinary()
	if err != nil {
		return nil, err
	}
	data.Write(tt)

	for _, elem := range b.Elements {
		bb, err := elem.MarshalBinary()
		if err != nil {
			return nil, err
		}

		if err = binary.Write(data, binary.BigEndian, int32(len(bb))); err != nil {
			return nil, err
		}
		data.Write(bb)
	}

	if data.Len() >= MaxPacketSize {
		return nil, fmt.Errorf("MarshalBinary: bundle too large: %d", data.Len())
	}

	out := make([]byte, data.Len())
	copy(out, data.Bytes())
	return out, nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (b *Bundle) UnmarshalBinary(d []byte) error {
	data := make([]byte, len(d))
	copy(data, d)

	return b.unmarshalBinary(data)
}

// unmarshalBinary is the actual implementation, it doesn't copy, so we can
// use a single copy for nested bundles.
func (b *Bundle) unmarshalBinary(data []byte) error {
	if (len(data) % bit32Size) != 0 {
		return fmt.Errorf("UnmarshalBinary: data isn't padded properly")
	}

	if len(data) < 16 {
		return fmt.Errorf("UnmarshalBinary: bundle is too short")
	}

	if !isBundleData(data) {
		return fmt.Errorf("UnmarshalBinary: invalid bundle start tag")
	}
	data = data[bit64Size:]

	b.Timetag = Timetag(binary.BigEndian.Uint64(data[:bit64Size]))
	data = data[bit64Size:]

	// Read until the end of the buffer
	for len(data) > 0 {
		if len(data) < bit32Size {
			return fmt.Errorf("UnmarshalBinary: truncated element length")
		}
		length := int(binary.BigEndian.Uint32(data[:bit32Size]))
		data = data[bit32Size:]
		if length < 0 || len(data) < length {
			return fmt.Errorf("invalid bundle element length: %d", length)
		}

		p, err := parseElement(data[:length])
		if err != nil {
			return err
		}
		data = data[length:]
		b.Append(p)
	}

	return nil
}
