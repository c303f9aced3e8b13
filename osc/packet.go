package osc

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
)

// Packet is the interface for everything that can appear on the wire or
// inside a bundle: Message, Bundle, List and Blob.
type Packet interface {
	encoding.BinaryMarshaler
}

// UnsupportedTypeError is returned when an argument has no OSC type tag.
type UnsupportedTypeError struct {
	Arg interface{}
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("osc: unsupported argument type: %T", e.Arg)
}

// synthdefTag is the magic prefix of a compiled synthdef. An element starting
// with it is transported opaquely and never interpreted.
var synthdefTag = []byte("SCgf")

// Blob is an opaque bundle element, marshaled verbatim. Decoding produces a
// Blob for compiled synthdefs and for unrecognized element payloads.
type Blob []byte

var _ Packet = Blob(nil)

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (b Blob) MarshalBinary() ([]byte, error) {
	bb := make([]byte, len(b))
	copy(bb, b)
	return bb, nil
}

// IsSynthdef reports whether the blob starts with the compiled synthdef tag.
func (b Blob) IsSynthdef() bool {
	return bytes.HasPrefix(b, synthdefTag)
}

// List is the scsynth typed list extension: a bundle element carrying an
// int32 count, a type tag string and one value per tag. scsynth uses it for
// array-valued arguments inside reply bundles.
type List struct {
	Elements []interface{}
}

var _ Packet = (*List)(nil)

// NewList returns a List with the given elements.
func NewList(elems ...interface{}) *List {
	return &List{Elements: elems}
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (l *List) MarshalBinary() ([]byte, error) {
	data := getBuf()
	defer putBuf(data)

	if err := binary.Write(data, binary.BigEndian, int32(len(l.Elements))); err != nil {
		return nil, err
	}

	typetags, err := GetTypeTag(l.Elements)
	if err != nil {
		return nil, err
	}
	writePaddedString(typetags, data)

	for _, elem := range l.Elements {
		if err := writeTaggedValue(elem, data); err != nil {
			return nil, err
		}
	}

	b := make([]byte, data.Len())
	copy(b, data.Bytes())
	return b, nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (l *List) UnmarshalBinary(data []byte) error {
	if len(data) < bit64Size {
		return fmt.Errorf("UnmarshalBinary: list is too short")
	}

	b := getBuf()
	defer putBuf(b)
	b.Write(data)

	count := int(int32(binary.BigEndian.Uint32(b.Next(bit32Size))))
	if count < 0 {
		return fmt.Errorf("UnmarshalBinary: invalid list size %d", count)
	}

	typetags, _, err := readPaddedString(b)
	if err != nil {
		return fmt.Errorf("UnmarshalBinary: %w", err)
	}
	// The server emits the tag string with and without the ',' prefix.
	if len(typetags) > 0 && typetags[0] == ',' {
		typetags = typetags[1:]
	}
	if len(typetags) != count {
		return fmt.Errorf("UnmarshalBinary: list size %d does not match tags %q", count, typetags)
	}

	l.Elements = make([]interface{}, 0, count)
	for _, c := range typetags {
		elem, err := readTaggedValue(TypeTag(c), b)
		if err != nil {
			return fmt.Errorf("UnmarshalBinary: %w", err)
		}
		l.Elements = append(l.Elements, elem)
	}

	return nil
}

// writeTaggedValue writes the payload bytes of a single argument. Zero-byte
// types write nothing.
func writeTaggedValue(arg interface{}, data *bytes.Buffer) error {
	switch t := arg.(type) {
	default:
		return &UnsupportedTypeError{t}

	case bool, nil, Impulse:
		return nil
	case int32:
		return binary.Write(data, binary.BigEndian, t)
	case float32:
		return binary.Write(data, binary.BigEndian, t)
	case int64:
		return binary.Write(data, binary.BigEndian, t)
	case float64:
		return binary.Write(data, binary.BigEndian, t)
	case Timetag:
		return binary.Write(data, binary.BigEndian, uint64(t))
	case string:
		writePaddedString(t, data)
		return nil
	case []byte:
		_, err := writeBlob(t, data)
		return err
	case Blob:
		_, err := writeBlob(t, data)
		return err
	}
}

// ParsePacket parses a raw datagram into a Message or a Bundle.
func ParsePacket(data []byte) (Packet, error) {
	switch {
	case isBundleData(data):
		return NewBundleFromData(data)
	case len(data) > 0 && data[0] == '/':
		return NewMessageFromData(data)
	default:
		return nil, fmt.Errorf("ParsePacket: not an OSC message or bundle")
	}
}

// ParseReply parses a server datagram leniently: datagrams that are neither
// messages nor bundles are returned unchanged as a Blob, since some
// legitimate replies are bare scalars. Structural errors inside a recognized
// packet still fail.
func ParseReply(data []byte) (Packet, error) {
	p, err := ParsePacket(data)
	if err == nil {
		return p, nil
	}
	if isBundleData(data) || (len(data) > 0 && data[0] == '/') {
		return nil, err
	}

	b := make([]byte, len(data))
	copy(b, data)
	return Blob(b), nil
}

// parseElement interprets a single size-delimited bundle element. Recognized
// shapes are nested bundles, messages, typed lists and compiled synthdefs;
// anything else is kept as an opaque Blob.
func parseElement(data []byte) (Packet, error) {
	switch {
	case isBundleData(data):
		return newBundleFromData(data)

	case len(data) > 0 && data[0] == '/':
		return NewMessageFromData(data)

	case len(data) > bit32Size && data[bit32Size] == ',':
		l := &List{}
		if err := l.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return l, nil

	default:
		b := make([]byte, len(data))
		copy(b, data)
		return Blob(b), nil
	}
}

// isBundleData reports whether the data starts with the "#bundle" tag.
func isBundleData(data []byte) bool {
	return len(data) >= bit64Size && string(data[:bit64Size]) == bundleTagString+"\x00"
}
