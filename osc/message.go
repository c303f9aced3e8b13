package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Message represents a single OSC message. An OSC message consists of an OSC
// address pattern and zero or more arguments.
type Message struct {
	Address   string
	Arguments []interface{}
}

// Verify that Message implements the Packet interface.
var _ Packet = (*Message)(nil)

// NewMessage returns a new Message for the given OSC address. A missing
// leading '/' is added.
func NewMessage(addr string, args ...interface{}) *Message {
	if len(addr) > 0 && addr[0] != '/' {
		addr = "/" + addr
	}
	return &Message{Address: addr, Arguments: args}
}

// Append appends the given arguments to the arguments list.
func (m *Message) Append(args ...interface{}) error {
	for _, a := range args {
		if ToTypeTag(a) == TypeInvalid {
			return &UnsupportedTypeError{a}
		}
	}
	m.Arguments = append(m.Arguments, args...)
	return nil
}

// Clear clears the OSC address and all arguments.
func (m *Message) Clear() {
	m.Address = ""
	m.Arguments = m.Arguments[:0]
}

// Match returns true, if the OSC address pattern of the OSC Message matches the given
// address. The match is case sensitive!
func (m *Message) Match(addr string) bool {
	regexp, err := getRegEx(m.Address)
	if err != nil {
		return false
	}
	return regexp.MatchString(addr)
}

// TypeTags returns the type tag string, including the leading ','.
func (m *Message) TypeTags() (string, error) {
	if m == nil {
		return "", fmt.Errorf("TypeTags: message is nil")
	}
	return GetTypeTag(m.Arguments)
}

// String implements the fmt.Stringer interface.
func (m *Message) String() string {
	if m == nil {
		return ""
	}

	tags, _ := m.TypeTags()

	strBuf := getBuf()
	defer putBuf(strBuf)

	strBuf.WriteString(m.Address)
	if len(tags) < 2 {
		return strBuf.String()
	}

	strBuf.WriteByte(' ')
	strBuf.WriteString(tags)

	for _, arg := range m.Arguments {
		switch arg := arg.(type) {
		case bool, int32, int64, float32, float64, string:
			fmt.Fprintf(strBuf, " %v", arg)

		case nil:
			strBuf.WriteString(" Nil")

		case Impulse:
			strBuf.WriteString(" Inf")

		case []byte, Blob:
			strBuf.WriteString(" blob")

		case Timetag:
			fmt.Fprintf(strBuf, " %d", uint64(arg))
		}
	}

	return strBuf.String()
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (m *Message) MarshalBinary() (b []byte, err error) {
	data := getBuf()
	defer putBuf(data)

	if err = m.LightMarshalBinary(data); err != nil {
		return nil, err
	}
	return append(b, data.Bytes()...), nil
}

// LightMarshalBinary serializes the message into an existing buffer:
// address pattern, type tag string, then the argument payload.
func (m *Message) LightMarshalBinary(data *bytes.Buffer) error {
	b := getBuf()
	defer putBuf(b)

	for _, arg := range m.Arguments {
		switch t := arg.(type) {
		default:
			return &UnsupportedTypeError{t}

		case bool, nil, Impulse:
			// Zero-byte types, carried by the tag alone.
			continue
		case int32:
			buf := make([]byte, bit32Size)
			binary.BigEndian.PutUint32(buf, uint32(t))
			b.Write(buf)
		case float32:
			buf := make([]byte, bit32Size)
			binary.BigEndian.PutUint32(buf, math.Float32bits(t))
			b.Write(buf)
		case int64:
			buf := make([]byte, bit64Size)
			binary.BigEndian.PutUint64(buf, uint64(t))
			b.Write(buf)
		case float64:
			buf := make([]byte, bit64Size)
			binary.BigEndian.PutUint64(buf, math.Float64bits(t))
			b.Write(buf)
		case string:
			writePaddedString(t, b)
		case []byte:
			if _, err := writeBlob(t, b); err != nil {
				return err
			}
		case Blob:
			if _, err := writeBlob(t, b); err != nil {
				return err
			}
		case Timetag:
			buf := make([]byte, bit64Size)
			binary.BigEndian.PutUint64(buf, uint64(t))
			b.Write(buf)
		}
	}

	writePaddedString(m.Address, data)

	typetags, err := m.TypeTags()
	if err != nil {
		return err
	}
	writePaddedString(typetags, data)

	data.Write(b.Bytes())

	if data.Len() >= MaxPacketSize {
		return fmt.Errorf("LightMarshalBinary: packet too large: %d", data.Len())
	}

	return nil
}

// NewMessageFromData parses a raw datagram into a Message.
func NewMessageFromData(data []byte) (msg *Message, err error) {
	msg = &Message{}
	if err = msg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return msg, nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) == 0 || data[0] != '/' {
		return fmt.Errorf("UnmarshalBinary: data not a valid OSC message")
	}

	if (len(data) % bit32Size) != 0 {
		return fmt.Errorf("UnmarshalBinary: data isn't mod 4")
	}

	b := getBuf()
	defer putBuf(b)
	b.Write(data)

	// First, read the OSC address
	addr, _, err := readPaddedString(b)
	if err != nil {
		return fmt.Errorf("UnmarshalBinary: %w", err)
	}

	// Read all arguments
	m.Address = addr
	if err = m.readArguments(b); err != nil {
		return fmt.Errorf("UnmarshalBinary: %w", err)
	}

	return nil
}

// readArguments reads the type tag string and one argument per tag.
func (m *Message) readArguments(reader *bytes.Buffer) error {
	typetags, _, err := readPaddedString(reader)
	if err != nil {
		return fmt.Errorf("readArguments: %w", err)
	}

	if len(typetags) == 0 {
		return nil
	}

	// If the typetag doesn't start with ',', it's not valid
	if typetags[0] != ',' {
		return fmt.Errorf("unsupported typetag string: %s", typetags)
	}

	m.Arguments = make([]interface{}, 0, len(typetags)-1)

	for _, c := range typetags[1:] {
		arg, err := readTaggedValue(TypeTag(c), reader)
		if err != nil {
			return fmt.Errorf("readArguments: %w", err)
		}
		m.Arguments = append(m.Arguments, arg)
	}

	return nil
}

// readTaggedValue decodes a single value for the given type tag. The
// zero-byte tags consume nothing.
func readTaggedValue(tag TypeTag, reader *bytes.Buffer) (interface{}, error) {
	switch tag {
	case TypeNil:
		return nil, nil
	case TypeTrue:
		return true, nil
	case TypeFalse:
		return false, nil
	case TypeImpulse:
		return Impulse{}, nil
	}

	if reader.Len() < bit32Size {
		return nil, fmt.Errorf("not enough bytes for tag %c", tag)
	}

	switch tag {
	default:
		return nil, fmt.Errorf("unsupported typetag: %c", tag)

	case TypeInt32:
		return int32(binary.BigEndian.Uint32(reader.Next(bit32Size))), nil

	case TypeInt64:
		if reader.Len() < bit64Size {
			return nil, fmt.Errorf("not enough bytes for tag %c", tag)
		}
		return int64(binary.BigEndian.Uint64(reader.Next(bit64Size))), nil

	case TypeFloat32:
		return math.Float32frombits(binary.BigEndian.Uint32(reader.Next(bit32Size))), nil

	case TypeFloat64:
		if reader.Len() < bit64Size {
			return nil, fmt.Errorf("not enough bytes for tag %c", tag)
		}
		return math.Float64frombits(binary.BigEndian.Uint64(reader.Next(bit64Size))), nil

	case TypeString:
		str, _, err := readPaddedString(reader)
		if err != nil {
			return nil, err
		}
		return str, nil

	case TypeBlob:
		blob, _, err := readBlob(reader)
		if err != nil {
			return nil, err
		}
		return blob, nil

	case TypeTimeTag:
		if reader.Len() < bit64Size {
			return nil, fmt.Errorf("not enough bytes for tag %c", tag)
		}
		return Timetag(binary.BigEndian.Uint64(reader.Next(bit64Size))), nil
	}
}
