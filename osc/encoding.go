package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

////
// De/Encoding functions
////

// readPaddedString reads a null-terminated, 4-byte aligned string from the
// reader and returns the string and the total number of bytes consumed.
func readPaddedString(reader *bytes.Buffer) (string, int, error) {
	str, err := reader.ReadString(0)
	if err != nil {
		return "", 0, io.EOF
	}
	n := len(str)
	// Drop the terminator and the padding bytes.
	pad := padBytesNeeded(n)
	reader.Next(pad)

	return str[:n-1], n + pad, nil
}

// writePaddedString writes a null-terminated string followed by however many
// padding bytes bring the total to a multiple of four. Returns the number of
// bytes written.
func writePaddedString(str string, data *bytes.Buffer) int {
	data.WriteString(str)
	data.WriteByte(0)
	n := len(str) + 1

	pad := padBytesNeeded(n)
	for i := 0; i < pad; i++ {
		data.WriteByte(0)
	}

	return n + pad
}

// readBlob reads an OSC blob (int32 size prefix, data, padding) from the
// reader. Padding bytes are consumed and not returned.
func readBlob(reader *bytes.Buffer) ([]byte, int, error) {
	if reader.Len() < bit32Size {
		return nil, 0, fmt.Errorf("readBlob: not enough bytes for size prefix")
	}
	blobLen := int(binary.BigEndian.Uint32(reader.Next(bit32Size)))
	if blobLen < 1 || blobLen > reader.Len() {
		return nil, 0, fmt.Errorf("readBlob: invalid blob length %d", blobLen)
	}

	blob := make([]byte, blobLen)
	copy(blob, reader.Next(blobLen))

	pad := padBytesNeeded(blobLen)
	reader.Next(pad)

	return blob, bit32Size + blobLen + pad, nil
}

// writeBlob writes the data byte array as an OSC blob into the buffer. If the
// length of data isn't 32-bit aligned, padding bytes are added.
func writeBlob(data []byte, b *bytes.Buffer) (int, error) {
	if len(data) >= MaxPacketSize {
		return 0, fmt.Errorf("writeBlob: blob too large: %d", len(data))
	}

	if err := binary.Write(b, binary.BigEndian, int32(len(data))); err != nil {
		return 0, err
	}
	b.Write(data)

	pad := padBytesNeeded(len(data))
	for i := 0; i < pad; i++ {
		b.WriteByte(0)
	}

	return bit32Size + len(data) + pad, nil
}

// padBytesNeeded determines how many bytes are needed to fill up to the next 4
// byte length.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}
