package osc

import (
	"bytes"
	"io"
	"testing"
)

func TestReadPaddedString(t *testing.T) {
	for _, tt := range []struct {
		buf  []byte // buffer
		n    int    // bytes consumed
		want string // resulting string
		err  error
	}{
		{[]byte{'t', 'e', 's', 't', 's', 't', 'r', 'i', 'n', 'g', 0, 0}, 12, "teststring", nil},
		{[]byte{'t', 'e', 's', 't', 'e', 'r', 's', 0}, 8, "testers", nil},
		{[]byte{'t', 'e', 's', 't', 's', 0, 0, 0}, 8, "tests", nil},
		{[]byte{'t', 'e', 's', 0, 0, 0, 0, 0}, 4, "tes", nil},
		{[]byte{'t', 'e', 's', 't'}, 0, "", io.EOF}, // no terminator
	} {
		got, n, err := readPaddedString(bytes.NewBuffer(tt.buf))
		if err != tt.err {
			t.Errorf("%s: unexpected error reading padded string: %v", tt.want, err)
		}
		if n != tt.n {
			t.Errorf("%s: bytes consumed don't match; got = %d, want = %d", tt.want, n, tt.n)
		}
		if got != tt.want {
			t.Errorf("%s: strings don't match; got = %q, want = %q", tt.want, got, tt.want)
		}
	}
}

func TestWritePaddedString(t *testing.T) {
	buf := new(bytes.Buffer)
	testString := "testString"
	want := len(testString) + 1 + padBytesNeeded(len(testString)+1)

	if n := writePaddedString(testString, buf); n != want {
		t.Errorf("writePaddedString() = %d, want %d", n, want)
	}
	if buf.Len()%4 != 0 {
		t.Errorf("writePaddedString() produced %d bytes, not 4-byte aligned", buf.Len())
	}
}

func TestBlobRoundTrip(t *testing.T) {
	for _, blob := range [][]byte{
		{1},
		{1, 2, 3, 4},
		{1, 2, 3, 4, 5},
	} {
		buf := new(bytes.Buffer)
		n, err := writeBlob(blob, buf)
		if err != nil {
			t.Fatalf("writeBlob(%v) error = %v", blob, err)
		}
		if n%4 != 0 {
			t.Errorf("writeBlob(%v) wrote %d bytes, not aligned", blob, n)
		}

		got, rn, err := readBlob(buf)
		if err != nil {
			t.Fatalf("readBlob(%v) error = %v", blob, err)
		}
		if rn != n {
			t.Errorf("readBlob consumed %d bytes, wrote %d", rn, n)
		}
		if !bytes.Equal(got, blob) {
			t.Errorf("blob round trip got = %v, want %v", got, blob)
		}
	}
}

func TestPadBytesNeeded(t *testing.T) {
	for _, tt := range []struct{ in, want int }{
		{0, 0}, {1, 3}, {3, 1}, {4, 0}, {10, 2}, {32, 0}, {63, 1},
	} {
		if n := padBytesNeeded(tt.in); n != tt.want {
			t.Errorf("padBytesNeeded(%d) = %d, want %d", tt.in, n, tt.want)
		}
	}
}
