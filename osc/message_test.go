package osc

import (
	"reflect"
	"testing"
)

func TestMessage_Append(t *testing.T) {
	message := NewMessage("/address")

	if err := message.Append("string argument", int32(123456789), true); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if len(message.Arguments) != 3 {
		t.Errorf("Number of arguments should be %d and is %d", 3, len(message.Arguments))
	}

	if err := message.Append(struct{}{}); err == nil {
		t.Error("Append() should reject unsupported types")
	}
}

func TestNewMessage_AddressNormalization(t *testing.T) {
	if got := NewMessage("status").Address; got != "/status" {
		t.Errorf("NewMessage(status).Address = %q, want %q", got, "/status")
	}
	if got := NewMessage("/status").Address; got != "/status" {
		t.Errorf("NewMessage(/status).Address = %q, want %q", got, "/status")
	}
}

func TestOscMessageMatch(t *testing.T) {
	tc := []struct {
		desc        string
		addr        string
		addrPattern string
		want        bool
	}{
		{
			"match everything",
			"*",
			"/a/b",
			true,
		},
		{
			"don't match",
			"/a/b",
			"/a",
			false,
		},
		{
			"match alternatives",
			"/a/{foo,bar}",
			"/a/foo",
			true,
		},
		{
			"don't match if address is not part of the alternatives",
			"/a/{foo,bar}",
			"/a/bob",
			false,
		},
	}

	for _, tt := range tc {
		msg := NewMessage(tt.addr)

		got := msg.Match(tt.addrPattern)
		if got != tt.want {
			t.Errorf("%s: msg.Match('%s') = '%t', want = '%t'", tt.desc, tt.addrPattern, got, tt.want)
		}
	}
}

func TestMessage_MarshalBinary(t *testing.T) {
	for _, tt := range messageTestCases {
		if tt.wantErr {
			continue
		}
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.raw) {
				t.Errorf("MarshalBinary() got = %q, want %q", got, tt.raw)
			}
		})
	}
}

func TestMessage_UnmarshalBinary(t *testing.T) {
	for _, tt := range messageTestCases {
		t.Run(tt.name, func(t *testing.T) {
			m := new(Message)
			err := m.UnmarshalBinary(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalBinary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(m, tt.obj) {
				t.Errorf("UnmarshalBinary() got = %v, want %v", m, tt.obj)
			}
		})
	}
}

var result interface{}

func BenchmarkMessageMarshalBinary(b *testing.B) {
	temp := &Message{
		Address:   "/composition/layers/1/clips/1/transport/position",
		Arguments: []interface{}{float32(0.123456789), "hello world"},
	}
	var buf []byte
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		buf, _ = temp.MarshalBinary()
	}
	result = buf
}
