package osc

import (
	"reflect"
	"testing"
)

func TestBundle_MarshalBinary(t *testing.T) {
	for _, tt := range bundleTestCases {
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

func TestBundle_UnmarshalBinary(t *testing.T) {
	for _, tt := range bundleTestCases {
		t.Run(tt.name, func(t *testing.T) {
			b := new(Bundle)
			err := b.UnmarshalBinary(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalBinary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(b, tt.obj) {
				t.Errorf("UnmarshalBinary() got = %v, want %v", b, tt.obj)
			}
		})
	}
}

func TestBundle_AppendRejectsUnknown(t *testing.T) {
	b := NewBundle()
	if err := b.Append(nil); err == nil {
		t.Error("Append(nil) should fail")
	}
	if err := b.Append(NewMessage("/x")); err != nil {
		t.Errorf("Append(message) error = %v", err)
	}
}

func TestList_RoundTrip(t *testing.T) {
	l := &List{Elements: []interface{}{
		int32(3), float32(1.5), float64(2.5), "name", nil, Impulse{}, true, false,
	}}

	raw, err := l.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}

	got := new(List)
	if err := got.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if !reflect.DeepEqual(got, l) {
		t.Errorf("round trip got = %v, want %v", got, l)
	}
}

func TestList_UnmarshalWithoutCommaPrefix(t *testing.T) {
	raw := []byte("\x00\x00\x00\x02" + "if" + nulls(2) +
		"\x00\x00\x00\x01" + "\x43\xdc\x00\x00")

	got := new(List)
	if err := got.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}

	want := &List{Elements: []interface{}{int32(1), float32(440)}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnmarshalBinary() got = %v, want %v", got, want)
	}
}

func TestList_SizeMismatch(t *testing.T) {
	raw := []byte("\x00\x00\x00\x03" + ",if" + nulls(1) +
		"\x00\x00\x00\x01" + "\x43\xdc\x00\x00")

	if err := new(List).UnmarshalBinary(raw); err == nil {
		t.Error("UnmarshalBinary() should fail on count/tag mismatch")
	}
}
