package osc

const zero = string(byte(0))

// nulls returns a string of `i` nulls.
func nulls(i int) string {
	s := ""
	for j := 0; j < i; j++ {
		s += zero
	}
	return s
}

// testCase pairs a Packet with its exact wire form.
type testCase struct {
	name    string
	obj     Packet
	raw     []byte
	wantErr bool
}

var messageTestCases = []testCase{
	{
		name: "no_args",
		obj:  &Message{Address: "/", Arguments: []interface{}{}},
		raw:  []byte("/" + nulls(3) + "," + nulls(3)),
	},
	{
		name: "two_ints",
		obj:  &Message{Address: "/address", Arguments: []interface{}{int32(1122), int32(3344)}},
		raw: []byte("/address" + nulls(4) + ",ii" + nulls(1) +
			"\x00\x00\x04\x62" + "\x00\x00\x0d\x10"),
	},
	{
		name: "mixed_with_zero_byte_tags",
		obj: &Message{Address: "/status.reply", Arguments: []interface{}{
			int32(1), "test", float32(0.5), true, nil,
		}},
		raw: []byte("/status.reply" + nulls(3) + ",isfTN" + nulls(2) +
			"\x00\x00\x00\x01" + "test" + nulls(4) + "\x3f\x00\x00\x00"),
	},
	{
		name: "wide_types",
		obj: &Message{Address: "/d", Arguments: []interface{}{
			int64(1), float64(0.5), Timetag(1),
		}},
		raw: []byte("/d" + nulls(2) + ",hdt" + nulls(4) +
			"\x00\x00\x00\x00\x00\x00\x00\x01" +
			"\x3f\xe0\x00\x00\x00\x00\x00\x00" +
			"\x00\x00\x00\x00\x00\x00\x00\x01"),
	},
	{
		name: "blob_and_impulse",
		obj: &Message{Address: "/b", Arguments: []interface{}{
			[]byte{1, 2, 3}, Impulse{},
		}},
		raw: []byte("/b" + nulls(2) + ",bI" + nulls(1) +
			"\x00\x00\x00\x03" + "\x01\x02\x03" + nulls(1)),
	},
	{
		name:    "not_a_message",
		obj:     (*Message)(nil),
		raw:     []byte("address" + nulls(1)),
		wantErr: true,
	},
}

var bundleTestCases = []testCase{
	{
		name: "immediate_with_message",
		obj: &Bundle{
			Timetag: TimetagImmediate,
			Elements: []Packet{
				&Message{Address: "/address", Arguments: []interface{}{int32(1122), int32(3344)}},
			},
		},
		raw: []byte("#bundle" + nulls(1) +
			"\x00\x00\x00\x00\x00\x00\x00\x01" +
			"\x00\x00\x00\x18" +
			"/address" + nulls(4) + ",ii" + nulls(1) +
			"\x00\x00\x04\x62" + "\x00\x00\x0d\x10"),
	},
	{
		name: "nested_bundle",
		obj: &Bundle{
			Timetag: TimetagImmediate,
			Elements: []Packet{
				&Bundle{
					Timetag: Timetag(0x100000000),
					Elements: []Packet{
						&Message{Address: "/x", Arguments: []interface{}{}},
					},
				},
			},
		},
		raw: []byte("#bundle" + nulls(1) +
			"\x00\x00\x00\x00\x00\x00\x00\x01" +
			"\x00\x00\x00\x1c" +
			"#bundle" + nulls(1) +
			"\x00\x00\x00\x01\x00\x00\x00\x00" +
			"\x00\x00\x00\x08" +
			"/x" + nulls(2) + "," + nulls(3)),
	},
	{
		name: "typed_list_element",
		obj: &Bundle{
			Timetag: TimetagImmediate,
			Elements: []Packet{
				&List{Elements: []interface{}{int32(1), float32(440)}},
			},
		},
		raw: []byte("#bundle" + nulls(1) +
			"\x00\x00\x00\x00\x00\x00\x00\x01" +
			"\x00\x00\x00\x10" +
			"\x00\x00\x00\x02" + ",if" + nulls(1) +
			"\x00\x00\x00\x01" + "\x43\xdc\x00\x00"),
	},
	{
		name: "synthdef_blob_element",
		obj: &Bundle{
			Timetag: TimetagImmediate,
			Elements: []Packet{
				Blob("SCgf\x00\x00\x00\x02"),
			},
		},
		raw: []byte("#bundle" + nulls(1) +
			"\x00\x00\x00\x00\x00\x00\x00\x01" +
			"\x00\x00\x00\x08" +
			"SCgf" + "\x00\x00\x00\x02"),
	},
	{
		name:    "too_short",
		obj:     (*Bundle)(nil),
		raw:     []byte("#bundle" + nulls(1)),
		wantErr: true,
	},
}
