package osc

// TypeTag identifies the wire type of a single OSC argument.
type TypeTag byte

const (
	TypeString  TypeTag = 's'
	TypeInt32   TypeTag = 'i'
	TypeInt64   TypeTag = 'h'
	TypeFloat32 TypeTag = 'f'
	TypeFloat64 TypeTag = 'd'
	TypeBlob    TypeTag = 'b'
	TypeTimeTag TypeTag = 't'
	TypeNil     TypeTag = 'N'
	TypeTrue    TypeTag = 'T'
	TypeFalse   TypeTag = 'F'
	TypeImpulse TypeTag = 'I'
	TypeInvalid TypeTag = 0
)

// Impulse is the zero-byte 'I' argument, "Infinitum" in the OSC 1.0 spec.
// scsynth uses it to encode positive infinity inside typed lists.
type Impulse struct{}

// ToTypeTag returns the OSC TypeTag for the given argument.
// Returns TypeInvalid if the argument type is unsupported.
func ToTypeTag(arg interface{}) TypeTag {
	switch t := arg.(type) {
	case bool:
		if t {
			return TypeTrue
		}
		return TypeFalse
	case nil:
		return TypeNil
	case int32:
		return TypeInt32
	case float32:
		return TypeFloat32
	case string:
		return TypeString
	case []byte, Blob:
		return TypeBlob
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case Timetag:
		return TypeTimeTag
	case Impulse:
		return TypeImpulse
	default:
		return TypeInvalid
	}
}

// GetTypeTag returns the type tag string for the given argument list,
// including the leading ','.
func GetTypeTag(args []interface{}) (string, error) {
	tags := make([]byte, 0, len(args)+1)
	tags = append(tags, ',')
	for _, arg := range args {
		t := ToTypeTag(arg)
		if t == TypeInvalid {
			return "", &UnsupportedTypeError{arg}
		}
		tags = append(tags, byte(t))
	}
	return string(tags), nil
}
