// Package osc encodes and decodes the OSC dialect spoken by the SuperCollider
// synthesis server (scsynth).
//
// The encoding side follows the Open Sound Control 1.0 Specification
// (http://opensoundcontrol.org/spec-1_0.html): messages consist of an address
// pattern, a type tag string and arguments; bundles consist of the "#bundle"
// tag, a 64-bit fixed point time tag and length-prefixed elements. All
// strings and blobs are padded to 32-bit boundaries.
//
// The decoding side additionally understands two scsynth extensions that
// appear inside bundle elements of server replies:
//
//	Typed lists: an element whose fifth byte is the type tag marker ','
//	holds an int32 count, a type tag string and one value per tag. This is
//	how the server represents array-valued arguments.
//
//	Compiled synthdefs: an element whose first four bytes are "SCgf" is an
//	opaque compiled synthdef and is returned as a raw Blob, never parsed.
//
// Supported type tags:
//
//	'i' (int32)
//	'f' (float32)
//	's' (string)
//	'b' ([]byte)
//	't' (Timetag)
//	'h' (int64)
//	'd' (float64)
//	'T' (true)
//	'F' (false)
//	'N' (nil)
//	'I' (Impulse, positive infinity)
package osc
