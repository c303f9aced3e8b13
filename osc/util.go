package osc

import (
	"bytes"
	"regexp"
	"strings"
	"sync"
)

const (
	bit32Size = 4
	bit64Size = 8

	// MaxPacketSize is the largest datagram this package will produce or
	// accept, the practical UDP payload limit.
	MaxPacketSize = 65507
)

var bufPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

func getBuf() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

func putBuf(b *bytes.Buffer) {
	bufPool.Put(b)
}

// CompilePattern compiles an OSC address pattern into a regexp that can be
// matched against concrete addresses repeatedly, for callers that dispatch on
// the same pattern many times.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	return getRegEx(pattern)
}

// getRegEx compiles a regexp for the given OSC address pattern.
func getRegEx(pattern string) (*regexp.Regexp, error) {
	r := strings.NewReplacer(
		".", `\.`,
		"(", `\(`,
		")", `\)`,
		"*", "[^/]*",
		"{", "(",
		",", "|",
		"}", ")",
		"?", "[^/]",
		"!", "^",
	)
	pattern = r.Replace(pattern)

	return regexp.Compile(pattern)
}
