package scsynth

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInferGroup(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := &Client{log: zap.New(core), handlers: make(map[string][]HandlerFunc)}
	r := newNodeRegistry(c, 1)

	t.Run("head_and_tail_use_target", func(t *testing.T) {
		if got := r.inferGroup(AddToHead, 5); got != 5 {
			t.Fatalf("group = %d, want 5", got)
		}
		if got := r.inferGroup(AddToTail, 7); got != 7 {
			t.Fatalf("group = %d, want 7", got)
		}
	})

	t.Run("sibling_uses_cached_group", func(t *testing.T) {
		n := newNode(c, 10001, false, 42)
		r.register(n)
		if got := r.inferGroup(AddAfter, 10001); got != 42 {
			t.Fatalf("group = %d, want 42", got)
		}
	})

	t.Run("untracked_sibling_warns_and_defaults", func(t *testing.T) {
		before := logs.Len()
		if got := r.inferGroup(AddBefore, 999); got != 1 {
			t.Fatalf("group = %d, want default group 1", got)
		}
		if logs.Len() == before {
			t.Fatal("falling back to the default group must log a warning")
		}
	})
}
