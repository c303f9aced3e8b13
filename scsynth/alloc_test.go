package scsynth

import (
	"reflect"
	"testing"
)

func TestNodeIDAllocator(t *testing.T) {
	t.Run("client_zero_first_id", func(t *testing.T) {
		a := NewNodeIDAllocator(0)
		if got := a.Allocate(); got != 10001 {
			t.Fatalf("first id = %d, want 10001", got)
		}
		if got := a.Allocate(); got != 10002 {
			t.Fatalf("second id = %d, want 10002", got)
		}
	})

	t.Run("client_offset", func(t *testing.T) {
		a := NewNodeIDAllocator(3)
		if got := a.Allocate(); got != 40001 {
			t.Fatalf("first id = %d, want 40001", got)
		}
	})

	t.Run("free_is_noop", func(t *testing.T) {
		a := NewNodeIDAllocator(0)
		id := a.Allocate()
		a.Free(id)
		if got := a.Allocate(); got == id {
			t.Fatalf("id %d reused after free", id)
		}
	})

	t.Run("wraps_before_overflow", func(t *testing.T) {
		a := NewNodeIDAllocator(0)
		a.counter = 1<<31 - 2 - a.offset
		a.Allocate()
		if got := a.Allocate(); got != a.offset+2 {
			t.Fatalf("post-wrap id = %d, want %d", got, a.offset+2)
		}
	})
}

func TestBlockAllocator(t *testing.T) {
	t.Run("contiguous_run", func(t *testing.T) {
		a := NewBlockAllocator[int32](100, 6)
		ids, err := a.Allocate(3)
		if err != nil {
			t.Fatal(err)
		}
		if want := []int32{100, 101, 102}; !reflect.DeepEqual(ids, want) {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	})

	t.Run("freed_id_reusable", func(t *testing.T) {
		a := NewBlockAllocator[int32](100, 6)
		if _, err := a.Allocate(3); err != nil {
			t.Fatal(err)
		}
		a.Free([]int32{101})

		ids, err := a.Allocate(1)
		if err != nil {
			t.Fatal(err)
		}
		if want := []int32{101}; !reflect.DeepEqual(ids, want) {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	})

	t.Run("skips_fragmented_run", func(t *testing.T) {
		a := NewBlockAllocator[int32](100, 6)
		if _, err := a.Allocate(3); err != nil {
			t.Fatal(err)
		}
		a.Free([]int32{101})
		// Free list is now [101 103 104 105]; the only run of 3 starts
		// at 103.
		ids, err := a.Allocate(3)
		if err != nil {
			t.Fatal(err)
		}
		if want := []int32{103, 104, 105}; !reflect.DeepEqual(ids, want) {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	})

	t.Run("free_restores_state", func(t *testing.T) {
		a := NewBlockAllocator[int32](100, 6)
		before := append([]int32(nil), a.free...)

		ids, err := a.Allocate(4)
		if err != nil {
			t.Fatal(err)
		}
		a.Free(ids)

		if !reflect.DeepEqual(a.free, before) {
			t.Fatalf("free list = %v, want %v", a.free, before)
		}
	})

	t.Run("exhaustion", func(t *testing.T) {
		a := NewBlockAllocator[int32](0, 4)
		if _, err := a.Allocate(5); err == nil {
			t.Fatal("want allocation error")
		} else if _, ok := err.(*AllocationError); !ok {
			t.Fatalf("error type = %T, want *AllocationError", err)
		}
	})

	t.Run("double_free_ignored", func(t *testing.T) {
		a := NewBlockAllocator[int32](0, 4)
		ids, err := a.Allocate(2)
		if err != nil {
			t.Fatal(err)
		}
		a.Free(ids)
		a.Free(ids)
		if got := a.FreeCount(); got != 4 {
			t.Fatalf("free count = %d, want 4", got)
		}
	})

	t.Run("invalid_count", func(t *testing.T) {
		a := NewBlockAllocator[int32](0, 4)
		if _, err := a.Allocate(0); err == nil {
			t.Fatal("want error for zero count")
		}
	})
}

func TestPartitionedAllocator(t *testing.T) {
	a := NewPartitionedAllocator[int32](1, 4, 1024)
	ids, err := a.Allocate(1)
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] != 256 {
		t.Fatalf("first id = %d, want 256", ids[0])
	}
	if got := a.FreeCount(); got != 255 {
		t.Fatalf("free count = %d, want 255", got)
	}
}
