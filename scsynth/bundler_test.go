package scsynth

import (
	"testing"

	"github.com/chabad360/go-scsynth/osc"
)

func approxEpoch(t *testing.T, tag osc.Timetag, want float64) {
	t.Helper()
	if got := tag.Epoch(); got < want-1e-6 || got > want+1e-6 {
		t.Fatalf("epoch = %f, want %f", got, want)
	}
}

func TestBundlerRelativeResolution(t *testing.T) {
	m1 := osc.NewMessage("/s_new", "sine", int32(10001), int32(0), int32(1))
	m2 := osc.NewMessage("/n_free", int32(10001))

	b := NewBundler(0)
	b.Add(m1)
	b.Wait(1)
	b.Add(m2)

	bundle, err := b.BuildAt(1000)
	if err != nil {
		t.Fatal(err)
	}
	approxEpoch(t, bundle.Timetag, 1000)

	if len(bundle.Elements) != 2 {
		t.Fatalf("elements = %d, want 2", len(bundle.Elements))
	}

	// Offset zero rides in the root bundle directly.
	if msg, ok := bundle.Elements[0].(*osc.Message); !ok || msg.Address != "/s_new" {
		t.Fatalf("element 0 = %v, want /s_new message", bundle.Elements[0])
	}

	// The waited message gets its own sub-bundle one second later.
	sub, ok := bundle.Elements[1].(*osc.Bundle)
	if !ok {
		t.Fatalf("element 1 = %T, want *osc.Bundle", bundle.Elements[1])
	}
	approxEpoch(t, sub.Timetag, 1001)
	if msg, ok := sub.Elements[0].(*osc.Message); !ok || msg.Address != "/n_free" {
		t.Fatalf("sub element = %v, want /n_free message", sub.Elements[0])
	}
}

func TestBundlerAbsoluteTimestamps(t *testing.T) {
	const abs = 2e9

	b := NewBundler(abs)
	b.AddAt(abs+5, osc.NewMessage("/n_free", int32(1)))

	bundle, err := b.BuildAt(1000)
	if err != nil {
		t.Fatal(err)
	}
	// An absolute root ignores "now" entirely.
	approxEpoch(t, bundle.Timetag, abs)

	sub, ok := bundle.Elements[0].(*osc.Bundle)
	if !ok {
		t.Fatalf("element = %T, want *osc.Bundle", bundle.Elements[0])
	}
	approxEpoch(t, sub.Timetag, abs+5)
}

func TestBundlerSingleNowRead(t *testing.T) {
	b := NewBundler(0.5)
	b.Add(osc.NewMessage("/status"))

	first, err := b.BuildAt(100)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.BuildAt(200)
	if err != nil {
		t.Fatal(err)
	}
	approxEpoch(t, first.Timetag, 100.5)
	approxEpoch(t, second.Timetag, 200.5)
}

func TestBundlerAddBundler(t *testing.T) {
	sub := NewBundler(1)
	sub.Add(osc.NewMessage("/n_free", int32(1)))

	b := NewBundler(0)
	b.Wait(2)
	b.AddBundler(sub)

	// The copy is deep: mutating the source afterwards changes nothing.
	sub.Add(osc.NewMessage("/quit"))

	bundle, err := b.BuildAt(1000)
	if err != nil {
		t.Fatal(err)
	}

	nested, ok := bundle.Elements[0].(*osc.Bundle)
	if !ok {
		t.Fatalf("element = %T, want *osc.Bundle", bundle.Elements[0])
	}
	// Relative sub timestamp 1, shifted by the accumulated wait of 2.
	approxEpoch(t, nested.Timetag, 1003)
	if len(nested.Elements) != 1 {
		t.Fatalf("nested elements = %d, want 1", len(nested.Elements))
	}
}

func TestBundlerAddMessage(t *testing.T) {
	b := NewBundler(0)
	b.AddMessage(0.25, "/n_run", int32(10001), int32(0))

	bundle, err := b.BuildAt(50)
	if err != nil {
		t.Fatal(err)
	}
	sub, ok := bundle.Elements[0].(*osc.Bundle)
	if !ok {
		t.Fatalf("element = %T, want *osc.Bundle", bundle.Elements[0])
	}
	approxEpoch(t, sub.Timetag, 50.25)
}

func TestBundlerNest(t *testing.T) {
	b := NewBundler(0)
	err := b.Nest(0.5, func(child *Bundler) error {
		child.Add(osc.NewMessage("/n_free", int32(1)))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	bundle, err := b.BuildAt(10)
	if err != nil {
		t.Fatal(err)
	}
	sub, ok := bundle.Elements[0].(*osc.Bundle)
	if !ok {
		t.Fatalf("element = %T, want *osc.Bundle", bundle.Elements[0])
	}
	approxEpoch(t, sub.Timetag, 10.5)
}

func TestBundlerSendUnbound(t *testing.T) {
	b := NewBundler(0)
	b.Add(osc.NewMessage("/status"))
	if err := b.Send(); err == nil {
		t.Fatal("want error sending an unbound bundler")
	}
}

func TestBundleContextPopMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("want panic on out-of-order pop")
		}
	}()

	bc := newBundleContext()
	a, b := NewBundler(0), NewBundler(0)
	bc.push(a)
	bc.pop(b)
}
