package bag

import "testing"

type policyA struct{ n int }
type policyB struct{ s string }

type admission interface{ Admit() bool }

type alwaysAdmit struct{}

func (alwaysAdmit) Admit() bool { return true }

func TestBag_PutGet(t *testing.T) {
	b := New()
	Put(b, policyA{n: 7})
	Put(b, policyB{s: "x"})

	a, ok := Get[policyA](b)
	if !ok || a.n != 7 {
		t.Fatalf("expected policyA{7}, got %+v ok=%v", a, ok)
	}
	pb, ok := Get[policyB](b)
	if !ok || pb.s != "x" {
		t.Fatalf("expected policyB{x}, got %+v ok=%v", pb, ok)
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", b.Len())
	}
}

func TestBag_Overwrite(t *testing.T) {
	b := New()
	Put(b, policyA{n: 1})
	Put(b, policyA{n: 2})
	a, _ := Get[policyA](b)
	if a.n != 2 {
		t.Fatalf("expected overwrite to win, got %d", a.n)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", b.Len())
	}
}

func TestBag_InterfaceKey(t *testing.T) {
	b := New()
	Put[admission](b, alwaysAdmit{})
	if _, ok := Get[alwaysAdmit](b); ok {
		t.Fatal("value stored under interface type should not be visible under concrete type")
	}
	v, ok := Get[admission](b)
	if !ok || !v.Admit() {
		t.Fatal("expected admission value under interface key")
	}
}

func TestBag_MissingAndDelete(t *testing.T) {
	b := New()
	if _, ok := Get[policyA](b); ok {
		t.Fatal("expected miss on empty bag")
	}
	Put(b, policyA{n: 3})
	Delete[policyA](b)
	if Has[policyA](b) {
		t.Fatal("expected value removed")
	}
}

func TestBag_CloneIsolation(t *testing.T) {
	b := New()
	Put(b, policyA{n: 1})
	clone := b.Clone()
	Put(clone, policyA{n: 9})
	a, _ := Get[policyA](b)
	if a.n != 1 {
		t.Fatalf("clone mutation leaked into original: %d", a.n)
	}
}
