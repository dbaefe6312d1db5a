package payments

import (
	"context"
	"testing"
)

func TestMemoryDeduperSeenDoesNotMark(t *testing.T) {
	d := NewMemoryDeduper()

	for i := 0; i < 2; i++ {
		seen, err := d.Seen(context.Background(), "evt_1")
		if err != nil {
			t.Fatalf("Seen returned error: %v", err)
		}
		if seen {
			t.Fatal("unmarked event id must not be reported as seen")
		}
	}
}

func TestMemoryDeduperMarkedEventIsSeen(t *testing.T) {
	d := NewMemoryDeduper()

	if err := d.Mark(context.Background(), "evt_1"); err != nil {
		t.Fatalf("Mark returned error: %v", err)
	}
	seen, err := d.Seen(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("Seen returned error: %v", err)
	}
	if !seen {
		t.Fatal("marked event id must be reported as seen")
	}
}

func TestMemoryDeduperKeysAreIndependent(t *testing.T) {
	d := NewMemoryDeduper()

	if err := d.Mark(context.Background(), "evt_a"); err != nil {
		t.Fatal(err)
	}
	seen, err := d.Seen(context.Background(), "evt_b")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("different event id must not be reported as seen")
	}
}
