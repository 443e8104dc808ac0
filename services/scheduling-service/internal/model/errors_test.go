package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("book: %w", Errorf(KindSlotAlreadyBooked, "slot %s taken", "09:00"))
	if !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Fatalf("expected SlotAlreadyBooked match")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected NotFound match")
	}
	if KindOf(err) != KindSlotAlreadyBooked {
		t.Fatalf("unexpected kind %q", KindOf(err))
	}
	if KindOf(errors.New("boom")) != "" {
		t.Fatalf("plain errors have no kind")
	}
}
