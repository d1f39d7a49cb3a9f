package outbox

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestClipKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", maxLastErrorLen-1) + "é" + "tail"
	got := clip(msg)
	if !utf8.ValidString(got) {
		t.Fatalf("clip split a rune")
	}
	if len(got) != maxLastErrorLen-1 {
		t.Fatalf("expected cut before the rune, got %d bytes", len(got))
	}
	if clip("short") != "short" {
		t.Fatalf("short messages pass through")
	}
}

func TestDomainEventValidate(t *testing.T) {
	ok := DomainEvent{EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder}
	if err := ok.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	future := ok
	future.Version = CurrentVersion + 1
	if err := future.validate(); err == nil {
		t.Fatalf("expected future version rejected")
	}
	bad := ok
	bad.AggregateType = "warehouse"
	if err := bad.validate(); err == nil {
		t.Fatalf("expected unknown aggregate rejected")
	}
}
