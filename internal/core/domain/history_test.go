package domain

import (
	"reflect"
	"testing"
)

func TestHistory_EvictsOldestFirst(t *testing.T) {
	h := NewHistory(1) // capacity 5
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		h.Add(Track{ID: id, Artist: "artist-" + id})
	}

	if h.Cap() != 5 {
		t.Fatalf("expected capacity 5, got %d", h.Cap())
	}
	var ids []string
	for _, tr := range h.Tracks() {
		ids = append(ids, tr.ID)
	}
	if want := []string{"3", "4", "5", "6", "7"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	if h.Contains("1") {
		t.Fatalf("evicted track still reported as present")
	}
	if !h.Contains("7") {
		t.Fatalf("latest track missing")
	}
}

func TestHistory_ArtistCount(t *testing.T) {
	h := NewHistory(3)
	h.Add(Track{ID: "a", Artist: "Daft Punk"})
	h.Add(Track{ID: "b", Artist: "Justice"})
	h.Add(Track{ID: "c", Artist: "Daft Punk"})

	if got := h.ArtistCount("Daft Punk"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := h.ArtistCount("Moderat"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestHistory_NilIsEmpty(t *testing.T) {
	var h *History
	if h.Len() != 0 || h.Contains("x") || h.ArtistCount("y") != 0 {
		t.Fatalf("nil history should behave as empty")
	}
}
