package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/crystal-mush/gomaze/pkg/events"
)

func TestTranscriptStoresGlobalEventsOnly(t *testing.T) {
	tr, err := OpenTranscript(filepath.Join(t.TempDir(), "t.db"), 3)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	tr.Receive(events.Event{Type: events.EvText, Lines: []string{"private"}})
	tr.Receive(events.Event{Type: events.EvMove, Source: "a"})
	for i, text := range []string{"one", "two", "three", "four"} {
		tr.Receive(events.Event{Type: events.EvShout, Room: i, Lines: []string{text}})
	}

	got, err := tr.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent = %+v, want 3 entries", got)
	}
	if got[0].Text != "two" || got[2].Text != "four" || got[2].Room != 3 {
		t.Errorf("Recent = %+v", got)
	}
}

func TestTranscriptPurge(t *testing.T) {
	tr, err := OpenTranscript(filepath.Join(t.TempDir(), "t.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	if tr.Limit() != DefaultTranscriptLimit {
		t.Errorf("Limit = %d", tr.Limit())
	}

	ctx := context.Background()
	old := TranscriptEntry{Time: time.Now().Add(-48 * time.Hour), Kind: "shout", Text: "old"}
	fresh := TranscriptEntry{Time: time.Now(), Kind: "shout", Text: "fresh"}
	for _, e := range []TranscriptEntry{old, fresh} {
		if err := tr.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	n, err := tr.Purge(ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v", n, err)
	}
	got, _ := tr.Recent(ctx, 10)
	if len(got) != 1 || got[0].Text != "fresh" {
		t.Errorf("after purge = %+v", got)
	}
}

func TestTranscriptClosedStopsDelivery(t *testing.T) {
	tr, err := OpenTranscript(filepath.Join(t.TempDir(), "t.db"), 10)
	if err != nil {
		t.Fatal(err)
	}
	bus := events.NewBus()
	bus.SubscribeGlobal(tr)
	tr.Close()
	if !tr.Closed() {
		t.Fatal("Closed = false after Close")
	}
	// Must not panic on the closed database.
	bus.EmitAll(events.Event{Type: events.EvShout, Lines: []string{"late"}})
}
