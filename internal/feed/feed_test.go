package feed

import (
	"context"
	"testing"
	"time"
)

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewChangeMessage("expenses", "e1", ActionInsert, "u1")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Table != "expenses" || got.RecordID != "e1" || got.Action != ActionInsert || got.ActorID != "u1" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestChangeMessageMalformed(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte(`{not json`)); err == nil {
		t.Fatal("expected an error for malformed input")
	}
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// A burst of notifications inside one window.
	for i := 0; i < 10; i++ {
		d.Notify()
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-d.Resyncs():
	case <-time.After(time.Second):
		t.Fatal("expected a resync request after the burst")
	}

	// No further notifications: no second resync.
	select {
	case <-d.Resyncs():
		t.Fatal("burst must coalesce to a single resync")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerSeparateBursts(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify()
	select {
	case <-d.Resyncs():
	case <-time.After(time.Second):
		t.Fatal("first resync missing")
	}

	d.Notify()
	select {
	case <-d.Resyncs():
	case <-time.After(time.Second):
		t.Fatal("second resync missing")
	}
}

func TestDebouncerQuietWithoutNotifications(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	select {
	case <-d.Resyncs():
		t.Fatal("resync emitted without any notification")
	case <-time.After(80 * time.Millisecond):
	}
}
