package network

import (
	"os"
	"testing"

	"tactics-sim/pkg/api"
	"tactics-sim/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	a := b.Register("a")
	c := b.Register("c")
	if b.SubscriberCount() != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", b.SubscriberCount())
	}

	view := &api.AreaView{AreaID: "start"}
	b.Broadcast(view)
	if got := <-a; got != view {
		t.Errorf("Expected frame for a, got %v", got)
	}
	if got := <-c; got != view {
		t.Errorf("Expected frame for c, got %v", got)
	}

	b.Unregister("a")
	if _, ok := <-a; ok {
		t.Error("Expected channel a to be closed")
	}
	if b.SubscriberCount() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", b.SubscriberCount())
	}
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Register("slow")
	for i := 0; i < cap(ch)+5; i++ {
		b.Broadcast(&api.AreaView{Tick: uint64(i)})
	}
	if len(ch) != cap(ch) {
		t.Errorf("Expected full channel (%d), got %d", cap(ch), len(ch))
	}
	first := <-ch
	if first.Tick != 0 {
		t.Errorf("Expected oldest frame to survive, got tick %d", first.Tick)
	}
}

func TestRegisterReplacesChannel(t *testing.T) {
	b := NewBroadcaster()
	old := b.Register("x")
	_ = b.Register("x")
	if _, ok := <-old; ok {
		t.Error("Expected old channel to be closed")
	}
	if b.SubscriberCount() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", b.SubscriberCount())
	}
}
