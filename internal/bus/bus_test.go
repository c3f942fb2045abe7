package bus

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New[string](4)

	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish("hello")

	for i, ch := range []<-chan string{ch1, ch2} {
		select {
		case got := <-ch:
			if got != "hello" {
				t.Errorf("subscriber %d got %q", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[int](1)

	ch, cancel := b.Subscribe()
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}

	cancel()
	cancel() // idempotent

	if b.Len() != 0 {
		t.Fatalf("Len = %d after unsubscribe, want 0", b.Len())
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := New[int](1)

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(1)
	b.Publish(2) // buffer full, dropped; must not block

	got := <-ch
	if got != 1 {
		t.Errorf("got %d, want 1", got)
	}

	select {
	case v := <-ch:
		t.Errorf("unexpected second event %d", v)
	default:
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := New[struct{}](1)
	b.Publish(struct{}{}) // must not panic or block
}
