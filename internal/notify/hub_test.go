package notify

import (
	"testing"
	"time"

	"quizarena-service/internal/domain"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(domain.ScoreEvent{UserID: "u1", Points: 100, Level: 1})

	for _, ch := range []<-chan domain.ScoreEvent{a, b} {
		select {
		case ev := <-ch:
			if ev.UserID != "u1" || ev.Points != 100 {
				t.Fatalf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	// must not panic or block
	hub.Publish(domain.ScoreEvent{UserID: "u1"})
	if hub.SubscriberCount() != 0 {
		t.Fatal("expected no subscribers")
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	// overflow the buffer without draining
	for i := 0; i < 20; i++ {
		hub.Publish(domain.ScoreEvent{UserID: "u1", Points: i})
	}

	var last domain.ScoreEvent
	for {
		select {
		case ev := <-ch:
			last = ev
			continue
		default:
		}
		break
	}
	if last.Points != 19 {
		t.Fatalf("newest event must survive the drops, got points=%d", last.Points)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatal("subscriber not removed")
	}
	// publishing after cancel must not panic
	hub.Publish(domain.ScoreEvent{UserID: "u1"})
}
