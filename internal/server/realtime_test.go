package server

import (
	"context"
	"testing"
	"time"
)

func TestRealtimeDispatcherPublishesToEverySubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, cleanupFirst := dispatcher.Subscribe(ctx)
	defer cleanupFirst()
	second, cleanupSecond := dispatcher.Subscribe(ctx)
	defer cleanupSecond()

	dispatcher.Publish(RealtimeMessage{
		EventType: RealtimeEventMeetingChanged,
		EntityIDs: []string{"meeting-a"},
		Timestamp: time.Now().UTC(),
	})

	for index, stream := range []<-chan RealtimeMessage{first, second} {
		select {
		case received := <-stream:
			if received.EventType != RealtimeEventMeetingChanged {
				t.Fatalf("subscriber %d: expected event type %s, got %s", index, RealtimeEventMeetingChanged, received.EventType)
			}
			if len(received.EntityIDs) != 1 || received.EntityIDs[0] != "meeting-a" {
				t.Fatalf("subscriber %d: unexpected ids %v", index, received.EntityIDs)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %d: expected realtime message within deadline", index)
		}
	}
}

func TestRealtimeDispatcherIgnoresUntypedMessages(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx)
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{EntityIDs: []string{"meeting-b"}})

	select {
	case msg := <-stream:
		t.Fatalf("did not expect message without event type, got %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRealtimeDispatcherDropsMessagesForSlowSubscribers(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx)
	defer cleanup()

	published := dispatcher.bufferSize + 5
	done := make(chan struct{})
	go func() {
		for index := 0; index < published; index++ {
			dispatcher.Publish(RealtimeMessage{EventType: RealtimeEventDiscussionPointChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(stream) != dispatcher.bufferSize {
		t.Fatalf("expected buffered messages %d, got %d", dispatcher.bufferSize, len(stream))
	}
}

func TestRealtimeDispatcherUnsubscribesOnContextCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = dispatcher.Subscribe(ctx)
	if dispatcher.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber, got %d", dispatcher.SubscriberCount())
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
