package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vcanio/Terio-sub000/pkg/model"
)

func TestEventBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with buffer size 3, replay all
	pub.ConfigureTopic("test", TopicConfig{
		BufferSize: 3,
		ReplayAll:  true,
	})

	// Publish 5 events
	for i := 1; i <= 5; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get last 3 events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive last 3 events (3, 4, 5)
	receivedCount := 0
	for receivedCount < 3 {
		select {
		case event := <-sub.Events():
			receivedCount++
			t.Logf("Received replayed event version %d", event.Version)
			// Events should be 3, 4, 5 (last 3 of 5)
			expectedVersion := receivedCount + 2
			if event.Version != expectedVersion {
				t.Errorf("Expected version %d, got %d", expectedVersion, event.Version)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", receivedCount+1)
		}
	}

	if receivedCount != 3 {
		t.Errorf("Expected 3 replayed events, got %d", receivedCount)
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with buffer size 5, replay only last
	pub.ConfigureTopic("test", TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	// Publish 3 events
	for i := 1; i <= 3; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get only last event
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive only last event (version 3)
	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
		t.Logf("Received last event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	// Verify no more events are sent
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no extra events
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with no buffer
	pub.ConfigureTopic("test", TopicConfig{
		BufferSize: 0,
		ReplayAll:  false,
	})

	// Publish events before subscribing
	for i := 1; i <= 3; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe - should not receive any replayed events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Verify no events are received (because none were buffered)
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no events replayed
		t.Log("Correctly received no events (buffer disabled)")
	}

	// Now publish a new event - subscriber should receive it
	err = pub.Publish("test", "event", map[string]int{"num": 4})
	if err != nil {
		t.Fatalf("Failed to publish new event: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
		t.Logf("Received new event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestBoardChangedReplayedToLateSubscriber(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic(TopicBoard, TopicConfig{BufferSize: 1})

	b := model.NewBoard()
	b.CenterLabel = "Marta"
	if err := pub.Publish(TopicBoard, "center_renamed", BoardChanged{PatientID: "p1", Op: "center_renamed", Version: 3, Board: b}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	sub, err := pub.Subscribe(context.Background(), TopicBoard)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		var got BoardChanged
		if err := json.Unmarshal(event.Data, &got); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if got.Board.CenterLabel != "Marta" || got.Version != 3 {
			t.Errorf("unexpected payload %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for replayed board state")
	}
}

func TestSubscriptionCloseEndsStream(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := pub.Subscribe(ctx, TopicExport)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed channel after context cancellation")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("events channel not closed after cancellation")
	}

	// Publishing after the subscriber left must not panic
	if err := pub.Publish(TopicExport, "started", ExportStatus{Kind: "csv", State: "started"}); err != nil {
		t.Errorf("publish after unsubscribe failed: %v", err)
	}
}

func TestCloseDuringReplay(t *testing.T) {
	pub := NewSSEPublisher()
	pub.ConfigureTopic(TopicExport, TopicConfig{BufferSize: 10, ReplayAll: true})
	for i := 0; i < 10; i++ {
		if err := pub.Publish(TopicExport, "started", ExportStatus{Kind: "csv", State: "started"}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	subs := make(chan Subscription, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sub, err := pub.Subscribe(ctx, TopicExport); err == nil {
				subs <- sub
			}
		}()
	}
	pub.Close()
	wg.Wait()
	close(subs)

	// Every subscription that got in was replayed to and then closed
	for sub := range subs {
		n := 0
		for range sub.Events() {
			n++
		}
		if n != 10 {
			t.Errorf("replayed %d events, want 10", n)
		}
	}
	if _, err := pub.Subscribe(ctx, TopicExport); err == nil {
		t.Error("subscribe after close succeeded")
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSSE(&buf, Event{Topic: TopicExport, Type: "failed", Data: json.RawMessage(`{"kind":"map"}`), Version: 7})
	if err != nil {
		t.Fatalf("WriteSSE failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "id: 7\ndata: {") || !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("unexpected SSE frame %q", out)
	}
}
