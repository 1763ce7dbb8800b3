package event

import (
	"sync"
	"testing"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe("lock.acquired", func(e Event) {
		got = append(got, e)
	})

	bus.Publish(NewLockAcquiredEvent("scope1", "src/auth.ts", "alice", "WRITING"))
	bus.Publish(NewLockReleasedEvent("scope1", "src/auth.ts", "alice"))

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	acq, ok := got[0].(LockAcquiredEvent)
	if !ok {
		t.Fatalf("event type = %T, want LockAcquiredEvent", got[0])
	}
	if acq.HolderID != "alice" || acq.FilePath != "src/auth.ts" || acq.Mode != "WRITING" {
		t.Errorf("unexpected event payload: %+v", acq)
	}
	if acq.Timestamp().IsZero() {
		t.Error("event timestamp should be set")
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus()

	count := 0
	bus.SubscribeAll(func(Event) { count++ })

	bus.Publish(NewLockAcquiredEvent("s", "a.go", "u1", "READING"))
	bus.Publish(NewLockExpiredEvent("s", "a.go", "u1"))
	bus.Publish(NewHeadAdvancedEvent("s", "abc1", "def2"))

	if count != 3 {
		t.Errorf("wildcard handler called %d times, want 3", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.Subscribe("lock.released", func(Event) { count++ })

	bus.Publish(NewLockReleasedEvent("s", "a.go", "u1"))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	bus.Publish(NewLockReleasedEvent("s", "a.go", "u1"))

	if count != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", count)
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe() of same id should return false")
	}
}

func TestPublishRecoversPanics(t *testing.T) {
	bus := NewBus()

	called := false
	bus.Subscribe("lock.acquired", func(Event) { panic("boom") })
	bus.Subscribe("lock.acquired", func(Event) { called = true })

	bus.Publish(NewLockAcquiredEvent("s", "a.go", "u1", "READING"))

	if !called {
		t.Error("panic in one handler must not block the next")
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(NewLockRefreshedEvent("s", "a.go", "u1", "READING"))
			}
		}()
	}
	wg.Wait()

	if count != 16*50 {
		t.Errorf("handler called %d times, want %d", count, 16*50)
	}
}
