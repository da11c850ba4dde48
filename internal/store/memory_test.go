package store

import (
	"sync"
	"testing"
	"time"
)

func snap(id, status string, progress int) JobSnapshot {
	return JobSnapshot{
		ID:        id,
		Status:    status,
		Progress:  progress,
		CheckedAt: time.Now(),
	}
}

func TestNewMemoryStore(t *testing.T) {
	m := NewMemoryStore()

	if m == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if got := len(m.GetAll()); got != 0 {
		t.Errorf("new store has %d snapshots, want 0", got)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	m := NewMemoryStore()

	m.Update(snap("j1", "running", 40))

	all := m.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() returned %d snapshots, want 1", len(all))
	}
	if all[0].ID != "j1" || all[0].Status != "running" || all[0].Progress != 40 {
		t.Errorf("stored snapshot = %+v", all[0])
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	m := NewMemoryStore()

	m.Update(snap("j1", "pending", 0))
	m.Update(snap("j1", "running", 75))

	all := m.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() returned %d snapshots, want 1", len(all))
	}
	if all[0].Status != "running" || all[0].Progress != 75 {
		t.Errorf("snapshot not overwritten: %+v", all[0])
	}
}

func TestMemoryStore_MultipleJobs(t *testing.T) {
	m := NewMemoryStore()

	m.Update(snap("a", "running", 10))
	m.Update(snap("b", "completed", 100))

	if got := len(m.GetAll()); got != 2 {
		t.Errorf("GetAll() returned %d snapshots, want 2", got)
	}
}

func TestMemoryStore_Get(t *testing.T) {
	m := NewMemoryStore()

	if _, ok := m.Get("missing"); ok {
		t.Error("Get() found a snapshot in an empty store")
	}

	m.Update(snap("j1", "running", 10))
	got, ok := m.Get("j1")
	if !ok {
		t.Fatal("Get() did not find stored snapshot")
	}
	if got.Status != "running" {
		t.Errorf("Get() status = %q, want running", got.Status)
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	m := NewMemoryStore()
	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	m.Update(snap("j1", "running", 50))

	select {
	case got := <-ch:
		if got.ID != "j1" {
			t.Errorf("received snapshot for %q, want j1", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for subscribed update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	m := NewMemoryStore()
	ch1 := m.Subscribe()
	ch2 := m.Subscribe()
	defer m.Unsubscribe(ch1)
	defer m.Unsubscribe(ch2)

	m.Update(snap("j1", "running", 10))

	for i, ch := range []<-chan JobSnapshot{ch1, ch2} {
		select {
		case got := <-ch:
			if got.ID != "j1" {
				t.Errorf("subscriber %d received snapshot for %q, want j1", i, got.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	m := NewMemoryStore()
	ch := m.Subscribe()

	m.Unsubscribe(ch)

	// channel must be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	// safe to call again
	m.Unsubscribe(ch)
}

func TestMemoryStore_UnsubscribeStopsDelivery(t *testing.T) {
	m := NewMemoryStore()
	ch := m.Subscribe()
	m.Unsubscribe(ch)

	// must not panic on a closed subscription
	m.Update(snap("j1", "running", 10))
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewMemoryStore()
	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	// fill well past the buffer without reading; Update must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 250; i++ {
			m.Update(snap("j1", "running", i%100))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update blocked on a slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	m := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Update(snap("j1", "running", j))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.GetAll()
			}
		}()
	}
	wg.Wait()
}
