package oidc

import (
	"sync"
	"testing"
	"time"
)

func newStateService() *Service {
	return &Service{stateStore: make(map[string]time.Time)}
}

func TestConsumeStateSingleUse(t *testing.T) {
	s := newStateService()

	s.stateStore["tok"] = time.Now().Add(stateTTL)

	if err := s.consumeState("tok"); err != nil {
		t.Fatalf("expected first consume to pass, got %v", err)
	}

	if err := s.consumeState("tok"); err == nil {
		t.Fatal("expected second consume to fail")
	}
}

func TestConsumeStateExpired(t *testing.T) {
	s := newStateService()

	s.stateStore["tok"] = time.Now().Add(-time.Second)

	if err := s.consumeState("tok"); err == nil {
		t.Fatal("expected expired token to be refused")
	}

	if _, exists := s.stateStore["tok"]; exists {
		t.Fatal("expired token must be removed on use")
	}
}

func TestConsumeStateUnknown(t *testing.T) {
	s := newStateService()

	if err := s.consumeState("never-issued"); err == nil {
		t.Fatal("expected unknown token to be refused")
	}
}

func TestStateStoreConcurrentAccess(t *testing.T) {
	s := newStateService()

	var wg sync.WaitGroup

	// interleave issuing and consuming from multiple goroutines; run
	// with -race to catch unsynchronized map access
	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				state := string(rune('a'+j%26)) + "-tok"

				s.stateMu.Lock()
				s.stateStore[state] = time.Now().Add(stateTTL)
				s.stateMu.Unlock()

				_ = s.consumeState(state)
			}
		}()
	}

	wg.Wait()
}
