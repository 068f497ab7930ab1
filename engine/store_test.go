package engine

import (
	"errors"
	"testing"
)

// TestStoreRollbackOnError verifies a failing mutation leaves no partial write and notifies nobody.
func TestStoreRollbackOnError(t *testing.T) {
	s := NewStore(NewGame(1))
	calls := 0
	s.Subscribe(func(GameState) { calls++ })

	boom := errors.New("boom")
	err := s.Update(func(g *GameState) error {
		g.Turn = 99
		g.Players = append(g.Players, Player{ID: "ghost"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update error: want boom, got %v", err)
	}
	g := s.GetGameState()
	if g.Turn != 0 || len(g.Players) != 0 {
		t.Errorf("partial write visible: turn=%d players=%d", g.Turn, len(g.Players))
	}
	if calls != 0 {
		t.Errorf("listener called %d times for a failed update", calls)
	}
}

// TestStoreListenersInOrder verifies listeners see each commit in subscription order.
func TestStoreListenersInOrder(t *testing.T) {
	s := NewStore(NewGame(1))
	var order []string
	var seen []int
	s.Subscribe(func(g GameState) { order = append(order, "first"); seen = append(seen, g.Turn) })
	s.Subscribe(func(g GameState) { order = append(order, "second") })

	for i := 1; i <= 2; i++ {
		turn := i
		if err := s.Update(func(g *GameState) error { g.Turn = turn; return nil }); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	want := []string{"first", "second", "first", "second"}
	if len(order) != len(want) {
		t.Fatalf("calls: want %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order: want %v, got %v", want, order)
		}
	}
	if seen[0] != 1 || seen[1] != 2 {
		t.Errorf("committed states: want turns [1 2], got %v", seen)
	}
}

// TestStoreUnsubscribe verifies an unsubscribed listener stops receiving updates.
func TestStoreUnsubscribe(t *testing.T) {
	s := NewStore(NewGame(1))
	calls := 0
	unsub := s.Subscribe(func(GameState) { calls++ })

	_ = s.Update(func(g *GameState) error { return nil })
	unsub()
	unsub() // idempotent
	_ = s.Update(func(g *GameState) error { return nil })

	if calls != 1 {
		t.Errorf("calls: want 1, got %d", calls)
	}
}

// TestStoreReadsAreCopies verifies callers can't mutate the store through a read.
func TestStoreReadsAreCopies(t *testing.T) {
	seed := NewGame(1)
	seed.Players = []Player{{ID: "p1", Hand: []string{"W1"}}}
	s := NewStore(seed)

	g := s.GetGameState()
	g.Players[0].Hand[0] = "X"
	g.Players[0].Money = 1_000_000

	again := s.GetGameState()
	if again.Players[0].Hand[0] != "W1" || again.Players[0].Money != 0 {
		t.Errorf("store mutated through read copy: %+v", again.Players[0])
	}

	var fromListener GameState
	s.Subscribe(func(g GameState) { fromListener = g })
	_ = s.Update(func(g *GameState) error { g.Turn = 3; return nil })
	fromListener.Players[0].Hand[0] = "Y"
	if s.GetGameState().Players[0].Hand[0] != "W1" {
		t.Error("store mutated through listener copy")
	}
}

// TestStoreFrozenAtEnd verifies no mutation commits once the game has ended.
func TestStoreFrozenAtEnd(t *testing.T) {
	s := NewStore(NewGame(1))
	if err := s.Update(func(g *GameState) error { g.Phase = PhaseEnd; return nil }); err != nil {
		t.Fatalf("Update to END: %v", err)
	}
	err := s.Update(func(g *GameState) error { g.Turn = 5; return nil })
	if RejectionCodeOf(err) != ErrCodeWrongPhase {
		t.Fatalf("want WRONG_PHASE after END, got %v", err)
	}
	if s.GetGameState().Turn != 0 {
		t.Error("frozen state was modified")
	}
}

// TestStoreReplace verifies Replace installs a state and notifies listeners.
func TestStoreReplace(t *testing.T) {
	s := NewStore(NewGame(1))
	calls := 0
	s.Subscribe(func(GameState) { calls++ })

	restored := NewGame(2)
	restored.Phase = PhaseEnd
	restored.Turn = 12
	s.Replace(restored)

	if got := s.GetGameState(); got.Turn != 12 || got.Phase != PhaseEnd {
		t.Errorf("Replace: got turn=%d phase=%s", got.Turn, got.Phase)
	}
	if calls != 1 {
		t.Errorf("listener calls: want 1, got %d", calls)
	}
}
