package engine

import (
	"testing"

	"tactics-sim/internal/domain"
)

func TestTurnOrderByInitiative(t *testing.T) {
	s := newTestSession(t, testConfig(), nil)
	h := hero(t, s)
	scout := mustSpawn(t, s, "scout", 10, 6)
	mustSpawn(t, s, "goblin", 10, 1)

	tm := s.Turns
	tm.StartCombat(s.Area())
	if tm.Len() != 3 {
		t.Fatalf("Expected 3 combatants, got %d", tm.Len())
	}

	if got := tm.Current(); got != scout.ID {
		t.Fatalf("Expected scout first (initiative 50), got %v", got)
	}
	if scout.AI.State != domain.AIStateCombat {
		t.Errorf("Expected scout in combat state, got %v", scout.AI.State)
	}
	if scout.AI.ActionPoints != scout.AI.MaxAP {
		t.Errorf("Expected full AP at turn start, got %d", scout.AI.ActionPoints)
	}

	tm.EndTurn(scout.ID)
	if scout.AI.NextActionTick != 50+domain.TimeCostRound {
		t.Errorf("Expected next tick %d, got %d", 50+domain.TimeCostRound, scout.AI.NextActionTick)
	}
	// При равной инициативе раньше ходит меньший хэндл (партия)
	if got := tm.Current(); got != h.ID {
		t.Errorf("Expected hero after scout, got %v", got)
	}
}

func TestCurrentOutsideCombat(t *testing.T) {
	s := newTestSession(t, testConfig(), nil)
	mustSpawn(t, s, "goblin", 10, 6)

	if got := s.Turns.Current(); !got.IsNil() {
		t.Errorf("Expected no turn holder outside combat, got %v", got)
	}
	if s.Turns.Len() != 2 {
		t.Errorf("Expected 2 entities tracked, got %d", s.Turns.Len())
	}
}

func TestCheckActivation(t *testing.T) {
	tests := []struct {
		name   string
		x, y   int
		expect bool
	}{
		{"Near", 3, 1, true},
		{"OutOfSight", 10, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, testConfig(), nil)
			h := hero(t, s)
			mustSpawn(t, s, "goblin", tt.x, tt.y)

			s.Turns.CheckActivation(s.Area(), h.ID)
			if s.Turns.InCombat() != tt.expect {
				t.Errorf("Expected InCombat=%v, got %v", tt.expect, s.Turns.InCombat())
			}
		})
	}
}

func TestRoundsOutOfCombat(t *testing.T) {
	s := newTestSession(t, testConfig(), nil)
	tm := s.Turns
	a := s.Area()

	if got := tm.Update(a, 450); got != 2 {
		t.Errorf("Expected 2 rounds after 450ms, got %d", got)
	}
	if got := tm.Update(a, 100); got != 0 {
		t.Errorf("Expected 0 rounds after 550ms, got %d", got)
	}
	if got := tm.Update(a, 50); got != 1 {
		t.Errorf("Expected 1 round at 600ms, got %d", got)
	}
}

func TestCombatRoundTurnover(t *testing.T) {
	s := newTestSession(t, testConfig(), nil)
	h := hero(t, s)
	g := mustSpawn(t, s, "goblin", 10, 6)
	tm := s.Turns
	a := s.Area()

	tm.StartCombat(a)
	if got := tm.Update(a, 100); got != 0 {
		t.Fatalf("Expected no round at combat start, got %d", got)
	}

	tm.Current()
	tm.EndTurn(h.ID)
	if got := tm.Current(); got != g.ID {
		t.Fatalf("Expected goblin turn, got %v", got)
	}
	tm.EndTurn(g.ID)

	if got := tm.Update(a, 100); got != 1 {
		t.Errorf("Expected 1 round after everyone acted, got %d", got)
	}
}

func TestCombatEndsWithoutHostiles(t *testing.T) {
	s := newTestSession(t, testConfig(), nil)
	h := hero(t, s)
	g := mustSpawn(t, s, "goblin", 10, 6)
	tm := s.Turns

	var changes []bool
	tm.OnCombatChanged = func(in bool) { changes = append(changes, in) }

	tm.StartCombat(s.Area())
	tm.Current()
	h.AI.SpendAP(4)

	g.Stats.TakeDamage(100)
	tm.Update(s.Area(), 100)

	if tm.InCombat() {
		t.Fatal("Expected combat to end")
	}
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("Expected [true false] notifications, got %v", changes)
	}
	if h.AI.ActionPoints != h.AI.MaxAP || h.AI.State != domain.AIStateIdle {
		t.Errorf("Expected hero calmed down with full AP, got state=%v ap=%d", h.AI.State, h.AI.ActionPoints)
	}
}

func TestResetSwitchesArea(t *testing.T) {
	s := newTestSession(t, testConfig(), nil)
	mustSpawn(t, s, "goblin", 10, 6)
	tm := s.Turns

	tm.StartCombat(s.Area())
	tm.Reset("cellar")

	if tm.InCombat() {
		t.Error("Expected Reset to end combat")
	}
	if tm.Len() != 0 {
		t.Errorf("Expected empty queue after Reset, got %d", tm.Len())
	}

	// Сущности чужой зоны не учитываются
	mustSpawn(t, s, "goblin", 10, 5)
	if tm.Len() != 0 {
		t.Errorf("Expected spawn in 'start' ignored, got %d", tm.Len())
	}
}
