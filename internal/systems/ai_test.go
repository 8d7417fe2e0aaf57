package systems

import (
	"testing"

	"tactics-sim/internal/domain"
)

func TestComputeNPCAction(t *testing.T) {
	setup := func(npcPos domain.Position) (*testWorld, *domain.Entity, *domain.Entity) {
		w := createTestWorld(10, 10)
		player := &domain.Entity{
			ID:      domain.PackEntityID(domain.KindParty, 1, 0),
			Name:    "Player",
			Faction: domain.FactionFriendly,
			Pos:     domain.Position{X: 5, Y: 5},
			Stats:   &domain.StatsComponent{HP: 10, MaxHP: 10},
		}
		npc := &domain.Entity{
			ID:      actorID(1),
			Name:    "Goblin",
			Faction: domain.FactionHostile,
			Pos:     npcPos,
			AI:      &domain.AIComponent{},
			Stats:   &domain.StatsComponent{HP: 10, MaxHP: 10},
			Vision:  &domain.VisionComponent{Radius: 6},
		}
		w.place(player)
		w.place(npc)
		return w, npc, player
	}

	t.Run("adjacent attacks", func(t *testing.T) {
		w, npc, player := setup(domain.Position{X: 4, Y: 4})
		got := ComputeNPCAction(npc, player, w, 0)
		if got.Action != AIActionAttack || got.Target != player.ID {
			t.Errorf("Expected ATTACK on player, got %s", got.Action)
		}
	})

	t.Run("visible pursues", func(t *testing.T) {
		w, npc, player := setup(domain.Position{X: 1, Y: 1})
		got := ComputeNPCAction(npc, player, w, 0)
		if got.Action != AIActionMove || got.DX != 1 || got.DY != 1 {
			t.Errorf("Expected MOVE (1,1), got %s (%d,%d)", got.Action, got.DX, got.DY)
		}
	})

	t.Run("wall blocks sight", func(t *testing.T) {
		w, npc, player := setup(domain.Position{X: 1, Y: 5})
		w.walls[domain.Position{X: 3, Y: 5}] = true
		got := ComputeNPCAction(npc, player, w, 0)
		if got.Action != AIActionWait {
			t.Errorf("Expected WAIT behind wall, got %s", got.Action)
		}
	})

	t.Run("out of aggro range", func(t *testing.T) {
		w, npc, player := setup(domain.Position{X: 5, Y: 5 - 5})
		npc.Vision.Radius = 3
		got := ComputeNPCAction(npc, player, w, 0)
		if got.Action != AIActionWait {
			t.Errorf("Expected WAIT out of range, got %s", got.Action)
		}
	})

	t.Run("dead npc waits", func(t *testing.T) {
		w, npc, player := setup(domain.Position{X: 4, Y: 4})
		npc.Stats.IsDead = true
		if got := ComputeNPCAction(npc, player, w, 0); got.Action != AIActionWait {
			t.Errorf("Expected WAIT for dead npc, got %s", got.Action)
		}
	})
}

func TestCalculateMoveBlockedBy(t *testing.T) {
	w := createTestWorld(5, 5)
	a := &domain.Entity{ID: actorID(1), Pos: domain.Position{X: 1, Y: 1}}
	b := &domain.Entity{ID: actorID(2), Pos: domain.Position{X: 2, Y: 1}}
	w.place(a)
	w.place(b)
	w.walls[domain.Position{X: 1, Y: 0}] = true

	if res := CalculateMove(a, 1, 0, w); res.HasMoved || res.BlockedBy != b.ID {
		t.Errorf("Expected to bump into %s, got %+v", b.ID, res)
	}
	if res := CalculateMove(a, 0, -1, w); res.HasMoved || !res.IsWall {
		t.Errorf("Expected wall, got %+v", res)
	}
	if res := CalculateMove(a, 0, 1, w); !res.HasMoved {
		t.Errorf("Expected free move, got %+v", res)
	}
}

func TestNearestHostile(t *testing.T) {
	npc := &domain.Entity{ID: actorID(1), Faction: domain.FactionHostile, Pos: domain.Position{X: 0, Y: 0}}
	far := &domain.Entity{ID: actorID(2), Faction: domain.FactionFriendly, Pos: domain.Position{X: 5, Y: 0}}
	near := &domain.Entity{ID: actorID(3), Faction: domain.FactionFriendly, Pos: domain.Position{X: 2, Y: 0}}
	ally := &domain.Entity{ID: actorID(4), Faction: domain.FactionHostile, Pos: domain.Position{X: 1, Y: 0}}

	if got := NearestHostile(npc, []*domain.Entity{far, ally, near}); got != near {
		t.Errorf("Expected nearest hostile %s, got %v", near.ID, got)
	}
}

func TestItemStacks(t *testing.T) {
	var merchant []domain.ItemStack
	merchant = AddItem(merchant, "potion", 3)
	merchant = AddItem(merchant, "potion", 2)
	if CountItem(merchant, "potion") != 5 || len(merchant) != 1 {
		t.Fatalf("Expected one stack of 5 potions, got %+v", merchant)
	}

	var bag []domain.ItemStack
	merchant, bag, err := TransferItem(merchant, bag, "potion", 5)
	if err != nil {
		t.Fatalf("TransferItem failed: %v", err)
	}
	if len(merchant) != 0 || CountItem(bag, "potion") != 5 {
		t.Errorf("Expected all potions moved, got %+v / %+v", merchant, bag)
	}
	if _, err := TakeItem(bag, "potion", 6); err == nil {
		t.Error("Expected error when taking more than available")
	}
}
