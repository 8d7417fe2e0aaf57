package area

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/pkg/logger"
)

func occupiedCells(s *State, id domain.EntityID) []domain.Position {
	var out []domain.Position
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			if s.HasEntityAt(id, x, y) {
				out = append(out, domain.Position{X: x, Y: y})
			}
		}
	}
	return out
}

func assertFootprint(t *testing.T, s *State, e *domain.Entity) {
	t.Helper()
	got := occupiedCells(s, e.ID)
	want := e.Footprint().Points()
	if len(got) != len(want) {
		t.Fatalf("Expected %d occupied cells, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected cell %v, got %v", want[i], got[i])
		}
	}
}

func TestFootprintMatchesOccupancy(t *testing.T) {
	s := newTestArea(t, nil)
	id := mustAddActor(t, s, "ogre", 2, 2, false)
	e := s.env.Entities.Get(id)

	assertFootprint(t, s, e)

	if err := s.MoveEntity(id, 4, 3, 2); err != nil {
		t.Fatalf("MoveEntity failed: %v", err)
	}
	assertFootprint(t, s, e)
	if s.HasEntityAt(id, 2, 2) {
		t.Error("Old cell still holds the entity")
	}

	if !s.RemoveEntity(id) {
		t.Fatal("RemoveEntity returned false")
	}
	if cells := occupiedCells(s, id); len(cells) != 0 {
		t.Errorf("Expected no occupied cells after removal, got %v", cells)
	}
	if s.Contains(id) {
		t.Error("Area still lists removed entity")
	}
}

func TestAddActorErrors(t *testing.T) {
	s := newTestArea(t, nil)
	mustAddActor(t, s, "goblin", 3, 3, false)

	tests := []struct {
		name  string
		actor string
		x, y  int
		want  error
	}{
		{"negative x", "goblin", -1, 2, ErrOutOfBounds},
		{"past width", "goblin", 8, 2, ErrOutOfBounds},
		{"footprint past width", "ogre", 7, 2, ErrOutOfBounds},
		{"wall", "goblin", 0, 2, ErrBlocked},
		{"occupied", "goblin", 3, 3, ErrBlocked},
		{"large on wall edge", "ogre", 6, 2, ErrBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, _ := s.env.Module.Actor(tt.actor)
			_, err := s.AddActor(def, domain.Position{X: tt.x, Y: tt.y}, ActorOptions{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDerivedStats(t *testing.T) {
	s := newTestArea(t, nil)
	def, _ := s.env.Module.Actor("hero")
	def.HPPerLevel = 4
	id, err := s.AddActor(def, domain.Position{X: 1, Y: 1}, ActorOptions{Party: true, Level: 3})
	if err != nil {
		t.Fatal(err)
	}
	e := s.env.Entities.Get(id)

	if e.Stats.MaxHP != 28 || e.Stats.HP != 28 {
		t.Errorf("Expected 28 HP at level 3, got %d/%d", e.Stats.HP, e.Stats.MaxHP)
	}
	if !e.IsParty() || !e.AI.Controlled {
		t.Error("Expected party member controlled by the player")
	}
	if e.Faction != domain.FactionFriendly {
		t.Errorf("Expected friendly faction, got %s", e.Faction)
	}
}

func TestPartyVisibility(t *testing.T) {
	s := newTestArea(t, nil)
	id := mustAddActor(t, s, "hero", 1, 1, true)

	if !s.IsVisible(1, 1) || !s.IsExplored(1, 1) {
		t.Fatal("Expected own cell visible and explored")
	}
	if err := s.MoveEntity(id, 6, 4, 5); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			if s.IsVisible(x, y) && !s.IsExplored(x, y) {
				t.Errorf("Cell (%d,%d) visible but not explored", x, y)
			}
		}
	}
	if !s.IsExplored(1, 1) {
		t.Error("Explored cells must stay explored")
	}
}

func TestPropSweepIdempotent(t *testing.T) {
	s := newTestArea(t, nil)
	crate, _ := s.env.Module.Prop("crate")
	hero := grid.Requester{SizeClass: 1, Size: domain.Size{W: 1, H: 1}}

	h, err := s.AddProp(crate, domain.Position{X: 3, Y: 3}, true)
	if err != nil {
		t.Fatalf("AddProp failed: %v", err)
	}
	if s.IsPassable(hero, nil, 3, 3) {
		t.Fatal("Expected impassable crate cell")
	}
	if _, err := s.AddProp(crate, domain.Position{X: 3, Y: 3}, true); !errors.Is(err, ErrPropOverlap) {
		t.Errorf("Expected ErrPropOverlap, got %v", err)
	}

	s.MarkPropForRemoval(h)
	s.Update(16)
	s.Update(16)

	if s.PropCount() != 0 {
		t.Errorf("Expected 0 props, got %d", s.PropCount())
	}
	if s.PropIndexAt(3, 3) != grid.None || !s.IsPassable(hero, nil, 3, 3) {
		t.Error("Expected cell cleared after sweep")
	}

	again, err := s.AddProp(crate, domain.Position{X: 4, Y: 4}, true)
	if err != nil {
		t.Fatal(err)
	}
	if again != h {
		t.Errorf("Expected freed slot %d to be reused, got %d", h, again)
	}
}

func TestDoorToggleChangesOnlyDoorCells(t *testing.T) {
	s := newTestArea(t, nil)
	door, _ := s.env.Module.Prop("door")
	hero := grid.Requester{SizeClass: 1, Size: domain.Size{W: 1, H: 1}}

	h, err := s.AddProp(door, domain.Position{X: 4, Y: 1}, true)
	if err != nil {
		t.Fatal(err)
	}
	if s.IsPassable(hero, nil, 4, 1) || s.Transparent(4, 1) {
		t.Fatal("Expected closed door to block")
	}
	if !s.ToggleProp(h) {
		t.Fatal("ToggleProp returned false")
	}
	if !s.IsPassable(hero, nil, 4, 1) || !s.Transparent(4, 1) {
		t.Error("Expected open door to pass")
	}

	s.SetPropEnabled(h, false)
	if s.ToggleProp(h) {
		t.Error("Expected disabled door to ignore toggle")
	}
	if s.ToggleProp(42) {
		t.Error("Expected missing prop toggle to be a no-op")
	}
}

func TestContainerTake(t *testing.T) {
	s := newTestArea(t, nil)
	crate, _ := s.env.Module.Prop("crate")
	h, _ := s.AddProp(crate, domain.Position{X: 2, Y: 2}, true)

	if _, err := s.TakeFromContainer(h, "coin", 1, nil); err == nil {
		t.Error("Expected error for closed container")
	}
	s.ToggleProp(h)
	bag, err := s.TakeFromContainer(h, "coin", 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(bag) != 1 || bag[0].Quantity != 2 {
		t.Errorf("Expected 2 coins taken, got %v", bag)
	}
	if s.Prop(h).Items[0].Quantity != 3 {
		t.Errorf("Expected 3 coins left, got %d", s.Prop(h).Items[0].Quantity)
	}
}

func TestSpawnEncounter(t *testing.T) {
	s := newTestArea(t, nil)
	pack, _ := s.env.Module.Encounter("pack")

	// Прямоугольник на две клетки, обе заняты
	full := domain.Rect{X: 1, Y: 1, W: 2, H: 1}
	mustAddActor(t, s, "goblin", 1, 1, false)
	mustAddActor(t, s, "goblin", 2, 1, false)

	hook := test.NewLocal(logger.Log)
	defer hook.Reset()
	if n := s.SpawnEncounter(pack, full); n != 0 {
		t.Errorf("Expected 0 actors in full rect, got %d", n)
	}
	last := hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel || last.Message != "Encounter spawned no actors" {
		t.Errorf("Expected 'Encounter spawned no actors' warning, got %+v", last)
	}

	open := domain.Rect{X: 1, Y: 3, W: 6, H: 2}
	before := len(s.Entities())
	if n := s.SpawnEncounter(pack, open); n != 2 {
		t.Errorf("Expected 2 actors, got %d", n)
	}
	if got := len(s.Entities()) - before; got != 2 {
		t.Errorf("Expected 2 new entities, got %d", got)
	}
	for _, id := range s.Entities()[before:] {
		e := s.env.Entities.Get(id)
		if !open.ContainsRect(e.Footprint()) {
			t.Errorf("Spawned actor at %v outside rect", e.Pos)
		}
	}
}

func TestTriggerFiresOnceUntilReenabled(t *testing.T) {
	alarm := &recorder{}
	s := newTestArea(t, fakeScripts{"alarm": alarm})
	id := mustAddActor(t, s, "hero", 4, 2, true)
	s.DrainPending()

	step := func(x int) []domain.Hook {
		if err := s.MoveEntity(id, x, 2, 1); err != nil {
			t.Fatal(err)
		}
		return hooksOf(s.DrainPending(), alarm)
	}

	if got := step(5); len(got) != 1 || got[0] != domain.HookTrigger {
		t.Fatalf("Expected one trigger call, got %v", got)
	}
	step(4)
	if got := step(5); len(got) != 0 {
		t.Errorf("Expected fired trigger to stay silent, got %v", got)
	}

	st, _ := s.Trigger(0)
	if !st.Fired {
		t.Error("Expected trigger marked fired")
	}

	s.SetTriggerEnabled(0, true)
	step(4)
	if got := step(5); len(got) != 1 {
		t.Errorf("Expected trigger to fire again after re-enable, got %v", got)
	}
}

func TestSurfaceNotifications(t *testing.T) {
	s := newTestArea(t, nil)
	id := mustAddActor(t, s, "hero", 1, 1, true)

	cb := &recorder{}
	pts := []domain.Position{{X: 2, Y: 1}, {X: 3, Y: 1}, {X: 4, Y: 1}}
	h := s.AddSurface(pts, cb, 2)
	if got := s.SurfacesAt(3, 1); len(got) != 1 || got[0] != h {
		t.Fatalf("Expected surface %d at (3,1), got %v", h, got)
	}

	var hooks []domain.Hook
	for x := 2; x <= 5; x++ {
		if err := s.MoveEntity(id, x, 1, 1); err != nil {
			t.Fatal(err)
		}
		hooks = append(hooks, hooksOf(s.DrainPending(), cb)...)
	}

	want := []domain.Hook{domain.HookSurfaceEnter, domain.HookMovedInSurface, domain.HookSurfaceExit}
	if len(hooks) != len(want) {
		t.Fatalf("Expected %v, got %v", want, hooks)
	}
	for i := range want {
		if hooks[i] != want[i] {
			t.Errorf("Hook %d: expected %s, got %s", i, want[i], hooks[i])
		}
	}

	// Сущность на поверхности при её создании получает enter
	s.AddSurface([]domain.Position{{X: 5, Y: 1}}, cb, 0)
	if got := hooksOf(s.DrainPending(), cb); len(got) != 1 || got[0] != domain.HookSurfaceEnter {
		t.Errorf("Expected enter for occupant, got %v", got)
	}
}

func TestMerchantsAndFeedback(t *testing.T) {
	s := newTestArea(t, nil)

	m := s.Merchant("trader")
	if m == nil {
		t.Fatal("Expected merchant loaded")
	}
	if len(m.Items) != 1 {
		t.Errorf("Expected unknown item skipped, got %v", m.Items)
	}
	bag, err := m.Buy("coin", 2, nil)
	if err != nil || len(bag) != 1 || bag[0].Quantity != 2 {
		t.Fatalf("Buy failed: %v %v", bag, err)
	}
	if _, err := m.Buy("coin", 5, nil); err == nil {
		t.Error("Expected error buying more than stock")
	}

	s.AddFeedback("Промах!", domain.Position{X: 2, Y: 2})
	s.Update(600)
	if len(s.Feedback()) != 1 {
		t.Fatal("Expected feedback alive after 600ms")
	}
	s.Update(600)
	if len(s.Feedback()) != 0 {
		t.Error("Expected feedback pruned after 1200ms")
	}
}

type testTargeter struct {
	cancel    bool
	cancelled int
}

func (tt *testTargeter) ShouldCancel(*State) bool { return tt.cancel }
func (tt *testTargeter) Cancel()                  { tt.cancelled++ }

func TestTargeterCancel(t *testing.T) {
	s := newTestArea(t, nil)
	tg := &testTargeter{}
	s.SetTargeter(tg)

	s.Update(16)
	if s.Targeter() == nil {
		t.Fatal("Targeter cancelled too early")
	}
	tg.cancel = true
	s.Update(16)
	if s.Targeter() != nil || tg.cancelled != 1 {
		t.Errorf("Expected targeter cancelled once, got %d", tg.cancelled)
	}
}
