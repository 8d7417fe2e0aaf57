package dungeon

import (
	"errors"
	"math/rand"
	"testing"

	"tactics-sim/pkg/module"
)

func TestBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	def, err := NewArea("crypt", rng).
		WithRooms(MaxRooms).
		WithPools(2).
		SpawnEncounter("rats", 2).
		PlaceProp("chest", 3).
		PlaceExit("down", "start", 1, 1).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// 1. Проверка размеров
	if def.Width != MapWidth || def.Height != MapHeight {
		t.Errorf("Expected map size %dx%d, got %dx%d", MapWidth, MapHeight, def.Width, def.Height)
	}
	if len(def.Terrain) != MapHeight {
		t.Fatalf("Expected %d terrain rows, got %d", MapHeight, len(def.Terrain))
	}

	// 2. Переход стоит на проходимой клетке
	if len(def.Transitions) != 1 {
		t.Fatalf("Expected 1 transition, got %d", len(def.Transitions))
	}
	tr := def.Transitions[0]
	if !def.Passable(1, tr.X, tr.Y) {
		t.Errorf("Transition [%d,%d] is inside a wall", tr.X, tr.Y)
	}

	// 3. Пропы только на полу
	for _, p := range def.Props {
		if def.Terrain[p.Y][p.X] != module.TileFloor {
			t.Errorf("Prop %s at [%d,%d] is not on floor", p.ID, p.X, p.Y)
		}
	}

	for _, enc := range def.Encounters {
		if !enc.AutoSpawn {
			t.Errorf("Expected encounter %s to auto spawn", enc.ID)
		}
	}
}

func TestStartPosIsFloor(t *testing.T) {
	b := NewArea("cave", rand.New(rand.NewSource(7))).WithRooms(MaxRooms)
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	x, y := b.StartPos()
	if !def.Passable(1, x, y) {
		t.Errorf("Start position [%d,%d] is inside a wall", x, y)
	}
}

func TestBuildWithoutRooms(t *testing.T) {
	_, err := NewArea("empty", rand.New(rand.NewSource(1))).Build()
	if !errors.Is(err, module.ErrInvalidArea) {
		t.Errorf("Expected ErrInvalidArea, got %v", err)
	}
}

// Тест вспомогательной функции пересечения комнат
func TestRect_Intersects(t *testing.T) {
	r1 := Rect{0, 0, 10, 10}
	r2 := Rect{5, 5, 10, 10} // Пересекается
	r3 := Rect{20, 20, 5, 5} // Не пересекается

	if !r1.Intersects(r2) {
		t.Error("Rects should intersect")
	}

	if r1.Intersects(r3) {
		t.Error("Rects should NOT intersect")
	}
}
