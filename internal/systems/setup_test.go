package systems

import (
	"os"
	"testing"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize the global logger before running any tests
	logger.Init()

	os.Exit(m.Run())
}

// testWorld - карта со стенами поверх grid.Index.
type testWorld struct {
	*grid.Index
	w, h   int
	walls  map[domain.Position]bool
	height map[domain.Position]uint8
}

func createTestWorld(w, h int) *testWorld {
	tw := &testWorld{w: w, h: h, walls: map[domain.Position]bool{}, height: map[domain.Position]uint8{}}
	tw.Index = grid.New(w, h, tw)
	return tw
}

func (t *testWorld) Passable(class, x, y int) bool {
	for dy := 0; dy < class; dy++ {
		for dx := 0; dx < class; dx++ {
			p := domain.Position{X: x + dx, Y: y + dy}
			if p.X >= t.w || p.Y >= t.h || t.walls[p] {
				return false
			}
		}
	}
	return true
}

func (t *testWorld) Transparent(x, y int) bool {
	return !t.walls[domain.Position{X: x, Y: y}]
}

func (t *testWorld) Elevation(x, y int) uint8 {
	return t.height[domain.Position{X: x, Y: y}]
}

func (t *testWorld) place(e *domain.Entity) {
	t.AddEntityPoints(e.ID, e.Footprint())
}

func actorID(i uint32) domain.EntityID {
	return domain.PackEntityID(domain.KindActor, 1, i)
}
