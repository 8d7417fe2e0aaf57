package visibility

import (
	"os"
	"testing"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type openMap struct {
	w, h  int
	walls map[domain.Position]bool
}

func (m openMap) InBounds(x, y int) bool { return x >= 0 && y >= 0 && x < m.w && y < m.h }
func (m openMap) Transparent(x, y int) bool {
	return !m.walls[domain.Position{X: x, Y: y}]
}
func (m openMap) Elevation(x, y int) uint8 { return 0 }

func checkVisImpliesExplored(t *testing.T, tr *Tracker, w, h int) {
	t.Helper()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if tr.IsVisible(x, y) && !tr.IsExplored(x, y) {
				t.Fatalf("Cell (%d,%d) visible but not explored", x, y)
			}
		}
	}
}

func TestVisibleImpliesExplored(t *testing.T) {
	const w, h = 30, 20
	m := openMap{w: w, h: h, walls: map[domain.Position]bool{{X: 10, Y: 5}: true}}
	tr := New(w, h, 0)
	a := domain.PackEntityID(domain.KindParty, 1, 0)
	b := domain.PackEntityID(domain.KindParty, 1, 1)

	pos := domain.Position{X: 3, Y: 3}
	tr.Recompute(m, a, pos, 5, domain.Position{})
	tr.Recompute(m, b, domain.Position{X: 20, Y: 10}, 4, domain.Position{})
	checkVisImpliesExplored(t, tr, w, h)

	// Шагаем вправо: старые клетки слева гаснут, но остаются исследованными
	for i := 0; i < 10; i++ {
		pos = pos.Shift(1, 0)
		tr.Recompute(m, a, pos, 5, domain.Position{X: 1, Y: 0})
		checkVisImpliesExplored(t, tr, w, h)
	}

	if tr.IsVisible(0, 3) {
		t.Error("Cell left behind should no longer be visible")
	}
	if !tr.IsExplored(0, 3) {
		t.Error("Cell left behind should stay explored")
	}
	if !tr.IsVisible(20, 10) {
		t.Error("Second member's cell should stay visible")
	}

	tr.RemoveMember(b)
	if tr.IsVisible(20, 10) && pos.DistanceTo(domain.Position{X: 20, Y: 10}) > 5 {
		t.Error("Removed member should no longer contribute")
	}
	checkVisImpliesExplored(t, tr, w, h)
}

func TestIncrementalMatchesFull(t *testing.T) {
	const w, h = 25, 25
	m := openMap{w: w, h: h, walls: map[domain.Position]bool{{X: 12, Y: 12}: true, {X: 13, Y: 12}: true}}
	id := domain.PackEntityID(domain.KindParty, 1, 0)

	inc := New(w, h, 0)
	pos := domain.Position{X: 5, Y: 5}
	inc.Recompute(m, id, pos, 6, domain.Position{})
	for _, d := range []domain.Position{{X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}} {
		pos = pos.Add(d)
		inc.Recompute(m, id, pos, 6, d)
	}

	full := New(w, h, 0)
	full.RecomputeAll(m, []Observer{{ID: id, Center: pos, Radius: 6}})

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if inc.IsVisible(x, y) != full.IsVisible(x, y) {
				t.Fatalf("Cell (%d,%d): incremental=%v full=%v", x, y, inc.IsVisible(x, y), full.IsVisible(x, y))
			}
		}
	}
}

func TestExploredWordsRoundTrip(t *testing.T) {
	m := openMap{w: 70, h: 3}
	tr := New(70, 3, 0)
	tr.Recompute(m, domain.PackEntityID(domain.KindParty, 1, 0), domain.Position{X: 66, Y: 1}, 3, domain.Position{})

	words := tr.ExploredWords()
	if len(words) != 4 {
		t.Fatalf("Expected 4 words for 210 cells, got %d", len(words))
	}

	restored := New(70, 3, 0)
	if err := restored.SetExploredWords(words); err != nil {
		t.Fatalf("SetExploredWords failed: %v", err)
	}
	if !restored.IsExplored(66, 1) || restored.IsVisible(66, 1) {
		t.Error("Restored tracker should know explored cells but see nothing yet")
	}
	if err := restored.SetExploredWords(words[:2]); err == nil {
		t.Error("Expected error for wrong word count")
	}
}
