package visibility

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/systems"
	"tactics-sim/pkg/logger"
)

// Tracker хранит видимость зоны: поле зрения каждого члена партии,
// их объединение pc_vis и монотонную карту исследованного pc_explored.
//
// Инвариант: после любого пересчёта pc_vis[i] влечёт pc_explored[i].
type Tracker struct {
	width, height int
	tolerance     int

	explored []uint64 // 64 клетки на слово
	vis      []bool

	members map[domain.EntityID]*memberFOV
	log     *logrus.Entry
}

type memberFOV struct {
	grid   []bool
	window domain.Rect // где в grid могут быть true
}

// Observer - член партии для полного пересчёта.
type Observer struct {
	ID     domain.EntityID
	Center domain.Position
	Radius int
}

func New(width, height, tolerance int) *Tracker {
	n := width * height
	return &Tracker{
		width:     width,
		height:    height,
		tolerance: tolerance,
		explored:  make([]uint64, (n+63)/64),
		vis:       make([]bool, n),
		members:   make(map[domain.EntityID]*memberFOV),
		log:       logger.Log.WithField("component", "visibility"),
	}
}

func (t *Tracker) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.width && y < t.height
}

// Recompute пересчитывает FOV одного члена партии после сдвига на delta.
// Очищается только прежнее окно, расширенное на delta, а не вся сетка.
func (t *Tracker) Recompute(m systems.SightMap, id domain.EntityID, center domain.Position, radius int, delta domain.Position) {
	mf, ok := t.members[id]
	if !ok {
		mf = &memberFOV{grid: make([]bool, t.width*t.height)}
		t.members[id] = mf
	}

	// 1. Затираем старое поле: прежнее окно и его сдвиг на delta
	dirty := mf.window
	if ok {
		dirty = union(mf.window, shift(mf.window, delta))
		t.clearWindow(mf, dirty)
	}

	// 2. Новый FOV
	mf.window = t.clip(domain.Rect{X: center.X - radius, Y: center.Y - radius, W: 2*radius + 1, H: 2*radius + 1})
	systems.ComputeFOV(m, t.tolerance, center.X, center.Y, radius, func(x, y int) {
		i := y*t.width + x
		mf.grid[i] = true
		t.explored[i/64] |= 1 << (uint(i) % 64)
	})

	// 3. Объединение только там, где что-то могло поменяться
	t.rebuild(union(dirty, mf.window))

	t.log.WithFields(logrus.Fields{
		"entity_id": id,
		"center":    center,
		"radius":    radius,
	}).Debug("Member FOV recomputed")
}

// RemoveMember убирает вклад члена партии (смерть, уход из зоны).
func (t *Tracker) RemoveMember(id domain.EntityID) {
	mf, ok := t.members[id]
	if !ok {
		return
	}
	delete(t.members, id)
	t.rebuild(mf.window)
}

// RecomputeAll - полный пересчёт (дверь поменяла видимость, загрузка).
// Члены партии, не переданные в observers, выбывают.
func (t *Tracker) RecomputeAll(m systems.SightMap, observers []Observer) {
	t.members = make(map[domain.EntityID]*memberFOV, len(observers))
	for i := range t.vis {
		t.vis[i] = false
	}
	for _, o := range observers {
		t.Recompute(m, o.ID, o.Center, o.Radius, domain.Position{})
	}
}

func (t *Tracker) clearWindow(mf *memberFOV, r domain.Rect) {
	r = t.clip(r)
	r.Each(func(x, y int) {
		mf.grid[y*t.width+x] = false
	})
}

// rebuild пересобирает pc_vis как OR по всем членам внутри r.
func (t *Tracker) rebuild(r domain.Rect) {
	r = t.clip(r)
	r.Each(func(x, y int) {
		i := y*t.width + x
		v := false
		for _, mf := range t.members {
			if mf.grid[i] {
				v = true
				break
			}
		}
		t.vis[i] = v
	})
}

func (t *Tracker) clip(r domain.Rect) domain.Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, t.width), min(r.Y+r.H, t.height)
	if x1 <= x0 || y1 <= y0 {
		return domain.Rect{}
	}
	return domain.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (t *Tracker) IsVisible(x, y int) bool {
	if !t.inBounds(x, y) {
		return false
	}
	return t.vis[y*t.width+x]
}

func (t *Tracker) IsExplored(x, y int) bool {
	if !t.inBounds(x, y) {
		return false
	}
	i := y*t.width + x
	return t.explored[i/64]&(1<<(uint(i)%64)) != 0
}

// IsRectVisible - виден ли хотя бы один угол прямоугольника.
func (t *Tracker) IsRectVisible(r domain.Rect) bool {
	visible := false
	r.Each(func(x, y int) {
		if !visible && t.IsVisible(x, y) {
			visible = true
		}
	})
	return visible
}

// ExploredWords возвращает копию упакованной карты для сохранения.
func (t *Tracker) ExploredWords() []uint64 {
	out := make([]uint64, len(t.explored))
	copy(out, t.explored)
	return out
}

// SetExploredWords восстанавливает карту из сохранения.
func (t *Tracker) SetExploredWords(words []uint64) error {
	if len(words) != len(t.explored) {
		return fmt.Errorf("explored bitmap has %d words, expected %d", len(words), len(t.explored))
	}
	copy(t.explored, words)
	return nil
}

func union(a, b domain.Rect) domain.Rect {
	if a.W == 0 || a.H == 0 {
		return b
	}
	if b.W == 0 || b.H == 0 {
		return a
	}
	x0, y0 := min(a.X, b.X), min(a.Y, b.Y)
	x1, y1 := max(a.X+a.W, b.X+b.W), max(a.Y+a.H, b.Y+b.H)
	return domain.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func shift(r domain.Rect, d domain.Position) domain.Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}
