package grid

import (
	"github.com/zyedidia/generic/mapset"

	"tactics-sim/internal/domain"
)

// --- ПРОПЫ ---

// SetPropPoints записывает хэндл пропа в footprint. Второй проп в той же
// клетке затирает первый: вызывающий проверяет PropAt заранее.
func (g *Index) SetPropPoints(handle int, r domain.Rect) {
	r.Each(func(x, y int) {
		if g.InBounds(x, y) {
			g.props[g.idx(x, y)] = handle
		}
	})
}

// ClearPropPoints снимает проп и возвращает клеткам проходимость и видимость.
func (g *Index) ClearPropPoints(handle int, r domain.Rect) {
	r.Each(func(x, y int) {
		if !g.InBounds(x, y) {
			return
		}
		i := g.idx(x, y)
		if g.props[i] == handle {
			g.props[i] = None
			g.propPass[i] = true
			g.propVis[i] = true
		}
	})
}

// SetPropCells меняет биты только указанных клеток (двери).
func (g *Index) SetPropCells(points []domain.Position, pass, vis bool) {
	for _, p := range points {
		if !g.InBounds(p.X, p.Y) {
			continue
		}
		i := g.idx(p.X, p.Y)
		g.propPass[i] = pass
		g.propVis[i] = vis
	}
}

// SetPropPassCells меняет только бит проходимости.
func (g *Index) SetPropPassCells(points []domain.Position, pass bool) {
	for _, p := range points {
		if g.InBounds(p.X, p.Y) {
			g.propPass[g.idx(p.X, p.Y)] = pass
		}
	}
}

// SetPropVisCells меняет только бит видимости.
func (g *Index) SetPropVisCells(points []domain.Position, vis bool) {
	for _, p := range points {
		if g.InBounds(p.X, p.Y) {
			g.propVis[g.idx(p.X, p.Y)] = vis
		}
	}
}

// ResetPropGrids сбрасывает кэши перед полным пересчётом.
func (g *Index) ResetPropGrids() {
	for i := range g.propPass {
		g.propPass[i] = true
		g.propVis[i] = true
	}
}

func (g *Index) PropAt(x, y int) int {
	if !g.InBounds(x, y) {
		return None
	}
	return g.props[g.idx(x, y)]
}

func (g *Index) PropPassable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.propPass[g.idx(x, y)]
}

func (g *Index) PropVisible(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.propVis[g.idx(x, y)]
}

// --- ПОВЕРХНОСТИ ---

func (g *Index) AddSurfacePoints(handle int, points []domain.Position) {
	for _, p := range points {
		if !g.InBounds(p.X, p.Y) {
			continue
		}
		i := g.idx(p.X, p.Y)
		if g.surfaces[i].Size() == 0 {
			g.surfaces[i] = mapset.New[int]()
		}
		g.surfaces[i].Put(handle)
	}
}

func (g *Index) RemoveSurfacePoints(handle int, points []domain.Position) {
	for _, p := range points {
		if g.InBounds(p.X, p.Y) {
			g.surfaces[g.idx(p.X, p.Y)].Remove(handle)
		}
	}
}

// SurfacesAt - отсортированные хэндлы поверхностей клетки.
func (g *Index) SurfacesAt(x, y int) []int {
	if !g.InBounds(x, y) {
		return nil
	}
	return sortedInts(g.surfaces[g.idx(x, y)])
}

// --- ПЕРЕХОДЫ И ТРИГГЕРЫ ---

func (g *Index) SetTransition(handle int, r domain.Rect) {
	r.Each(func(x, y int) {
		if g.InBounds(x, y) {
			g.transitions[g.idx(x, y)] = handle
		}
	})
}

func (g *Index) TransitionAt(x, y int) int {
	if !g.InBounds(x, y) {
		return None
	}
	return g.transitions[g.idx(x, y)]
}

func (g *Index) SetTrigger(handle int, r domain.Rect) {
	r.Each(func(x, y int) {
		if g.InBounds(x, y) {
			g.triggers[g.idx(x, y)] = handle
		}
	})
}

func (g *Index) TriggerAt(x, y int) int {
	if !g.InBounds(x, y) {
		return None
	}
	return g.triggers[g.idx(x, y)]
}
