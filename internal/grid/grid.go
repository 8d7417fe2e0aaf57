package grid

import (
	"sort"

	"github.com/zyedidia/generic/mapset"

	"tactics-sim/internal/domain"
)

// None - отсутствие пропа/перехода/триггера в клетке.
const None = -1

// Terrain - статическая проходимость по классам размера (см. module.AreaDef).
type Terrain interface {
	Passable(class, x, y int) bool
}

// Requester - кто спрашивает о проходимости.
type Requester struct {
	ID        domain.EntityID
	SizeClass int
	Size      domain.Size
}

// RequesterOf строит Requester из сущности.
func RequesterOf(e *domain.Entity) Requester {
	return Requester{ID: e.ID, SizeClass: e.SizeClass, Size: e.Size}
}

// Index - плотные массивы клеток одной зоны. Индекс клетки: y*width+x.
//
// Индекс отражает реальность и не запрещает наложения: перед
// перемещением вызывающий обязан спросить IsPassable.
type Index struct {
	width, height int
	terrain       Terrain

	entities    []mapset.Set[domain.EntityID]
	surfaces    []mapset.Set[int]
	props       []int
	transitions []int
	triggers    []int

	// Кэши пропов: пересчитываются при переключении дверей
	propPass []bool
	propVis  []bool
}

func New(width, height int, terrain Terrain) *Index {
	n := width * height
	g := &Index{
		width:       width,
		height:      height,
		terrain:     terrain,
		entities:    make([]mapset.Set[domain.EntityID], n),
		surfaces:    make([]mapset.Set[int], n),
		props:       make([]int, n),
		transitions: make([]int, n),
		triggers:    make([]int, n),
		propPass:    make([]bool, n),
		propVis:     make([]bool, n),
	}
	for i := 0; i < n; i++ {
		g.props[i] = None
		g.transitions[i] = None
		g.triggers[i] = None
		g.propPass[i] = true
		g.propVis[i] = true
	}
	return g
}

func (g *Index) Width() int  { return g.width }
func (g *Index) Height() int { return g.height }

func (g *Index) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *Index) idx(x, y int) int {
	return y*g.width + x
}

// --- СУЩНОСТИ ---

// AddEntityPoints записывает footprint и возвращает поверхности под ним.
func (g *Index) AddEntityPoints(id domain.EntityID, r domain.Rect) []int {
	found := mapset.New[int]()
	r.Each(func(x, y int) {
		if !g.InBounds(x, y) {
			return
		}
		i := g.idx(x, y)
		if g.entities[i].Size() == 0 {
			g.entities[i] = mapset.New[domain.EntityID]()
		}
		g.entities[i].Put(id)
		g.surfaces[i].Each(found.Put)
	})
	return sortedInts(found)
}

// ClearEntityPoints стирает footprint и возвращает поверхности, которые он покрывал.
func (g *Index) ClearEntityPoints(id domain.EntityID, r domain.Rect) []int {
	found := mapset.New[int]()
	r.Each(func(x, y int) {
		if !g.InBounds(x, y) {
			return
		}
		i := g.idx(x, y)
		g.entities[i].Remove(id)
		g.surfaces[i].Each(found.Put)
	})
	return sortedInts(found)
}

// EntitiesAt возвращает всех обитателей клетки по возрастанию хэндла.
func (g *Index) EntitiesAt(x, y int) []domain.EntityID {
	if !g.InBounds(x, y) {
		return nil
	}
	set := g.entities[g.idx(x, y)]
	if set.Size() == 0 {
		return nil
	}
	out := make([]domain.EntityID, 0, set.Size())
	set.Each(func(id domain.EntityID) {
		out = append(out, id)
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EntityAt - первый обитатель клетки или NilEntityID.
func (g *Index) EntityAt(x, y int) domain.EntityID {
	ids := g.EntitiesAt(x, y)
	if len(ids) == 0 {
		return domain.NilEntityID
	}
	return ids[0]
}

// HasEntity проверяет, записан ли id в клетке.
func (g *Index) HasEntity(id domain.EntityID, x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.entities[g.idx(x, y)].Has(id)
}

// IsPassable: каждая клетка footprint'а в пределах зоны, террейн проходим
// для класса размера, бит пропа выставлен, а все обитатели - из ignore.
// Сам requester игнорируется всегда.
func (g *Index) IsPassable(req Requester, ignore []domain.EntityID, x, y int) bool {
	r := domain.FootprintOf(domain.Position{X: x, Y: y}, req.Size)
	class := req.SizeClass
	if class < 1 {
		class = 1
	}

	if !g.InBounds(x, y) || !g.InBounds(r.X+r.W-1, r.Y+r.H-1) {
		return false
	}
	if !g.terrainPassable(class, r) {
		return false
	}

	for cy := r.Y; cy < r.Y+r.H; cy++ {
		for cx := r.X; cx < r.X+r.W; cx++ {
			i := g.idx(cx, cy)
			if !g.propPass[i] {
				return false
			}
			blocked := false
			g.entities[i].Each(func(other domain.EntityID) {
				if other != req.ID && !containsID(ignore, other) {
					blocked = true
				}
			})
			if blocked {
				return false
			}
		}
	}
	return true
}

// IsTerrainPassable проверяет только террейн и пропы, без обитателей.
func (g *Index) IsTerrainPassable(class int, r domain.Rect) bool {
	if !g.InBounds(r.X, r.Y) || !g.InBounds(r.X+r.W-1, r.Y+r.H-1) {
		return false
	}
	if !g.terrainPassable(class, r) {
		return false
	}
	ok := true
	r.Each(func(x, y int) {
		if !g.propPass[g.idx(x, y)] {
			ok = false
		}
	})
	return ok
}

// terrainPassable: квадратный footprint своего класса проверяется по
// якорю предрасчитанной сетки. Неквадратный или больше сетки (класс
// обрезан сверху) проверяется поклеточно по базовой сетке.
func (g *Index) terrainPassable(class int, r domain.Rect) bool {
	if g.terrain == nil {
		return true
	}
	if r.W == r.H && r.W == class {
		return g.terrain.Passable(class, r.X, r.Y)
	}
	for cy := r.Y; cy < r.Y+r.H; cy++ {
		for cx := r.X; cx < r.X+r.W; cx++ {
			if !g.terrain.Passable(1, cx, cy) {
				return false
			}
		}
	}
	return true
}

// IsFree - нет ни одного обитателя в прямоугольнике.
func (g *Index) IsFree(r domain.Rect) bool {
	free := true
	r.Each(func(x, y int) {
		if g.InBounds(x, y) && g.entities[g.idx(x, y)].Size() > 0 {
			free = false
		}
	})
	return free
}

func containsID(ids []domain.EntityID, id domain.EntityID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sortedInts(s mapset.Set[int]) []int {
	if s.Size() == 0 {
		return nil
	}
	out := make([]int, 0, s.Size())
	s.Each(func(v int) {
		out = append(out, v)
	})
	sort.Ints(out)
	return out
}
