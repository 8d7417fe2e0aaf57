package domain

import "math"

// Position - координата клетки в локальной системе зоны.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Size - размер занимаемого прямоугольника в клетках.
type Size struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// Rect - прямоугольник клеток (footprint сущности или пропа).
type Rect struct {
	X, Y, W, H int
}

// FootprintOf строит прямоугольник по позиции и размеру.
// Нулевой размер трактуется как 1x1.
func FootprintOf(p Position, s Size) Rect {
	w, h := s.W, s.H
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return Rect{X: p.X, Y: p.Y, W: w, H: h}
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// ContainsRect проверяет, что other целиком лежит внутри r.
func (r Rect) ContainsRect(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.W <= r.X+r.W && other.Y+other.H <= r.Y+r.H
}

func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Each обходит все клетки прямоугольника построчно.
func (r Rect) Each(fn func(x, y int)) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			fn(x, y)
		}
	}
}

// Points возвращает клетки прямоугольника списком.
func (r Rect) Points() []Position {
	out := make([]Position, 0, r.W*r.H)
	r.Each(func(x, y int) {
		out = append(out, Position{X: x, Y: y})
	})
	return out
}

// DistanceTo возвращает точное расстояние до другой точки (float)
func (p Position) DistanceTo(other Position) float64 {
	return math.Sqrt(float64(p.DistanceSquaredTo(other)))
}

// DistanceSquaredTo возвращает квадрат расстояния (int) для сравнения без корней
func (p Position) DistanceSquaredTo(other Position) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Shift возвращает новую позицию со смещением.
func (p Position) Shift(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// DirectionTo возвращает единичный шаг по осям в сторону цели.
func (p Position) DirectionTo(other Position) (int, int) {
	return Sign(other.X - p.X), Sign(other.Y - p.Y)
}

// StepsTo - число шагов с диагоналями (чебышёвское расстояние).
func (p Position) StepsTo(other Position) int {
	dx := Abs(p.X - other.X)
	dy := Abs(p.Y - other.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func Sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// GapTo - число шагов между ближайшими клетками двух прямоугольников.
// Соседние прямоугольники дают 1, пересекающиеся - 0.
func (r Rect) GapTo(o Rect) int {
	dx := 0
	if o.X > r.X+r.W-1 {
		dx = o.X - (r.X + r.W - 1)
	} else if r.X > o.X+o.W-1 {
		dx = r.X - (o.X + o.W - 1)
	}
	dy := 0
	if o.Y > r.Y+r.H-1 {
		dy = o.Y - (r.Y + r.H - 1)
	} else if r.Y > o.Y+o.H-1 {
		dy = r.Y - (o.Y + o.H - 1)
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Add складывает позиции (позиция + дельта).
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub - дельта от other до p.
func (p Position) Sub(other Position) Position {
	return Position{X: p.X - other.X, Y: p.Y - other.Y}
}

// Size возвращает размер прямоугольника.
func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}
