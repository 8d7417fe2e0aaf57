package module

import (
	"errors"
	"fmt"

	"tactics-sim/internal/domain"
)

// MaxSizeClass - максимальная сторона актора, для которой строится сетка.
const MaxSizeClass = 4

// Легенда террейна
const (
	TileFloor      = '.'
	TileWall       = '#'
	TileWater      = '~'
	TileHighGround = '^'
)

// HighGroundElevation - высота клетки '^'.
const HighGroundElevation = 3

var (
	ErrInvalidArea = errors.New("invalid area definition")
	ErrUnknownDef  = errors.New("unknown definition")
)

// AreaDef - статическое описание зоны.
type AreaDef struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Width       int              `yaml:"width"`
	Height      int              `yaml:"height"`
	Terrain     []string         `yaml:"terrain"`
	Props       []PropPlacement  `yaml:"props"`
	Transitions []TransitionDef  `yaml:"transitions"`
	Triggers    []TriggerDef     `yaml:"triggers"`
	Encounters  []AreaEncounter  `yaml:"encounters"`
	Merchants   []MerchantDef    `yaml:"merchants"`
	Actors      []ActorPlacement `yaml:"actors"`

	// Производные сетки, заполняются в Finalize.
	transparent []bool
	elevation   []uint8
	passGrids   [MaxSizeClass + 1][]bool
}

// Finalize проверяет размеры, разбирает террейн и предрасчитывает
// сетки проходимости для каждого класса размера.
func (a *AreaDef) Finalize() error {
	// 1. Размеры
	if a.Width <= 0 || a.Height <= 0 {
		return fmt.Errorf("%w: area %q has size %dx%d", ErrInvalidArea, a.ID, a.Width, a.Height)
	}
	if len(a.Terrain) != a.Height {
		return fmt.Errorf("%w: area %q has %d terrain rows, expected %d", ErrInvalidArea, a.ID, len(a.Terrain), a.Height)
	}

	n := a.Width * a.Height
	base := make([]bool, n)
	a.transparent = make([]bool, n)
	a.elevation = make([]uint8, n)

	// 2. Легенда
	for y, row := range a.Terrain {
		if len(row) != a.Width {
			return fmt.Errorf("%w: area %q row %d has width %d, expected %d", ErrInvalidArea, a.ID, y, len(row), a.Width)
		}
		for x := 0; x < a.Width; x++ {
			idx := y*a.Width + x
			switch row[x] {
			case TileFloor:
				base[idx] = true
				a.transparent[idx] = true
			case TileWater:
				a.transparent[idx] = true
			case TileHighGround:
				base[idx] = true
				a.transparent[idx] = true
				a.elevation[idx] = HighGroundElevation
			default:
				// стена и всё неизвестное
			}
		}
	}

	// 3. Сетки классов: клетка-якорь класса N проходима, если проходим
	// весь квадрат NxN, начиная с неё.
	a.passGrids[1] = base
	for class := 2; class <= MaxSizeClass; class++ {
		prev := a.passGrids[class-1]
		grid := make([]bool, n)
		for y := 0; y+class <= a.Height; y++ {
			for x := 0; x+class <= a.Width; x++ {
				idx := y*a.Width + x
				grid[idx] = prev[idx] && prev[idx+1] && prev[idx+a.Width] && prev[idx+a.Width+1]
			}
		}
		a.passGrids[class] = grid
	}

	// 4. Объекты за пределами зоны - структурная ошибка
	for i := range a.Transitions {
		if !a.containsRect(a.Transitions[i].Rect()) {
			return fmt.Errorf("%w: area %q transition %d out of bounds", ErrInvalidArea, a.ID, i)
		}
	}
	for i := range a.Triggers {
		if !a.containsRect(a.Triggers[i].Rect()) {
			return fmt.Errorf("%w: area %q trigger %d out of bounds", ErrInvalidArea, a.ID, i)
		}
	}
	return nil
}

func (a *AreaDef) containsRect(r domain.Rect) bool {
	return domain.Rect{W: a.Width, H: a.Height}.ContainsRect(r)
}

func (a *AreaDef) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < a.Width && y < a.Height
}

// Passable - проходимость якорной клетки для класса размера.
func (a *AreaDef) Passable(class, x, y int) bool {
	if !a.InBounds(x, y) {
		return false
	}
	if class < 1 {
		class = 1
	}
	if class > MaxSizeClass {
		class = MaxSizeClass
	}
	return a.passGrids[class][y*a.Width+x]
}

// Transparent - пропускает ли террейн свет.
func (a *AreaDef) Transparent(x, y int) bool {
	if !a.InBounds(x, y) {
		return false
	}
	return a.transparent[y*a.Width+x]
}

func (a *AreaDef) Elevation(x, y int) uint8 {
	if !a.InBounds(x, y) {
		return 0
	}
	return a.elevation[y*a.Width+x]
}
