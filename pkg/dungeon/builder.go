package dungeon

import (
	"fmt"
	"math/rand"

	"tactics-sim/pkg/module"
)

// Константы генерации
const (
	MapWidth  = 40
	MapHeight = 25
	MaxRooms  = 8
	MinSize   = 4
	MaxSize   = 10
)

// Rect - Вспомогательная структура для комнаты
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.W && r.X+r.W >= other.X &&
		r.Y <= other.Y+other.H && r.Y+r.H >= other.Y
}

// interior - клетки пола комнаты (без стен).
func (r Rect) interior() Rect {
	return Rect{X: r.X + 1, Y: r.Y + 1, W: r.W - 1, H: r.H - 1}
}

func createRoom(tiles [][]byte, room Rect) {
	in := room.interior()
	for y := in.Y; y < in.Y+in.H; y++ {
		for x := in.X; x < in.X+in.W; x++ {
			tiles[y][x] = module.TileFloor
		}
	}
}

func createHCorridor(tiles [][]byte, x1, x2, y int) {
	for x := min(x1, x2); x <= max(x1, x2); x++ {
		tiles[y][x] = module.TileFloor
	}
}

func createVCorridor(tiles [][]byte, y1, y2, x int) {
	for y := min(y1, y2); y <= max(y1, y2); y++ {
		tiles[y][x] = module.TileFloor
	}
}

func (b *AreaBuilder) randRange(min, max int) int {
	return b.rng.Intn(max-min+1) + min
}

// AreaBuilder предоставляет fluent API для процедурной зоны
type AreaBuilder struct {
	def   *module.AreaDef
	rooms []Rect
	tiles [][]byte
	rng   *rand.Rand
}

// NewArea создает новый builder для зоны
func NewArea(id string, rng *rand.Rand) *AreaBuilder {
	return &AreaBuilder{
		def: &module.AreaDef{ID: id, Name: id, Width: MapWidth, Height: MapHeight},
		rng: rng,
	}
}

// WithSize устанавливает размер карты
func (b *AreaBuilder) WithSize(width, height int) *AreaBuilder {
	b.def.Width = width
	b.def.Height = height
	return b
}

// WithRooms генерирует комнаты и коридоры
func (b *AreaBuilder) WithRooms(maxRooms int) *AreaBuilder {
	w, h := b.def.Width, b.def.Height

	// Заполняем стенами
	b.tiles = make([][]byte, h)
	for y := range b.tiles {
		row := make([]byte, w)
		for x := range row {
			row[x] = module.TileWall
		}
		b.tiles[y] = row
	}

	b.rooms = make([]Rect, 0, maxRooms)
	for i := 0; i < maxRooms; i++ {
		rw := b.randRange(MinSize, min(MaxSize, w-2))
		rh := b.randRange(MinSize, min(MaxSize, h-2))
		x := b.randRange(0, w-rw-1)
		y := b.randRange(0, h-rh-1)

		newRoom := Rect{X: x, Y: y, W: rw, H: rh}

		// Проверяем пересечения
		failed := false
		for _, other := range b.rooms {
			if newRoom.Intersects(other) {
				failed = true
				break
			}
		}
		if failed {
			continue
		}

		createRoom(b.tiles, newRoom)

		// Соединяем с предыдущей комнатой
		if len(b.rooms) > 0 {
			prevX, prevY := b.rooms[len(b.rooms)-1].Center()
			currX, currY := newRoom.Center()

			if b.rng.Intn(2) == 0 {
				createHCorridor(b.tiles, prevX, currX, prevY)
				createVCorridor(b.tiles, prevY, currY, currX)
			} else {
				createVCorridor(b.tiles, prevY, currY, prevX)
				createHCorridor(b.tiles, prevX, currX, currY)
			}
		}
		b.rooms = append(b.rooms, newRoom)
	}
	return b
}

// WithPools заливает водой угол случайных комнат (кроме первой).
func (b *AreaBuilder) WithPools(count int) *AreaBuilder {
	for i := 0; i < count && len(b.rooms) > 1; i++ {
		room := b.rooms[b.rng.Intn(len(b.rooms)-1)+1].interior()
		b.tiles[room.Y][room.X] = module.TileWater
	}
	return b
}

// SpawnEncounter привязывает энкаунтер к комнатам (кроме первой).
func (b *AreaBuilder) SpawnEncounter(encounterID string, count int) *AreaBuilder {
	for i := 0; i < count && len(b.rooms) > 1; i++ {
		room := b.rooms[b.rng.Intn(len(b.rooms)-1)+1].interior()
		b.def.Encounters = append(b.def.Encounters, module.AreaEncounter{
			ID: encounterID, X: room.X, Y: room.Y, W: room.W, H: room.H, AutoSpawn: true,
		})
	}
	return b
}

// PlaceProp ставит пропы на случайные клетки пола комнат
func (b *AreaBuilder) PlaceProp(propID string, count int) *AreaBuilder {
	for i := 0; i < count && len(b.rooms) > 0; i++ {
		room := b.rooms[b.rng.Intn(len(b.rooms))].interior()

		// Пробуем найти клетку пола (макс 20 попыток)
		for attempt := 0; attempt < 20; attempt++ {
			x := room.X + b.rng.Intn(room.W)
			y := room.Y + b.rng.Intn(room.H)
			if b.tiles[y][x] == module.TileFloor && !b.occupied(x, y) {
				b.def.Props = append(b.def.Props, module.PropPlacement{ID: propID, X: x, Y: y})
				break
			}
		}
	}
	return b
}

func (b *AreaBuilder) occupied(x, y int) bool {
	for _, p := range b.def.Props {
		if p.X == x && p.Y == y {
			return true
		}
	}
	return false
}

// PlaceExit размещает переход: "up" - в первой комнате, иначе в последней.
func (b *AreaBuilder) PlaceExit(direction, toArea string, toX, toY int) *AreaBuilder {
	if len(b.rooms) == 0 {
		return b
	}
	room := b.rooms[len(b.rooms)-1]
	if direction == "up" {
		room = b.rooms[0]
	}
	cx, cy := room.Center()
	b.def.Transitions = append(b.def.Transitions, module.TransitionDef{
		X: cx, Y: cy, W: 1, H: 1, ToArea: toArea, ToX: toX, ToY: toY,
	})
	return b
}

// StartPos возвращает стартовую позицию (центр первой комнаты)
func (b *AreaBuilder) StartPos() (int, int) {
	if len(b.rooms) > 0 {
		return b.rooms[0].Center()
	}
	return b.def.Width / 2, b.def.Height / 2
}

// Build собирает террейн и финализирует определение зоны
func (b *AreaBuilder) Build() (*module.AreaDef, error) {
	if b.tiles == nil {
		return nil, fmt.Errorf("%w: area %q built without rooms", module.ErrInvalidArea, b.def.ID)
	}
	b.def.Terrain = make([]string, len(b.tiles))
	for y, row := range b.tiles {
		b.def.Terrain[y] = string(row)
	}
	if err := b.def.Finalize(); err != nil {
		return nil, err
	}
	return b.def, nil
}
