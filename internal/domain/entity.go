package domain

// Faction определяет, кто кому враг.
type Faction uint8

const (
	FactionNeutral Faction = iota
	FactionFriendly
	FactionHostile
)

var factionToString = map[Faction]string{
	FactionNeutral:  "neutral",
	FactionFriendly: "friendly",
	FactionHostile:  "hostile",
}

var factionStringToType = map[string]Faction{
	"neutral":  FactionNeutral,
	"friendly": FactionFriendly,
	"hostile":  FactionHostile,
}

func (f Faction) String() string {
	if val, ok := factionToString[f]; ok {
		return val
	}
	return "unknown"
}

// ParseFaction конвертирует строку из YAML. Неизвестное значение - нейтрал.
func ParseFaction(s string) Faction {
	if val, ok := factionStringToType[s]; ok {
		return val
	}
	return FactionNeutral
}

// AIStateType - состояние поведения актора.
type AIStateType uint8

const (
	AIStateIdle AIStateType = iota
	AIStateCombat
)

// --- КОМПОНЕНТЫ ---

// StatsComponent - производные характеристики, считаются при добавлении в зону.
type StatsComponent struct {
	HP         int  `json:"hp"`
	MaxHP      int  `json:"maxHp"`
	Strength   int  `json:"strength"`
	Defense    int  `json:"defense"`
	Initiative int  `json:"initiative"`
	Reach      int  `json:"reach"` // дальность атаки в клетках
	IsDead     bool `json:"isDead"`
}

// AIComponent - состояние хода. Есть и у членов партии: он хранит
// NextActionTick и очки действий.
type AIComponent struct {
	State          AIStateType `json:"state"`
	NextActionTick int         `json:"nextActionTick"`
	ActionPoints   int         `json:"ap"`
	MaxAP          int         `json:"maxAp"`
	Controlled     bool        `json:"controlled"` // true - ходы приходят от игрока
}

// VisionComponent - настройки зрения
type VisionComponent struct {
	Radius int `json:"radius"`
}

// Color - RGBA в диапазоне [0, 1].
type Color [4]float32

// White - цвет по умолчанию (без тонировки).
var White = Color{1, 1, 1, 1}

// Subpos - субпиксельное смещение спрайта в долях клетки.
type Subpos struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// VisualState - транзитное визуальное состояние, которое мутируют анимации.
// Не сохраняется: после загрузки анимации восстанавливают его сами.
type VisualState struct {
	Color       Color             `json:"color"`
	ColorSec    Color             `json:"colorSec"`
	Subpos      Subpos            `json:"subpos"`
	Scale       float32           `json:"scale"`
	ImageLayers map[string]string `json:"imageLayers,omitempty"`
}

// DefaultVisual возвращает визуальное состояние без модификаций.
func DefaultVisual() VisualState {
	return VisualState{Color: White, Scale: 1}
}

// --- СУЩНОСТЬ ---

type Entity struct {
	ID      EntityID `json:"id"`
	DefID   string   `json:"defId"`
	Name    string   `json:"name"`
	Faction Faction  `json:"faction"`
	AreaID  string   `json:"areaId"`

	Pos       Position `json:"pos"`
	Size      Size     `json:"size"`
	SizeClass int      `json:"sizeClass"`

	Stats  *StatsComponent  `json:"stats,omitempty"`
	AI     *AIComponent     `json:"ai,omitempty"`
	Vision *VisionComponent `json:"vision,omitempty"`
	Visual VisualState      `json:"visual"`

	// Inventory - предметы члена партии (из контейнеров и у торговцев).
	Inventory []ItemStack `json:"inventory,omitempty"`

	// Callbacks - скриптовые колбэки самой сущности (on_moved и т.п.)
	Callbacks []Callback `json:"-"`

	// DisabledMillis - сколько член партии пролежал без сознания вне боя.
	DisabledMillis uint32 `json:"-"`
}

// Footprint возвращает текущий занимаемый прямоугольник.
func (e *Entity) Footprint() Rect {
	return FootprintOf(e.Pos, e.Size)
}

// IsParty - управляется ли сущность игроком.
func (e *Entity) IsParty() bool {
	return e.ID.Kind() == KindParty
}

func (e *Entity) IsAlive() bool {
	return e.Stats == nil || !e.Stats.IsDead
}

// IsHostileTo: враждебные воюют со всеми, кроме своих; остальные - только с враждебными.
func (e *Entity) IsHostileTo(other *Entity) bool {
	if e == nil || other == nil {
		return false
	}
	if e.Faction == FactionHostile {
		return other.Faction != FactionHostile && other.Faction != FactionNeutral
	}
	return other.Faction == FactionHostile && e.Faction != FactionNeutral
}

// Center - клетка, из которой сущность смотрит.
func (e *Entity) Center() Position {
	x, y := e.Footprint().Center()
	return Position{X: x, Y: y}
}
