package module

import (
	"strings"

	"tactics-sim/internal/domain"
)

// Все определения иммутабельны после Load: ядро держит на них указатели
// и никогда их не мутирует.

// ActorDef - шаблон актора.
type ActorDef struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Faction    string      `yaml:"faction"`
	Size       domain.Size `yaml:"size"`
	Level      int         `yaml:"level"`
	HP         int         `yaml:"hp"`
	HPPerLevel int         `yaml:"hp_per_level"`
	Strength   int         `yaml:"strength"`
	Defense    int         `yaml:"defense"`
	Initiative int         `yaml:"initiative"`
	Reach      int         `yaml:"reach"`
	Vision     int         `yaml:"vision"`
	Ranged     bool        `yaml:"ranged"`
	Projectile string      `yaml:"projectile"`
	Image      string      `yaml:"image"`
	Script     string      `yaml:"script"` // имя tengo-скрипта с колбэками
}

// SizeClass - класс размера для сетки проходимости (сторона квадрата).
func (d *ActorDef) SizeClass() int {
	return SizeClassOf(d.Size)
}

// SizeClassOf возвращает класс для произвольного размера.
func SizeClassOf(s domain.Size) int {
	c := s.W
	if s.H > c {
		c = s.H
	}
	if c < 1 {
		c = 1
	}
	if c > MaxSizeClass {
		c = MaxSizeClass
	}
	return c
}

// DoorDef - интерактивная дверь. Клетки заданы смещениями от позиции пропа:
// только они меняют проходимость/видимость при открытии и закрытии.
type DoorDef struct {
	InitiallyOpen bool              `yaml:"initially_open"`
	ClosedImpass  []domain.Position `yaml:"closed_impass"`
	ClosedInvis   []domain.Position `yaml:"closed_invis"`
}

// PropDef - шаблон пропа (сценический объект).
type PropDef struct {
	ID         string             `yaml:"id"`
	Name       string             `yaml:"name"`
	Size       domain.Size        `yaml:"size"`
	Impassable bool               `yaml:"impassable"`
	Opaque     bool               `yaml:"opaque"`
	Door       *DoorDef           `yaml:"door"`
	Container  bool               `yaml:"container"`
	Items      []domain.ItemStack `yaml:"items"`
	Image      string             `yaml:"image"`
}

func (d *PropDef) IsDoor() bool {
	return d.Door != nil
}

// ItemDef - предмет. Нужен ядру только для проверки id в сторах и контейнерах.
type ItemDef struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Value int    `yaml:"value"`
}

// EncounterEntry - сколько акторов какого шаблона выставить.
type EncounterEntry struct {
	Actor string `yaml:"actor"`
	Count int    `yaml:"count"`
}

// EncounterDef - набор акторов, генерируемых вместе.
type EncounterDef struct {
	ID      string           `yaml:"id"`
	Entries []EncounterEntry `yaml:"entries"`
}

// TriggerKind - условие срабатывания триггера.
type TriggerKind uint8

const (
	TriggerUnknown TriggerKind = iota
	TriggerOnPlayerEnter
	TriggerOnAreaLoad
)

var triggerKindStringToType = map[string]TriggerKind{
	"on_player_enter": TriggerOnPlayerEnter,
	"on_area_load":    TriggerOnAreaLoad,
}

var triggerKindToString = map[TriggerKind]string{
	TriggerOnPlayerEnter: "on_player_enter",
	TriggerOnAreaLoad:    "on_area_load",
}

// ParseTriggerKind конвертирует строку из YAML в TriggerKind
func ParseTriggerKind(s string) TriggerKind {
	if val, ok := triggerKindStringToType[strings.ToLower(s)]; ok {
		return val
	}
	return TriggerUnknown
}

func (k TriggerKind) String() string {
	if val, ok := triggerKindToString[k]; ok {
		return val
	}
	return "unknown"
}

// TriggerDef - статический триггер зоны. Адресуется позицией в списке.
type TriggerDef struct {
	Kind    string `yaml:"kind"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
	W       int    `yaml:"w"`
	H       int    `yaml:"h"`
	Enabled *bool  `yaml:"enabled"`
	Script  string `yaml:"script"`
}

func (t *TriggerDef) TriggerKind() TriggerKind {
	return ParseTriggerKind(t.Kind)
}

func (t *TriggerDef) Rect() domain.Rect {
	return domain.FootprintOf(domain.Position{X: t.X, Y: t.Y}, domain.Size{W: t.W, H: t.H})
}

// InitiallyEnabled: по умолчанию триггер включен.
func (t *TriggerDef) InitiallyEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// TransitionDef - переход в другую зону.
type TransitionDef struct {
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	W      int    `yaml:"w"`
	H      int    `yaml:"h"`
	ToArea string `yaml:"to_area"`
	ToX    int    `yaml:"to_x"`
	ToY    int    `yaml:"to_y"`
}

func (t *TransitionDef) Rect() domain.Rect {
	return domain.FootprintOf(domain.Position{X: t.X, Y: t.Y}, domain.Size{W: t.W, H: t.H})
}

// PropPlacement - проп, стоящий в зоне изначально.
type PropPlacement struct {
	ID      string `yaml:"id"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
	Enabled *bool  `yaml:"enabled"`
}

func (p *PropPlacement) InitiallyEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// AreaEncounter - энкаунтер, привязанный к прямоугольнику зоны.
type AreaEncounter struct {
	ID        string `yaml:"id"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	W         int    `yaml:"w"`
	H         int    `yaml:"h"`
	AutoSpawn bool   `yaml:"auto_spawn"`
}

func (e *AreaEncounter) Rect() domain.Rect {
	return domain.FootprintOf(domain.Position{X: e.X, Y: e.Y}, domain.Size{W: e.W, H: e.H})
}

// MerchantDef - торговец с начальным ассортиментом.
type MerchantDef struct {
	ID    string             `yaml:"id"`
	Items []domain.ItemStack `yaml:"items"`
}

// ActorPlacement - актор, стоящий в зоне при первой загрузке.
type ActorPlacement struct {
	ID      string `yaml:"id"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
	Faction string `yaml:"faction"`
}
