package api

import (
	"encoding/json"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// AreaView это корневой объект, который сервер рассылает наблюдателям.
// Он представляет собой "снимок" текущей зоны глазами партии.
// Отправляется каждый кадр, в котором что-то изменилось.
type AreaView struct {
	// Type тип сообщения. На данный момент всегда "AREA".
	Type string `json:"type"`

	// Tick время сессии в мс.
	Tick uint64 `json:"tick"`

	AreaID string   `json:"areaId"`
	Grid   GridMeta `json:"grid"`

	// Visible и Explored - строки карты: '1' видно/исследовано, '0' нет.
	Visible  []string `json:"visible"`
	Explored []string `json:"explored"`

	// InCombat и ActiveEntityID - состояние очереди ходов.
	// КЛИЕНТ ДОЛЖЕН СРАВНИВАТЬ ActiveEntityID СО СВОИМ ID в бою.
	InCombat       bool   `json:"inCombat"`
	ActiveEntityID string `json:"activeEntityId,omitempty"`

	// Entities срез видимых сущностей (партия видна всегда).
	Entities []EntityView `json:"entities"`

	// Props срез исследованных пропов.
	Props []PropView `json:"props,omitempty"`

	// Draw - примитивы анимаций по слоям (below, above, ui).
	Draw map[string][]PrimitiveView `json:"draw,omitempty"`

	Feedback []FeedbackView `json:"feedback,omitempty"`

	// Logs срез сообщений игрового лога.
	Logs []LogEntry `json:"logs,omitempty"`
}

// GridMeta содержит общие размеры карты, чтобы клиент знал,
// какую сетку для рендеринга нужно подготовить.
type GridMeta struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// EntityView это DTO для сущности зоны.
type EntityView struct {
	ID      string `json:"id"`
	DefID   string `json:"defId"`
	Name    string `json:"name"`
	Faction string `json:"faction"`
	Party   bool   `json:"party,omitempty"`
	// Busy - у сущности идёт блокирующая анимация, команды не примутся.
	Busy bool `json:"busy,omitempty"`

	Pos struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"pos"`
	Size struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"size"`

	Visual VisualView `json:"visual"`

	// Stats может отсутствовать, если у сущности нет характеристик.
	Stats *StatsView `json:"stats,omitempty"`

	// Inventory только для членов партии.
	Inventory []ItemView `json:"inventory,omitempty"`
}

// VisualView - транзитное состояние спрайта.
type VisualView struct {
	Color    [4]float32        `json:"color"`
	ColorSec [4]float32        `json:"colorSec"`
	SubX     float32           `json:"subX"`
	SubY     float32           `json:"subY"`
	Scale    float32           `json:"scale"`
	Layers   map[string]string `json:"layers,omitempty"`
}

// StatsView это DTO для характеристик сущности.
type StatsView struct {
	HP     int  `json:"hp"`
	MaxHP  int  `json:"maxHp"`
	AP     int  `json:"ap,omitempty"`
	IsDead bool `json:"isDead"`
}

// PropView - проп зоны.
type PropView struct {
	Slot    int    `json:"slot"`
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Open    bool   `json:"open,omitempty"`
	Enabled bool   `json:"enabled"`
}

// PrimitiveView - одна команда отрисовки анимации.
type PrimitiveView struct {
	Kind  string     `json:"kind"`
	Owner string     `json:"owner,omitempty"`
	Image string     `json:"image,omitempty"`
	X     float32    `json:"x"`
	Y     float32    `json:"y"`
	Scale float32    `json:"scale"`
	Color [4]float32 `json:"color"`
	Count int        `json:"count,omitempty"`
}

// FeedbackView - всплывающий текст над клеткой.
type FeedbackView struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Age  uint32 `json:"age"`
}

// LogEntry представляет одну запись в игровом логе.
type LogEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`      // INFO, COMBAT, ERROR
	Timestamp int64  `json:"timestamp"` // мс времени сессии
}

// ItemView представляет стопку предметов для клиента
type ItemView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// --- КЛИЕНТ -> СЕРВЕР ---

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Token ID сущности, от имени которой выполняется действие.
	Token string `json:"token,omitempty"`

	// Action название действия, которое нужно выполнить.
	Action string `json:"action"`

	// Payload JSON-объект с данными для действия. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload"`
}

// --- Payloads ---

// DirectionPayload используется для шага в направлении (MOVE).
type DirectionPayload struct {
	Dx int `json:"dx"` // Смещение по X (-1, 0, 1)
	Dy int `json:"dy"` // Смещение по Y (-1, 0, 1)
}

// PathPayload используется для движения по готовому пути (PATH).
type PathPayload struct {
	Path []PositionPayload `json:"path"`
}

// EntityPayload используется для действий, нацеленных на другую сущность (ATTACK).
type EntityPayload struct {
	TargetID string `json:"targetId"`
	Ranged   bool   `json:"ranged,omitempty"`
}

// PositionPayload используется для действий, нацеленных на точку на карте (INTERACT, TELEPORT).
type PositionPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ItemPayload используется для взятия предметов из контейнера (PICKUP).
type ItemPayload struct {
	ItemID string `json:"itemId"`
	Count  int    `json:"count,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// TradePayload используется для покупки и продажи (TRADE).
type TradePayload struct {
	MerchantID string `json:"merchantId"`
	ItemID     string `json:"itemId"`
	Count      int    `json:"count,omitempty"`
	Sell       bool   `json:"sell,omitempty"`
}
