package domain

import "strings"

// Hook - имя точки вызова скриптового колбэка.
type Hook uint8

const (
	HookUnknown Hook = iota
	HookAnimUpdate
	HookAnimComplete
	HookMoved
	HookRoundElapsed
	HookBeforeAttack
	HookAfterAttack
	HookSurfaceEnter
	HookSurfaceExit
	HookMovedInSurface
	HookTrigger
	HookRemoved
	HookTick
)

// Маппинг для скриптов Domain -> String
var hookToString = map[Hook]string{
	HookAnimUpdate:     "on_anim_update",
	HookAnimComplete:   "on_anim_complete",
	HookMoved:          "on_moved",
	HookRoundElapsed:   "on_round_elapsed",
	HookBeforeAttack:   "before_attack",
	HookAfterAttack:    "after_attack",
	HookSurfaceEnter:   "on_surface_enter",
	HookSurfaceExit:    "on_surface_exit",
	HookMovedInSurface: "on_moved_in_surface",
	HookTrigger:        "on_trigger",
	HookRemoved:        "on_removed",
	HookTick:           "on_tick",
}

var hookStringToType = func() map[string]Hook {
	m := make(map[string]Hook, len(hookToString))
	for h, s := range hookToString {
		m[s] = h
	}
	return m
}()

// ParseHook конвертирует имя функции скрипта в Hook
func ParseHook(s string) Hook {
	if val, ok := hookStringToType[strings.ToLower(s)]; ok {
		return val
	}
	return HookUnknown
}

// String реализует интерфейс Stringer
func (h Hook) String() string {
	if val, ok := hookToString[h]; ok {
		return val
	}
	return "unknown"
}

// CallbackContext - аргументы вызова. Неиспользуемые поля остаются нулевыми.
type CallbackContext struct {
	AreaID  string   `json:"areaId,omitempty"`
	Owner   EntityID `json:"owner"`
	Target  EntityID `json:"target,omitempty"`
	Surface int      `json:"surface,omitempty"`
	Trigger int      `json:"trigger,omitempty"`
	Squares int      `json:"squares,omitempty"`
	Millis  uint32   `json:"millis,omitempty"`
	Damage  int      `json:"damage,omitempty"`
	Killed  bool     `json:"killed,omitempty"`
}

// Callback - непрозрачный объект скриптового движка. Ядро только вызывает
// его по имени хука и никогда не заглядывает внутрь.
type Callback interface {
	Invoke(hook Hook, ctx CallbackContext)
}

// CallbackFunc позволяет использовать обычную функцию как Callback.
type CallbackFunc func(hook Hook, ctx CallbackContext)

func (f CallbackFunc) Invoke(hook Hook, ctx CallbackContext) {
	f(hook, ctx)
}

// Persistent - колбэк, который переживает сохранение: восстанавливается по Ref.
type Persistent interface {
	Callback
	Ref() string
}

// AttackEvent - однократное срабатывание атаки, защёлкнутое анимацией.
type AttackEvent struct {
	Attacker  EntityID
	Defender  EntityID
	Ranged    bool
	Callbacks []Callback
}

// Deferred - отложенный вызов. Планировщик и зона только копят их,
// исполняет оркестратор после завершения своего прохода.
type Deferred struct {
	At       uint32 // мс от начала анимации, ключ сортировки
	Hook     Hook
	Callback Callback
	Ctx      CallbackContext
	Attack   *AttackEvent
}
