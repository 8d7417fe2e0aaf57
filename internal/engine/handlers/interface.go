package handlers

import (
	"encoding/json"

	"tactics-sim/internal/domain"
)

// Simulator - то, что хендлеру доступно в сессии.
// Session неявно реализует этот интерфейс.
type Simulator interface {
	Entity(id domain.EntityID) *domain.Entity
	EntityAt(pos domain.Position) domain.EntityID
	RequestMove(id domain.EntityID, path []domain.Position) error
	RequestAttack(attacker, defender domain.EntityID, ranged bool) error
	EndTurn(id domain.EntityID)
	ToggleProp(id domain.EntityID, pos domain.Position) error
	TakeFromContainer(id domain.EntityID, pos domain.Position, itemID string, qty int) error
	Trade(id domain.EntityID, merchantID, itemID string, qty int, sell bool) error

	// Отладочные команды
	Teleport(id domain.EntityID, pos domain.Position) error
	SpawnActor(defID string, pos domain.Position) (domain.EntityID, error)
	SpawnEncounterAt(pos domain.Position) (int, error)
	SetTriggerEnabled(index int, enabled bool) error
	SetPropEnabled(pos domain.Position, enabled bool) error
}

// Context передает хендлеру сессию и того, кто выполняет команду.
type Context struct {
	Sim   Simulator
	Actor *domain.Entity // Тот, кто выполняет команду (член партии)
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет в логи сессии напрямую, он возвращает данные.
type Result struct {
	Msg     string // Текст лога
	MsgType string // Тип лога (INFO, COMBAT, ERROR)
}

// HandlerFunc - это контракт для любой команды (MOVE, ATTACK, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}

// ErrorResult - отказ, который увидит игрок.
func ErrorResult(msg string) Result {
	return Result{Msg: msg, MsgType: "ERROR"}
}

// ParseEntityID разбирает ID сущности из payload.
func ParseEntityID(s string) (domain.EntityID, error) {
	var id domain.EntityID
	if err := id.UnmarshalJSON([]byte(s)); err != nil {
		return domain.NilEntityID, err
	}
	return id, nil
}
