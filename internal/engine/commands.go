package engine

import (
	"fmt"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/engine/handlers"
	"tactics-sim/internal/engine/handlers/actions"
	"tactics-sim/internal/engine/handlers/admin"
	"tactics-sim/internal/grid"
)

func (s *Session) registerHandlers() {
	s.handlers = map[string]handlers.HandlerFunc{
		"MOVE":     handlers.WithPayload(actions.HandleMove),
		"PATH":     handlers.WithPayload(actions.HandlePath),
		"ATTACK":   handlers.WithPayload(actions.HandleAttack),
		"INTERACT": handlers.WithPayload(actions.HandleInteract),
		"PICKUP":   handlers.WithPayload(actions.HandlePickup),
		"TRADE":    handlers.WithPayload(actions.HandleTrade),
		"WAIT":     handlers.WithEmptyPayload(actions.HandleWait),

		"ADMIN_TELEPORT": handlers.WithPayload(admin.HandleTeleport),
		"ADMIN_SPAWN":    handlers.WithPayload(admin.HandleSpawn),
		"ADMIN_HEAL":     handlers.WithEmptyPayload(admin.HandleHeal),
		"ADMIN_KILL":     handlers.WithPayload(admin.HandleKill),

		"ADMIN_SPAWN_ENCOUNTER": handlers.WithPayload(admin.HandleSpawnEncounter),
		"ADMIN_TRIGGER":         handlers.WithPayload(admin.HandleTrigger),
		"ADMIN_PROP":            handlers.WithPayload(admin.HandleProp),
	}
}

// EntityAt - сущность в клетке текущей зоны.
func (s *Session) EntityAt(pos domain.Position) domain.EntityID {
	a := s.Area()
	if a == nil {
		return domain.NilEntityID
	}
	return a.EntityAt(pos.X, pos.Y)
}

// TakeFromContainer берёт предметы из открытого контейнера в соседней клетке.
func (s *Session) TakeFromContainer(id domain.EntityID, pos domain.Position, itemID string, qty int) error {
	e := s.Entities.Get(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if err := s.canAct(e); err != nil {
		return err
	}
	a := s.Area()
	h := a.PropIndexAt(pos.X, pos.Y)
	if h == grid.None {
		return fmt.Errorf("%w: no prop at %v", ErrInvalidTarget, pos)
	}
	if e.Footprint().GapTo(a.Prop(h).Footprint()) > 1 {
		return fmt.Errorf("%w: container at %v is out of reach", ErrInvalidTarget, pos)
	}
	inv, err := a.TakeFromContainer(h, itemID, qty, e.Inventory)
	if err != nil {
		return err
	}
	e.Inventory = inv
	return nil
}

// Trade - покупка (sell=false) или продажа у торговца текущей зоны.
func (s *Session) Trade(id domain.EntityID, merchantID, itemID string, qty int, sell bool) error {
	e := s.Entities.Get(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	a := s.Area()
	if a == nil {
		return ErrNoArea
	}
	m := a.Merchant(merchantID)
	if m == nil {
		return fmt.Errorf("%w: merchant %s", ErrInvalidTarget, merchantID)
	}
	var (
		inv []domain.ItemStack
		err error
	)
	if sell {
		inv, err = m.Sell(itemID, qty, e.Inventory)
	} else {
		inv, err = m.Buy(itemID, qty, e.Inventory)
	}
	if err != nil {
		return err
	}
	e.Inventory = inv
	return nil
}

// --- ОТЛАДКА ЗОНЫ ---

// SpawnEncounterAt поднимает встречу, чей прямоугольник содержит клетку.
// Возвращает число появившихся акторов.
func (s *Session) SpawnEncounterAt(pos domain.Position) (int, error) {
	a := s.Area()
	if a == nil {
		return 0, ErrNoArea
	}
	if !a.InBounds(pos.X, pos.Y) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPath, pos)
	}
	return a.SpawnEncounterAt(pos.X, pos.Y), nil
}

// SetTriggerEnabled включает или выключает статический триггер зоны.
// Включение снова разрешает однократное срабатывание.
func (s *Session) SetTriggerEnabled(index int, enabled bool) error {
	a := s.Area()
	if a == nil {
		return ErrNoArea
	}
	if !a.SetTriggerEnabled(index, enabled) {
		return fmt.Errorf("%w: trigger %d", ErrInvalidTarget, index)
	}
	return nil
}

// SetPropEnabled включает или выключает проп в клетке.
func (s *Session) SetPropEnabled(pos domain.Position, enabled bool) error {
	a := s.Area()
	if a == nil {
		return ErrNoArea
	}
	h := a.PropIndexAt(pos.X, pos.Y)
	if h == grid.None || !a.SetPropEnabled(h, enabled) {
		return fmt.Errorf("%w: no prop at %v", ErrInvalidTarget, pos)
	}
	return nil
}
