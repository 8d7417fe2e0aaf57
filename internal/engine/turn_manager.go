package engine

import (
	"container/heap"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/area"
	"tactics-sim/internal/domain"
	"tactics-sim/internal/systems"
	"tactics-sim/pkg/logger"
)

// TurnManager manages the priority queue of entity turns and the
// combat / round bookkeeping of the current area.
type TurnManager struct {
	queue   TurnQueue
	itemMap map[domain.EntityID]*TurnItem

	entities    *domain.Registry
	tolerance   int
	roundMillis uint32

	areaID     string // зона, чьи ходы учитываются
	inCombat   bool
	active     domain.EntityID
	tick       int    // время хода текущего активного
	roundEnd   int    // тик конца боевого раунда
	sinceRound uint32 // мс с начала мирного раунда

	// OnCombatChanged вызывается при входе в бой и выходе из него.
	OnCombatChanged func(inCombat bool)

	log *logrus.Entry
}

func NewTurnManager(entities *domain.Registry, tolerance int, roundMillis uint32) *TurnManager {
	return &TurnManager{
		queue:       make(TurnQueue, 0),
		itemMap:     make(map[domain.EntityID]*TurnItem),
		entities:    entities,
		tolerance:   tolerance,
		roundMillis: roundMillis,
		log:         logger.For("turn_manager"),
	}
}

// AddEntity registers an entity in the turn system.
func (tm *TurnManager) AddEntity(e *domain.Entity) {
	if e.AI == nil {
		return
	}
	if _, ok := tm.itemMap[e.ID]; ok {
		return
	}

	item := &TurnItem{
		ID:       e.ID,
		Priority: e.AI.NextActionTick,
	}

	heap.Push(&tm.queue, item)
	tm.itemMap[e.ID] = item

	tm.log.WithField("entity_id", e.ID).Debug("Entity added to TurnManager")
}

// UpdatePriority updates an entity's position in the queue (e.g. after they acted).
func (tm *TurnManager) UpdatePriority(entityID domain.EntityID, newTick int) {
	if item, ok := tm.itemMap[entityID]; ok {
		tm.queue.Update(item, newTick)
	}
}

// PeekNext returns the entity whose turn is next, without removing them.
func (tm *TurnManager) PeekNext() *TurnItem {
	if tm.queue.Len() == 0 {
		return nil
	}
	return tm.queue[0]
}

// RemoveEntity removes an entity from the turn system (e.g. death).
func (tm *TurnManager) RemoveEntity(entityID domain.EntityID) {
	if item, ok := tm.itemMap[entityID]; ok {
		heap.Remove(&tm.queue, item.Index)
		delete(tm.itemMap, entityID)
	}
	if tm.active == entityID {
		tm.active = domain.NilEntityID
	}
}

func (tm *TurnManager) Len() int {
	return tm.queue.Len()
}

func (tm *TurnManager) InCombat() bool {
	return tm.inCombat
}

// Reset переключает учёт на другую зону: очередь пуста, боя нет.
func (tm *TurnManager) Reset(areaID string) {
	if tm.inCombat {
		tm.EndCombat()
	}
	tm.queue = make(TurnQueue, 0)
	tm.itemMap = make(map[domain.EntityID]*TurnItem)
	tm.areaID = areaID
	tm.active = domain.NilEntityID
	tm.sinceRound = 0
}

// --- area.TurnHooks ---

func (tm *TurnManager) EntityAdded(s *area.State, id domain.EntityID) {
	if s.ID != tm.areaID {
		return
	}
	e := tm.entities.Get(id)
	if e == nil || e.AI == nil || !e.IsAlive() {
		return
	}
	if tm.inCombat {
		// Вошедший в бой встаёт в очередь с текущего времени
		e.AI.NextActionTick = tm.tick + initiativeOffset(e)
		e.AI.EnterCombat()
	}
	tm.AddEntity(e)
}

func (tm *TurnManager) EntityRemoved(s *area.State, id domain.EntityID) {
	if s.ID != tm.areaID {
		return
	}
	tm.RemoveEntity(id)
}

// CheckActivation: бой начинается, когда враг видит члена партии
// в пределах своего радиуса зрения.
func (tm *TurnManager) CheckActivation(s *area.State, id domain.EntityID) {
	if tm.inCombat || s.ID != tm.areaID {
		return
	}
	member := tm.entities.Get(id)
	if member == nil || !member.IsAlive() {
		return
	}
	for _, oid := range s.Entities() {
		other := tm.entities.Get(oid)
		if other == nil || !other.IsAlive() || !other.IsHostileTo(member) {
			continue
		}
		if other.Footprint().GapTo(member.Footprint()) > visionRadius(other) {
			continue
		}
		if !systems.HasLineOfSight(s, tm.tolerance, other.Center(), member.Center()) {
			continue
		}
		tm.log.WithFields(logrus.Fields{
			"spotter":   oid,
			"entity_id": id,
		}).Info("Hostile spotted party member")
		tm.StartCombat(s)
		return
	}
}

// StartCombat ставит всех живых участников в очередь по инициативе.
func (tm *TurnManager) StartCombat(s *area.State) {
	if tm.inCombat {
		return
	}
	tm.inCombat = true
	tm.active = domain.NilEntityID
	tm.roundEnd = tm.tick + domain.TimeCostRound

	for _, id := range s.Entities() {
		e := tm.entities.Get(id)
		if e == nil || e.AI == nil || !e.IsAlive() {
			continue
		}
		e.AI.EnterCombat()
		e.AI.NextActionTick = tm.tick + initiativeOffset(e)
		tm.AddEntity(e)
		tm.UpdatePriority(id, e.AI.NextActionTick)
	}

	tm.log.WithFields(logrus.Fields{"area_id": s.ID, "combatants": tm.Len()}).Info("Combat started")
	if tm.OnCombatChanged != nil {
		tm.OnCombatChanged(true)
	}
}

func (tm *TurnManager) EndCombat() {
	if !tm.inCombat {
		return
	}
	tm.inCombat = false
	tm.active = domain.NilEntityID
	tm.sinceRound = 0
	for _, item := range tm.queue {
		if e := tm.entities.Get(item.ID); e != nil && e.AI != nil {
			e.AI.CalmDown()
		}
	}
	tm.log.Info("Combat ended")
	if tm.OnCombatChanged != nil {
		tm.OnCombatChanged(false)
	}
}

// Current - чей сейчас ход. Вне боя ходов нет.
func (tm *TurnManager) Current() domain.EntityID {
	if !tm.inCombat {
		return domain.NilEntityID
	}
	item := tm.PeekNext()
	if item == nil {
		return domain.NilEntityID
	}
	if item.ID != tm.active {
		tm.active = item.ID
		tm.tick = item.Priority
		if e := tm.entities.Get(item.ID); e != nil && e.AI != nil {
			e.AI.BeginTurn()
		}
		tm.log.WithField("entity_id", item.ID).Debug("Turn started")
	}
	return tm.active
}

// Active - последний объявленный владелец хода, без побочных эффектов.
func (tm *TurnManager) Active() domain.EntityID {
	return tm.active
}

// EndTurn переносит ход сущности на следующий раунд.
func (tm *TurnManager) EndTurn(id domain.EntityID) {
	e := tm.entities.Get(id)
	if e == nil || e.AI == nil {
		return
	}
	e.AI.Wait(domain.TimeCostRound)
	tm.UpdatePriority(id, e.AI.NextActionTick)
	if tm.active == id {
		tm.active = domain.NilEntityID
	}
}

// Update продвигает время и возвращает число прошедших раундов.
// Вне боя раунд идёт по часам, в бою - по обороту очереди.
func (tm *TurnManager) Update(s *area.State, delta uint32) int {
	if !tm.inCombat {
		if tm.roundMillis == 0 {
			return 0
		}
		tm.sinceRound += delta
		rounds := 0
		for tm.sinceRound >= tm.roundMillis {
			tm.sinceRound -= tm.roundMillis
			rounds++
		}
		return rounds
	}

	rounds := 0
	if head := tm.PeekNext(); head != nil {
		for head.Priority >= tm.roundEnd {
			tm.roundEnd += domain.TimeCostRound
			rounds++
		}
	}

	if s != nil && !tm.hostilesRemain(s) {
		tm.EndCombat()
	}
	return rounds
}

// hostilesRemain - есть ли живой враг хотя бы одному живому члену партии.
func (tm *TurnManager) hostilesRemain(s *area.State) bool {
	party := s.Party()
	for _, id := range s.Entities() {
		e := tm.entities.Get(id)
		if e == nil || !e.IsAlive() {
			continue
		}
		for _, p := range party {
			if p.IsAlive() && e.IsHostileTo(p) {
				return true
			}
		}
	}
	return false
}

// DebugDump возвращает снимок очереди для отладки
func (tm *TurnManager) DebugDump() []map[string]interface{} {
	// Пустой слайс, а не nil: в JSON это будет "[]", а не "null"
	result := make([]map[string]interface{}, 0)

	for _, item := range tm.queue {
		name := ""
		if e := tm.entities.Get(item.ID); e != nil {
			name = e.Name
		}
		result = append(result, map[string]interface{}{
			"id":       item.ID,
			"name":     name,
			"priority": item.Priority,
			"index":    item.Index,
		})
	}
	return result
}

// initiativeOffset: чем выше инициатива, тем раньше ход в раунде.
func initiativeOffset(e *domain.Entity) int {
	init := 0
	if e.Stats != nil {
		init = e.Stats.Initiative
	}
	return max(0, domain.TimeCostMove-init)
}

func visionRadius(e *domain.Entity) int {
	if e.Vision == nil || e.Vision.Radius < domain.MinVisionRadius {
		return domain.DefaultVisionRadius
	}
	return e.Vision.Radius
}
