package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/anim"
	"tactics-sim/internal/area"
	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/internal/systems"
)

// maxDrainPasses ограничивает цепочки колбэков, которые порождают
// новые уведомления зоны (скрипт двигает сущность и т.п.).
const maxDrainPasses = 8

// Tick - один кадр симуляции. Стадии идут строго по порядку, и
// колбэки стадии полностью исполняются до начала следующей.
func (s *Session) Tick(delta uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick(delta)
}

func (s *Session) tick(delta uint32) {
	s.elapsed += uint64(delta)

	// 1. Один отложенный UI-колбэк
	if fn := s.popUI(); fn != nil {
		fn(s)
	}

	a := s.Area()
	if a == nil {
		return
	}

	// 2-3. Анимации, затем их колбэки: сначала update, потом завершения
	res := s.Anims.Tick(delta)
	s.fire(res.Updates)
	s.fire(res.Completions)

	// 4. Время ходов и раунды эффектов
	if rounds := s.Turns.Update(a, delta); rounds > 0 {
		s.roundElapsed(rounds)
	}

	// 5. Уведомления зон (on_moved, поверхности, триггеры)
	s.drainAreas()

	// 6. Зона: свип пропов, всплывающий текст, таргетер
	a.Update(delta)

	// 7. Глобальная очистка блокирующих анимаций
	if n := s.Anims.ApplyClearBlocking(); n > 0 {
		s.log.WithField("count", n).Debug("Blocking animations flagged for removal")
	}

	// 8. ИИ владельца хода
	s.runAI(a)

	// 9. Павшие и погибшие
	s.reconcileDeaths(a, delta)

	// 10. Скриптовый хук кадра
	if s.Config.TickScript != "" && s.scripts != nil {
		if cb := s.scripts.Callback(s.Config.TickScript); cb != nil {
			cb.Invoke(domain.HookTick, domain.CallbackContext{AreaID: a.ID, Millis: delta})
		}
	}
}

// fire исполняет отложенные вызовы по порядку.
func (s *Session) fire(list []domain.Deferred) {
	for _, d := range list {
		if d.Attack != nil {
			s.resolveAttack(d.Attack)
			continue
		}
		if d.Callback != nil {
			d.Callback.Invoke(d.Hook, d.Ctx)
		}
	}
}

// drainAreas исполняет накопленные уведомления всех зон.
func (s *Session) drainAreas() {
	for pass := 0; pass < maxDrainPasses; pass++ {
		fired := 0
		for _, id := range s.sortedAreaIDs() {
			pending := s.areas[id].DrainPending()
			s.fire(pending)
			fired += len(pending)
		}
		if fired == 0 {
			return
		}
	}
	s.log.Warn("Area notifications still pending after drain limit")
}

// resolveAttack - момент удара: before_attack, урон, after_attack.
func (s *Session) resolveAttack(ev *domain.AttackEvent) {
	att := s.Entities.Get(ev.Attacker)
	def := s.Entities.Get(ev.Defender)
	if att == nil || def == nil {
		s.log.WithFields(logrus.Fields{
			"attacker_id": ev.Attacker,
			"target_id":   ev.Defender,
		}).Warn("Attack resolution skipped: participant is gone")
		return
	}

	ctx := domain.CallbackContext{AreaID: att.AreaID, Owner: att.ID, Target: def.ID}
	for _, cb := range ev.Callbacks {
		cb.Invoke(domain.HookBeforeAttack, ctx)
	}

	res := systems.ApplyAttack(att, def)
	s.AddLog(res.Message, "COMBAT")
	if a := s.areas[def.AreaID]; a != nil && res.Damage > 0 {
		a.AddFeedback(fmt.Sprintf("-%d", res.Damage), def.Pos)
	}

	ctx.Damage = res.Damage
	ctx.Killed = res.Killed
	for _, cb := range ev.Callbacks {
		cb.Invoke(domain.HookAfterAttack, ctx)
	}
}

// runAI делает одно действие за ИИ-владельца хода. Ход игрока
// завершается сам, когда очков не хватает даже на шаг.
func (s *Session) runAI(a *area.State) {
	if !s.Turns.InCombat() {
		return
	}
	id := s.Turns.Current()
	if id.IsNil() {
		return
	}
	e := s.Entities.Get(id)
	if e == nil || e.AI == nil || !e.IsAlive() {
		s.Turns.RemoveEntity(id)
		return
	}
	if s.Anims.HasBlocking(id) {
		return
	}

	if e.AI.Controlled {
		if e.AI.ActionPoints < domain.APCostMove {
			s.Turns.EndTurn(id)
		}
		return
	}

	var candidates []*domain.Entity
	for _, oid := range a.Entities() {
		if other := s.Entities.Get(oid); other != nil {
			candidates = append(candidates, other)
		}
	}
	target := systems.NearestHostile(e, candidates)
	decision := systems.ComputeNPCAction(e, target, a, s.Config.ElevationTolerance)

	switch decision.Action {
	case systems.AIActionAttack:
		if !e.AI.SpendAP(domain.APCostAttack) {
			s.Turns.EndTurn(id)
			return
		}
		s.queueAttack(e, target, false)
	case systems.AIActionMove:
		if !e.AI.SpendAP(domain.APCostMove) {
			s.Turns.EndTurn(id)
			return
		}
		s.Anims.Queue(anim.NewMove(id, []domain.Position{e.Pos.Shift(decision.DX, decision.DY)}))
	default:
		s.Turns.EndTurn(id)
	}
}

// reconcileDeaths: павшая партия вне боя встаёт через задержку, в бою
// уходит с поля до конца боя; погибшие акторы получают анимацию смерти
// и удаляются, когда она завершится.
func (s *Session) reconcileDeaths(a *area.State, delta uint32) {
	if s.combatEnded {
		s.combatEnded = false
		s.restoreFallen()
	}

	for _, id := range a.Entities() {
		e := s.Entities.Get(id)
		if e == nil || e.IsAlive() {
			continue
		}

		if e.IsParty() {
			if s.Turns.InCombat() {
				s.removeFallen(a, e)
				continue
			}
			e.DisabledMillis += delta
			if e.DisabledMillis >= s.Config.ReviveDelayMillis {
				e.DisabledMillis = 0
				e.Stats.Revive(1)
				a.RefreshVisibility()
				s.AddLog(fmt.Sprintf("%s приходит в себя.", e.Name), "INFO")
			}
			continue
		}

		if s.dying[id] {
			// Анимацию смерти могла снять очистка без колбэков завершения
			if !s.Anims.HasBlocking(id) {
				s.removeEntity(id)
			}
			continue
		}
		s.dying[id] = true
		s.Anims.CancelOwner(id, true)
		s.removeOwnerEffects(id)
		s.Turns.RemoveEntity(id)

		dead := id
		s.Anims.Queue(anim.NewEntityDeath(id).WithCompletion(domain.CallbackFunc(func(domain.Hook, domain.CallbackContext) {
			s.removeEntity(dead)
		})))
	}
}

// removeEntity убирает сущность из зоны и реестра.
func (s *Session) removeEntity(id domain.EntityID) {
	delete(s.dying, id)
	e := s.Entities.Get(id)
	if e == nil {
		return
	}
	if a := s.areas[e.AreaID]; a != nil && a.Contains(id) {
		a.RemoveEntity(id)
	}
	s.Entities.Remove(id)
	s.log.WithFields(logrus.Fields{"entity_id": id, "name": e.Name}).Info("Entity removed")
}

// removeFallen убирает члена партии с поля боя и ставит метку.
func (s *Session) removeFallen(a *area.State, e *domain.Entity) {
	s.Anims.CancelOwner(e.ID, true)
	pos := e.Pos
	a.RemoveEntity(e.ID)

	marker := grid.None
	if pd, ok := s.Module.Prop(s.Config.DeathMarkerProp); ok {
		h, err := a.AddProp(pd, pos, true)
		if err != nil {
			s.log.WithError(err).WithField("entity_id", e.ID).Warn("Death marker not placed")
		} else {
			marker = h
		}
	} else {
		s.log.WithField("prop_id", s.Config.DeathMarkerProp).Warn("Death marker prop not found")
	}

	s.fallen = append(s.fallen, fallenMember{ID: e.ID, AreaID: a.ID, Pos: pos, Marker: marker})
	s.AddLog(fmt.Sprintf("%s падает без сознания.", e.Name), "COMBAT")
}

// restoreFallen возвращает павших после боя на место их меток.
func (s *Session) restoreFallen() {
	for _, f := range s.fallen {
		e := s.Entities.Get(f.ID)
		a := s.areas[f.AreaID]
		if e == nil || a == nil {
			continue
		}
		if f.Marker != grid.None {
			a.MarkPropForRemoval(f.Marker)
		}
		pos, ok := s.freeCellNear(a, e.SizeClass, e.Size, f.Pos)
		if !ok {
			pos = f.Pos
		}
		e.Stats.Revive(1)
		e.DisabledMillis = 0
		e.Pos = pos
		a.PlaceEntity(e)
	}
	s.fallen = s.fallen[:0]
}
